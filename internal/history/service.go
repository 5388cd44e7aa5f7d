package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coinapi-go/internal/coinapi"
	"coinapi-go/internal/indicator"
	"coinapi-go/internal/period"
	"coinapi-go/internal/store"
)

// RateSource 提供历史汇率，*coinapi.Client 实现了该接口。
type RateSource interface {
	TimeseriesData(ctx context.Context, base, quote coinapi.AssetName, p period.Period, start, end time.Time, limit int) (coinapi.TimeseriesData, error)
}

// RateRepository 持久化历史汇率，*store.Store 实现了该接口。
type RateRepository interface {
	SaveRates(ctx context.Context, key store.RateKey, data coinapi.TimeseriesData) (int, error)
}

// Request 描述一次历史汇率拉取。
type Request struct {
	Base     coinapi.AssetName
	Quote    coinapi.AssetName
	Interval time.Duration
	Start    time.Time
	End      time.Time
	Limit    int
	// Strict 为 true 时，Interval 不是受支持周期则直接返回 *period.MismatchError。
	Strict bool
}

// Result 为一次拉取的结果。
type Result struct {
	Key          store.RateKey
	Requested    time.Duration
	Approximated bool
	Data         coinapi.TimeseriesData
	Saved        int
	// Err 仅由 FetchMany 填充。
	Err error
}

// Service 负责周期解析、历史汇率拉取与持久化。
type Service struct {
	source        RateSource
	repo          RateRepository
	calc          *indicator.Calculator
	logger        *zap.Logger
	maxConcurrent int
}

// NewService 创建历史汇率服务，repo 可以为 nil。
func NewService(source RateSource, repo RateRepository, maxConcurrent int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Service{
		source:        source,
		repo:          repo,
		calc:          indicator.NewCalculator(),
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// Fetch 将 Interval 映射到支持周期后拉取历史汇率并写入存储。
func (s *Service) Fetch(ctx context.Context, req Request) (Result, error) {
	if err := req.Base.Validate(); err != nil {
		return Result{}, err
	}
	if err := req.Quote.Validate(); err != nil {
		return Result{}, err
	}

	p, approximated, err := s.resolve(req)
	if err != nil {
		return Result{}, err
	}

	key := store.RateKey{
		Base:   coinapi.AssetName(req.Base.String()),
		Quote:  coinapi.AssetName(req.Quote.String()),
		Period: p,
	}

	data, err := s.source.TimeseriesData(ctx, key.Base, key.Quote, p, req.Start, req.End, req.Limit)
	if err != nil {
		return Result{}, fmt.Errorf("history: 拉取 %s 失败: %w", key, err)
	}

	result := Result{
		Key:          key,
		Requested:    req.Interval,
		Approximated: approximated,
		Data:         data,
	}

	if s.repo != nil {
		saved, err := s.repo.SaveRates(ctx, key, data)
		if err != nil {
			return result, fmt.Errorf("history: 保存 %s 失败: %w", key, err)
		}
		result.Saved = saved
	}

	s.logger.Info("历史汇率拉取完成",
		zap.Stringer("key", key),
		zap.Bool("approximated", approximated),
		zap.Int("rows", len(data)),
		zap.Int("saved", result.Saved),
	)

	return result, nil
}

func (s *Service) resolve(req Request) (period.Period, bool, error) {
	p, err := period.Resolve(req.Interval)
	if err == nil {
		return p, false, nil
	}

	var mismatch *period.MismatchError
	if !errors.As(err, &mismatch) {
		return period.Period{}, false, fmt.Errorf("history: %w", err)
	}
	if req.Strict {
		return period.Period{}, false, fmt.Errorf("history: %w", mismatch)
	}

	s.logger.Warn("请求周期不受支持，使用最接近的周期",
		zap.Duration("requested", mismatch.Requested),
		zap.Stringer("closest", mismatch.Closest),
	)
	return mismatch.Closest, true, nil
}

// FetchMany 并发拉取多个交易对，单个失败不影响其他请求。
// 返回的结果与 reqs 一一对应，失败项只填充 Err，全部错误通过 multierr 合并返回。
func (s *Service) FetchMany(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))
	errs := make([]error, len(reqs))

	var group errgroup.Group
	group.SetLimit(s.maxConcurrent)

	for i, req := range reqs {
		i, req := i, req
		group.Go(func() error {
			res, err := s.Fetch(ctx, req)
			if err != nil {
				errs[i] = fmt.Errorf("%s/%s: %w", req.Base, req.Quote, err)
				results[i] = Result{Requested: req.Interval, Err: errs[i]}
				return nil
			}
			results[i] = res
			return nil
		})
	}

	_ = group.Wait()

	return results, multierr.Combine(errs...)
}

// Summarize 对拉取结果计算技术指标。
func (s *Service) Summarize(res Result) (indicator.Result, error) {
	return s.calc.Compute(res.Key.String(), res.Key.Period, res.Data)
}
