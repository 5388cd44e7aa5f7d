package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coinapi-go/internal/coinapi"
	"coinapi-go/internal/config"
	"coinapi-go/internal/history"
	"coinapi-go/internal/indicator"
	"coinapi-go/internal/store"
)

// Options 为命令行覆盖的运行参数，零值表示沿用配置。
type Options struct {
	Pairs    []string
	Interval time.Duration
	Strict   bool
	Now      func() time.Time
}

// Report 为单个交易对的拉取结果。
type Report struct {
	Result  history.Result
	Summary indicator.Result
	Err     error
}

// App 聚合核心依赖并驱动一次历史汇率同步。
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	history *history.Service
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := coinapi.NewClient(cfg.CoinAPI, logger.Named("coinapi"))
	if err != nil {
		return nil, err
	}

	var repo history.RateRepository
	if store != nil {
		repo = store
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		history: history.NewService(client, repo, cfg.History.MaxConcurrent, logger.Named("history")),
	}, nil
}

// Run 拉取全部交易对的历史汇率并计算指标，单个交易对失败记录在 Report.Err 中。
func (a *App) Run(ctx context.Context, opts Options) ([]Report, error) {
	reqs, err := a.buildRequests(opts)
	if err != nil {
		return nil, err
	}

	a.logger.Info("开始同步历史汇率",
		zap.String("environment", a.cfg.App.Environment),
		zap.Int("pairs", len(reqs)),
		zap.Duration("interval", reqs[0].Interval),
	)

	results, fetchErr := a.history.FetchMany(ctx, reqs)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	reports := make([]Report, len(results))
	for i, res := range results {
		reports[i] = Report{Result: res, Err: res.Err}
		if res.Err != nil || len(res.Data) == 0 {
			continue
		}
		summary, err := a.history.Summarize(res)
		if err != nil {
			reports[i].Err = err
			continue
		}
		reports[i].Summary = summary
	}

	if fetchErr != nil {
		a.logger.Warn("部分交易对同步失败", zap.Error(fetchErr))
	}

	return reports, fetchErr
}

func (a *App) buildRequests(opts Options) ([]history.Request, error) {
	pairs := opts.Pairs
	if len(pairs) == 0 {
		pairs = a.cfg.History.Pairs
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("app: 未配置交易对")
	}

	interval := opts.Interval
	if interval == 0 {
		interval = a.cfg.History.Period.Duration()
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	end := now().UTC()
	start := end.Add(-a.cfg.History.Lookback)

	reqs := make([]history.Request, 0, len(pairs))
	for _, pair := range pairs {
		base, quote, err := coinapi.ParsePair(pair)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, history.Request{
			Base:     base,
			Quote:    quote,
			Interval: interval,
			Start:    start,
			End:      end,
			Limit:    a.cfg.History.Limit,
			Strict:   opts.Strict || a.cfg.History.Strict,
		})
	}

	return reqs, nil
}
