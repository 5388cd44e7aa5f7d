package store

import (
	"context"
	"fmt"
	"time"

	"coinapi-go/internal/coinapi"
	"coinapi-go/internal/period"
)

// RateKey 标识一条汇率序列。
type RateKey struct {
	Base   coinapi.AssetName
	Quote  coinapi.AssetName
	Period period.Period
}

func (k RateKey) String() string {
	return fmt.Sprintf("%s/%s@%s", k.Base, k.Quote, k.Period)
}

// SaveRates 以 (base, quote, period, time_period_start) 为主键写入或覆盖汇率K线。
func (s *Store) SaveRates(ctx context.Context, key RateKey, data coinapi.TimeseriesData) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: 开启事务失败: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO exchange_rates (
	asset_base, asset_quote, period_id,
	time_period_start, time_period_end, time_open, time_close,
	rate_open, rate_high, rate_low, rate_close, fetched_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (asset_base, asset_quote, period_id, time_period_start) DO UPDATE SET
	time_period_end = excluded.time_period_end,
	time_open = excluded.time_open,
	time_close = excluded.time_close,
	rate_open = excluded.rate_open,
	rate_high = excluded.rate_high,
	rate_low = excluded.rate_low,
	rate_close = excluded.rate_close,
	fetched_at = excluded.fetched_at`)
	if err != nil {
		return 0, fmt.Errorf("store: 预编译写入语句失败: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UTC().UnixNano()
	for _, d := range data {
		_, err := stmt.ExecContext(ctx,
			key.Base.String(), key.Quote.String(), key.Period.String(),
			d.TimePeriodStart.UnixNano(), d.TimePeriodEnd.UnixNano(),
			d.TimeOpen.UnixNano(), d.TimeClose.UnixNano(),
			d.RateOpen, d.RateHigh, d.RateLow, d.RateClose,
			fetchedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("store: 写入 %s 失败: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: 提交事务失败: %w", err)
	}

	return len(data), nil
}

// LoadRates 读取 [start, end) 区间内的汇率K线，按时间升序。零值时间表示不限制。
func (s *Store) LoadRates(ctx context.Context, key RateKey, start, end time.Time) (coinapi.TimeseriesData, error) {
	query := `
SELECT time_period_start, time_period_end, time_open, time_close,
	rate_open, rate_high, rate_low, rate_close
FROM exchange_rates
WHERE asset_base = ? AND asset_quote = ? AND period_id = ?`
	args := []interface{}{key.Base.String(), key.Quote.String(), key.Period.String()}

	if !start.IsZero() {
		query += ` AND time_period_start >= ?`
		args = append(args, start.UnixNano())
	}
	if !end.IsZero() {
		query += ` AND time_period_start < ?`
		args = append(args, end.UnixNano())
	}
	query += ` ORDER BY time_period_start ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: 查询 %s 失败: %w", key, err)
	}
	defer rows.Close()

	var out coinapi.TimeseriesData
	for rows.Next() {
		var (
			periodStart, periodEnd, open, closeTime int64
			d                                       coinapi.TimeseriesDatum
		)
		if err := rows.Scan(&periodStart, &periodEnd, &open, &closeTime,
			&d.RateOpen, &d.RateHigh, &d.RateLow, &d.RateClose); err != nil {
			return nil, fmt.Errorf("store: 读取 %s 失败: %w", key, err)
		}
		d.TimePeriodStart = time.Unix(0, periodStart).UTC()
		d.TimePeriodEnd = time.Unix(0, periodEnd).UTC()
		d.TimeOpen = time.Unix(0, open).UTC()
		d.TimeClose = time.Unix(0, closeTime).UTC()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: 遍历 %s 失败: %w", key, err)
	}

	return out, nil
}
