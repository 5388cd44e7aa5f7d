package coinapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// AssetName 为资产代码，例如 BTC、USD、ETH。
type AssetName string

// Validate 检查资产代码是否为空或包含路径分隔符。
func (a AssetName) Validate() error {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return errors.New("coinapi: asset name 不能为空")
	}
	if strings.ContainsAny(s, "/?#") {
		return fmt.Errorf("coinapi: asset name %q 包含非法字符", s)
	}
	return nil
}

func (a AssetName) String() string {
	return strings.ToUpper(strings.TrimSpace(string(a)))
}

// ParsePair 解析 "BTC/USD" 形式的交易对。
func ParsePair(pair string) (AssetName, AssetName, error) {
	base, quote, ok := strings.Cut(pair, "/")
	if !ok {
		return "", "", fmt.Errorf("coinapi: 交易对 %q 格式应为 BASE/QUOTE", pair)
	}
	b, q := AssetName(base), AssetName(quote)
	if err := b.Validate(); err != nil {
		return "", "", err
	}
	if err := q.Validate(); err != nil {
		return "", "", err
	}
	return AssetName(b.String()), AssetName(q.String()), nil
}

// Date 为 YYYY-MM-DD 格式的日期。
type Date struct {
	time.Time
}

// UnmarshalJSON 解析 "2006-01-02"。
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("coinapi: 解析日期 %q 失败: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON 输出 "2006-01-02"。
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Flag 为以 0/1 表示的布尔值。
type Flag bool

// UnmarshalJSON 仅接受 0 与 1。
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "0":
		*f = false
	case "1":
		*f = true
	default:
		return fmt.Errorf("coinapi: 期望 0 或 1，得到 %s", data)
	}
	return nil
}

// TimeseriesDatum 代表单个周期内的汇率K线。
type TimeseriesDatum struct {
	TimePeriodStart time.Time `json:"time_period_start"`
	TimePeriodEnd   time.Time `json:"time_period_end"`
	TimeOpen        time.Time `json:"time_open"`
	TimeClose       time.Time `json:"time_close"`
	RateOpen        float64   `json:"rate_open"`
	RateHigh        float64   `json:"rate_high"`
	RateLow         float64   `json:"rate_low"`
	RateClose       float64   `json:"rate_close"`
}

// TimeseriesData 为 exchangerate history 接口的返回值，按时间升序。
type TimeseriesData []TimeseriesDatum

// ExchangeRate 为当前汇率。
type ExchangeRate struct {
	Time         time.Time `json:"time"`
	AssetIDBase  string    `json:"asset_id_base"`
	AssetIDQuote string    `json:"asset_id_quote"`
	Rate         float64   `json:"rate"`
}

// Exchange 描述交易所元数据。
type Exchange struct {
	ExchangeID string `json:"exchange_id"`
	Website    string `json:"website"`
	Name       string `json:"name"`

	DataStart          *Date      `json:"data_start,omitempty"`
	DataEnd            *Date      `json:"data_end,omitempty"`
	DataQuoteStart     *time.Time `json:"data_quote_start,omitempty"`
	DataQuoteEnd       *time.Time `json:"data_quote_end,omitempty"`
	DataOrderbookStart *time.Time `json:"data_orderbook_start,omitempty"`
	DataOrderbookEnd   *time.Time `json:"data_orderbook_end,omitempty"`
	DataTradeStart     *time.Time `json:"data_trade_start,omitempty"`
	DataTradeEnd       *time.Time `json:"data_trade_end,omitempty"`

	DataSymbolsCount int     `json:"data_symbols_count"`
	Volume1HrsUSD    float64 `json:"volume_1hrs_usd"`
	Volume1DayUSD    float64 `json:"volume_1day_usd"`
	Volume1MthUSD    float64 `json:"volume_1mth_usd"`
}

// Exchanges 为 exchanges 接口的返回值。
type Exchanges []Exchange

// Asset 描述资产元数据。
type Asset struct {
	AssetID      string `json:"asset_id"`
	Name         string `json:"name"`
	TypeIsCrypto Flag   `json:"type_is_crypto"`

	DataStart          *Date      `json:"data_start,omitempty"`
	DataEnd            *Date      `json:"data_end,omitempty"`
	DataQuoteStart     *time.Time `json:"data_quote_start,omitempty"`
	DataQuoteEnd       *time.Time `json:"data_quote_end,omitempty"`
	DataOrderbookStart *time.Time `json:"data_orderbook_start,omitempty"`
	DataOrderbookEnd   *time.Time `json:"data_orderbook_end,omitempty"`
	DataTradeStart     *time.Time `json:"data_trade_start,omitempty"`
	DataTradeEnd       *time.Time `json:"data_trade_end,omitempty"`

	DataSymbolsCount int      `json:"data_symbols_count"`
	Volume1HrsUSD    float64  `json:"volume_1hrs_usd"`
	Volume1DayUSD    float64  `json:"volume_1day_usd"`
	Volume1MthUSD    float64  `json:"volume_1mth_usd"`
	PriceUSD         *float64 `json:"price_usd,omitempty"`
}

// Assets 为 assets 接口的返回值。
type Assets []Asset

// Find 按 asset_id 查找资产。
func (a Assets) Find(id AssetName) (Asset, bool) {
	for _, asset := range a {
		if strings.EqualFold(asset.AssetID, string(id)) {
			return asset, true
		}
	}
	return Asset{}, false
}
