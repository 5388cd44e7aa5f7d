package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/multierr"

	"coinapi-go/internal/period"
)

// Config 聚合了客户端运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	CoinAPI  CoinAPIConfig  `mapstructure:"coinapi"`
	History  HistoryConfig  `mapstructure:"history"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// CoinAPIConfig 描述 CoinAPI 连接信息。
type CoinAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// HistoryConfig 控制历史汇率拉取。
type HistoryConfig struct {
	Pairs         []string      `mapstructure:"pairs"`
	Period        period.Period `mapstructure:"period"`
	Lookback      time.Duration `mapstructure:"lookback"`
	Limit         int           `mapstructure:"limit"`
	Strict        bool          `mapstructure:"strict"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.CoinAPI.BaseURL == "" {
		err = multierr.Append(err, errors.New("coinapi.base_url 不能为空"))
	} else if u, parseErr := url.Parse(c.CoinAPI.BaseURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("coinapi.base_url 无效: %q", c.CoinAPI.BaseURL))
	}
	if c.CoinAPI.Timeout <= 0 {
		err = multierr.Append(err, errors.New("coinapi.timeout 必须大于0"))
	}
	if c.CoinAPI.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("coinapi.retry.max_attempts 必须大于0"))
	}
	if c.CoinAPI.Retry.MinDelay <= 0 || c.CoinAPI.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("coinapi.retry.delay 必须为正"))
	}
	if c.CoinAPI.Retry.MinDelay > c.CoinAPI.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("coinapi.retry.min_delay 不能大于 max_delay"))
	}
	if !c.History.Period.Valid() {
		err = multierr.Append(err, fmt.Errorf("history.period 不受支持: %s", c.History.Period))
	}
	if c.History.Lookback <= 0 {
		err = multierr.Append(err, errors.New("history.lookback 必须大于0"))
	}
	if c.History.Limit <= 0 || c.History.Limit > 100000 {
		err = multierr.Append(err, errors.New("history.limit 必须位于(0,100000]"))
	}
	if c.History.MaxConcurrent <= 0 {
		err = multierr.Append(err, errors.New("history.max_concurrent 必须大于0"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
