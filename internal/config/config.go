package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "coinapi"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()
	// 兼容 CoinAPI 官方示例中的环境变量名
	_ = v.BindEnv("coinapi.api_key", "COINAPI_COINAPI_API_KEY", "COINAPI_KEY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("coinapi.base_url", "https://rest.coinapi.io/v1")
	v.SetDefault("coinapi.api_key", "")
	v.SetDefault("coinapi.timeout", "15s")
	v.SetDefault("coinapi.retry.max_attempts", 3)
	v.SetDefault("coinapi.retry.min_delay", "500ms")
	v.SetDefault("coinapi.retry.max_delay", "5s")

	v.SetDefault("history.pairs", []string{"BTC/USD"})
	v.SetDefault("history.period", "1HRS")
	v.SetDefault("history.lookback", "168h")
	v.SetDefault("history.limit", 100)
	v.SetDefault("history.strict", false)
	v.SetDefault("history.max_concurrent", 4)

	v.SetDefault("database.path", "data/coinapi.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			// period.Period 实现了 encoding.TextUnmarshaler
			mapstructure.TextUnmarshallerHookFunc(),
		)
	}
}
