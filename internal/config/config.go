package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Edinet     EdinetConfig     `yaml:"edinet" mapstructure:"edinet"`
	Files      FilesConfig      `yaml:"files" mapstructure:"files"`
	Scraping   ScrapingConfig   `yaml:"scraping" mapstructure:"scraping"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// EdinetConfig configures the disclosure registry API client.
type EdinetConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey           string  `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries       int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// FilesConfig configures where archives are stored and unpacked.
type FilesConfig struct {
	ArchiveRoot string `yaml:"archive_root" mapstructure:"archive_root"`
	DecodeRoot  string `yaml:"decode_root" mapstructure:"decode_root"`
}

// ScrapingConfig configures which documents are processed.
type ScrapingConfig struct {
	TargetTypeCodes    []string `yaml:"target_type_codes" mapstructure:"target_type_codes"`
	RemoveTypeCodes    []string `yaml:"remove_type_codes" mapstructure:"remove_type_codes"`
	ExcludedIndustries []string `yaml:"excluded_industries" mapstructure:"excluded_industries"`
	MasterPath         string   `yaml:"master_path" mapstructure:"master_path"` // empty uses the built-in master
	CacheTTLSecs       int      `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	WebhookURL  string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures the background status checker.
type MonitoringConfig struct {
	WebhookURL          string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs   int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	ErrorRateThreshold  float64 `yaml:"error_rate_threshold" mapstructure:"error_rate_threshold"`
	StalledThreshold    int     `yaml:"stalled_threshold" mapstructure:"stalled_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EDINET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("edinet.base_url", "https://api.edinet-fsa.go.jp")
	v.SetDefault("edinet.timeout_secs", 60)
	v.SetDefault("edinet.max_retries", 3)
	v.SetDefault("edinet.requests_per_sec", 2.0)
	v.SetDefault("edinet.failure_threshold", 5)
	v.SetDefault("edinet.reset_timeout_secs", 60)
	v.SetDefault("edinet.user_agent", "edinet-cli/1.0")
	v.SetDefault("files.archive_root", "data/zip")
	v.SetDefault("files.decode_root", "data/decode")
	v.SetDefault("scraping.target_type_codes", []string{"120", "130", "140", "150"})
	v.SetDefault("scraping.remove_type_codes", []string{"120", "130", "140", "150", "160", "170"})
	v.SetDefault("scraping.excluded_industries", []string{"銀行業", "保険業", "証券、商品先物取引業", "その他金融業"})
	v.SetDefault("scraping.cache_ttl_secs", 600)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.error_rate_threshold", 0.5)
	v.SetDefault("monitoring.stalled_threshold", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the keys a command needs. Mode is one of "ingest",
// "process", "serve" or "store".
func (c *Config) Validate(mode string) error {
	var missing []string
	require := func(ok bool, key string) {
		if !ok {
			missing = append(missing, key)
		}
	}

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	require(c.Store.DatabaseURL != "", "store.database_url")

	switch mode {
	case "store":
	case "ingest":
		require(c.Edinet.BaseURL != "", "edinet.base_url")
		require(c.Edinet.APIKey != "", "edinet.api_key")
	case "process":
		require(c.Edinet.APIKey != "", "edinet.api_key")
		require(c.Files.ArchiveRoot != "", "files.archive_root")
		require(c.Files.DecodeRoot != "", "files.decode_root")
		require(len(c.Scraping.TargetTypeCodes) > 0, "scraping.target_type_codes")
	case "serve":
		require(c.Edinet.APIKey != "", "edinet.api_key")
		require(c.Files.ArchiveRoot != "", "files.archive_root")
		require(c.Files.DecodeRoot != "", "files.decode_root")
		require(c.Server.Port > 0, "server.port")
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required keys for %s: %s", mode, strings.Join(missing, ", "))
	}
	if (mode == "process" || mode == "serve") && (c.Batch.Concurrency < 1 || c.Batch.Concurrency > 50) {
		return eris.Errorf("config: batch.concurrency must be between 1 and 50, got %d", c.Batch.Concurrency)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
