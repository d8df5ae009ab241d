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
	Store        StoreConfig      `yaml:"store" mapstructure:"store"`
	TechDetect   AdapterConfig    `yaml:"techdetect" mapstructure:"techdetect"`
	TrafficStats AdapterConfig    `yaml:"trafficstats" mapstructure:"trafficstats"`
	JobFeed      AdapterConfig    `yaml:"jobfeed" mapstructure:"jobfeed"`
	Anthropic    AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Salesforce   SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion       NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Scorer       ScorerConfig     `yaml:"scorer" mapstructure:"scorer"`
	Enrich       EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Batch        BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server       ServerConfig     `yaml:"server" mapstructure:"server"`
	Log          LogConfig        `yaml:"log" mapstructure:"log"`
	Rules        RulesConfig      `yaml:"rules" mapstructure:"rules"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AdapterConfig holds settings shared by every external source adapter:
// credentials, endpoint, and the token-bucket rate limit the adapter's
// client enforces for all callers.
type AdapterConfig struct {
	Key     string  `yaml:"key" mapstructure:"key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
	Burst   int     `yaml:"burst" mapstructure:"burst"`
}

// AnthropicConfig holds Anthropic API settings for the insights step.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SalesforceConfig holds Salesforce JWT auth settings for CRM sync.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// NotionConfig holds Notion API credentials and the lead queue database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// ScorerConfig holds the ICP component caps and vertical tier tables.
type ScorerConfig struct {
	VerticalCap    int `yaml:"vertical_cap" mapstructure:"vertical_cap"`
	TrafficCap     int `yaml:"traffic_cap" mapstructure:"traffic_cap"`
	TechSpendCap   int `yaml:"tech_spend_cap" mapstructure:"tech_spend_cap"`
	PartnerTechCap int `yaml:"partner_tech_cap" mapstructure:"partner_tech_cap"`

	PrimaryVerticals        []string `yaml:"primary_verticals" mapstructure:"primary_verticals"`
	SecondaryVerticals      []string `yaml:"secondary_verticals" mapstructure:"secondary_verticals"`
	SecondaryVerticalPoints int      `yaml:"secondary_vertical_points" mapstructure:"secondary_vertical_points"`
	BaseVerticalPoints      int      `yaml:"base_vertical_points" mapstructure:"base_vertical_points"`
	PartnerPoints           int      `yaml:"partner_points" mapstructure:"partner_points"`
}

// EnrichConfig configures the enrichment orchestrator.
type EnrichConfig struct {
	// FreshTTLHours marks a stored record fresh; fresh domains are skipped
	// unless forced.
	FreshTTLHours int `yaml:"fresh_ttl_hours" mapstructure:"fresh_ttl_hours"`
	// CompetitorCap bounds secondary tech fetches per deep analysis.
	CompetitorCap int `yaml:"competitor_cap" mapstructure:"competitor_cap"`
	// RetryAttempts is the per-adapter retry budget inside one step.
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentDomains int `yaml:"max_concurrent_domains" mapstructure:"max_concurrent_domains"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// RulesConfig optionally overrides the embedded classification tables.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SIGNALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "signals.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_domains", 4)
	v.SetDefault("enrich.fresh_ttl_hours", 72)
	v.SetDefault("enrich.competitor_cap", 8)
	v.SetDefault("enrich.retry_attempts", 3)
	v.SetDefault("techdetect.base_url", "https://api.techdetect.io/v1")
	v.SetDefault("techdetect.rps", 1)
	v.SetDefault("techdetect.burst", 5)
	v.SetDefault("trafficstats.base_url", "https://api.trafficstats.io/v1")
	v.SetDefault("trafficstats.rps", 2)
	v.SetDefault("trafficstats.burst", 5)
	v.SetDefault("jobfeed.base_url", "https://api.jobfeed.dev/v1")
	v.SetDefault("jobfeed.rps", 1)
	v.SetDefault("jobfeed.burst", 3)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("scorer.vertical_cap", 40)
	v.SetDefault("scorer.traffic_cap", 30)
	v.SetDefault("scorer.tech_spend_cap", 20)
	v.SetDefault("scorer.partner_tech_cap", 10)
	v.SetDefault("scorer.secondary_vertical_points", 25)
	v.SetDefault("scorer.base_vertical_points", 10)
	v.SetDefault("scorer.partner_points", 5)
	v.SetDefault("scorer.primary_verticals", []string{
		"ecommerce", "e-commerce", "retail", "fashion", "electronics", "grocery", "marketplace",
	})
	v.SetDefault("scorer.secondary_verticals", []string{
		"media", "travel", "b2b", "healthcare", "fintech",
	})

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
