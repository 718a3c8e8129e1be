// Package config loads service configuration from a YAML file with
// environment-variable overrides for deploy-time secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Temporal    TemporalConfig    `yaml:"temporal"`
	Brokerage   BrokerageConfig   `yaml:"brokerage"`
	Negotiation NegotiationConfig `yaml:"negotiation"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

type BrokerageConfig struct {
	BrokerID            string  `yaml:"broker_id"`
	BrokerName          string  `yaml:"broker_name"`
	BrokerContact       string  `yaml:"broker_contact"`
	BrokerPayoutAccount string  `yaml:"broker_payout_account"`
	CommissionPct       float64 `yaml:"commission_pct"`
	Currency            string  `yaml:"currency"`
}

type NegotiationConfig struct {
	TargetMarginPct     float64  `yaml:"target_margin_pct"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	ReplyDeadline       Duration `yaml:"reply_deadline"`
	SignaturePollEvery  Duration `yaml:"signature_poll_every"`
	SignatureDeadline   Duration `yaml:"signature_deadline"`
	InboxPollSpec       string   `yaml:"inbox_poll_spec"` // cron spec, e.g. "@every 30s"
}

type ProviderEndpoint struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type ProvidersConfig struct {
	Messaging ProviderEndpoint `yaml:"messaging"`
	TextAI    TextAIConfig     `yaml:"text_ai"`
	ESign     ProviderEndpoint `yaml:"esign"`
	Escrow    ProviderEndpoint `yaml:"escrow"`
	Payout    ProviderEndpoint `yaml:"payout"`
	Directory ProviderEndpoint `yaml:"directory"`
}

type TextAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path (when non-empty), applies defaults,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Brokerage.CommissionPct < 0 {
		return nil, fmt.Errorf("commission_pct must not be negative, got %v", cfg.Brokerage.CommissionPct)
	}
	if cfg.Negotiation.ConfidenceThreshold <= 0 || cfg.Negotiation.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence_threshold must be in (0,1], got %v", cfg.Negotiation.ConfidenceThreshold)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8090},
		Temporal: TemporalConfig{HostPort: "localhost:7233", Namespace: "default", TaskQueue: "RFQ_BROKER_TASK_QUEUE"},
		Brokerage: BrokerageConfig{
			BrokerID:      "broker-platform",
			BrokerName:    "RFQ Broker Platform",
			BrokerContact: "deals@rfqbroker.example",
			CommissionPct: 10,
			Currency:      "USD",
		},
		Negotiation: NegotiationConfig{
			TargetMarginPct:     15,
			ConfidenceThreshold: 0.7,
			ReplyDeadline:       Duration(48 * time.Hour),
			SignaturePollEvery:  Duration(15 * time.Minute),
			SignatureDeadline:   Duration(14 * 24 * time.Hour),
			InboxPollSpec:       "@every 30s",
		},
		Auth: AuthConfig{TokenExpireHours: 24},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TEMPORAL_HOSTPORT"); v != "" {
		cfg.Temporal.HostPort = v
	}
	if v := os.Getenv("TEMPORAL_NAMESPACE"); v != "" {
		cfg.Temporal.Namespace = v
	}
	if v := os.Getenv("SERVICE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("MESSAGING_BASE_URL"); v != "" {
		cfg.Providers.Messaging.BaseURL = v
	}
	if v := os.Getenv("MESSAGING_API_KEY"); v != "" {
		cfg.Providers.Messaging.APIKey = v
	}
	if v := os.Getenv("TEXT_AI_BASE_URL"); v != "" {
		cfg.Providers.TextAI.BaseURL = v
	}
	if v := os.Getenv("TEXT_AI_API_KEY"); v != "" {
		cfg.Providers.TextAI.APIKey = v
	}
	if v := os.Getenv("ESIGN_BASE_URL"); v != "" {
		cfg.Providers.ESign.BaseURL = v
	}
	if v := os.Getenv("ESCROW_BASE_URL"); v != "" {
		cfg.Providers.Escrow.BaseURL = v
	}
	if v := os.Getenv("PAYOUT_BASE_URL"); v != "" {
		cfg.Providers.Payout.BaseURL = v
	}
	if v := os.Getenv("DIRECTORY_BASE_URL"); v != "" {
		cfg.Providers.Directory.BaseURL = v
	}
}
