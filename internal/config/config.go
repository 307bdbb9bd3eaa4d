package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

// FinanceConfig holds the default financial tunables. Tax and retention are
// fractions of the gross amount; payment terms drive the due date offset.
type FinanceConfig struct {
	TaxRate          float64
	RetentionRate    float64
	PaymentTermsDays int
}

type StorageConfig struct {
	Dir string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Finance     FinanceConfig
	Storage     StorageConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Finance: FinanceConfig{
			TaxRate:          v.GetFloat64("FINANCE_TAX_RATE"),
			RetentionRate:    v.GetFloat64("FINANCE_RETENTION_RATE"),
			PaymentTermsDays: v.GetInt("FINANCE_PAYMENT_TERMS_DAYS"),
		},
		Storage: StorageConfig{
			Dir: v.GetString("STORAGE_DIR"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.Finance.TaxRate == 0 {
		cfg.Finance.TaxRate = 0.11
	}
	if cfg.Finance.RetentionRate == 0 {
		cfg.Finance.RetentionRate = 0.05
	}
	if cfg.Finance.PaymentTermsDays == 0 {
		cfg.Finance.PaymentTermsDays = 30
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "./uploads"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Finance.TaxRate < 0 || cfg.Finance.TaxRate >= 1 {
		return fmt.Errorf("FINANCE_TAX_RATE must be a fraction in [0, 1)")
	}
	if cfg.Finance.RetentionRate < 0 || cfg.Finance.RetentionRate >= 1 {
		return fmt.Errorf("FINANCE_RETENTION_RATE must be a fraction in [0, 1)")
	}
	return nil
}
