package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBName         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Payout struct {
		MinThreshold      int64         `mapstructure:"MIN_THRESHOLD"`
		AutoMinTrustScore float64       `mapstructure:"AUTO_MIN_TRUST_SCORE"`
		AutoMaxAmount     int64         `mapstructure:"AUTO_MAX_AMOUNT"`
		RunInterval       time.Duration `mapstructure:"RUN_INTERVAL"`
	} `mapstructure:"PAYOUT"`
}

// PayoutPolicy is the immutable settlement policy handed to services at
// construction. Amounts are minor currency units.
type PayoutPolicy struct {
	// MinThreshold is the smallest amount a payout request may claim.
	MinThreshold int64
	// AutoMinTrustScore gates unattended settlement by owner trust score.
	AutoMinTrustScore float64
	// AutoMaxAmount is the ceiling for unattended settlement. Equality is
	// allowed; only strictly greater amounts are held back.
	AutoMaxAmount int64
}

var Module = fx.Module("config", fx.Provide(LoadConfig, ProvidePayoutPolicy))

func LoadConfig() *Config {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	setDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.L().Error("failed to read config file", zap.Error(err))
			os.Exit(1)
		}
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	return &cfg
}

// ProvidePayoutPolicy snapshots the payout gates so services never read
// ambient configuration at call time.
func ProvidePayoutPolicy(cfg *Config) PayoutPolicy {
	return PayoutPolicy{
		MinThreshold:      cfg.Payout.MinThreshold,
		AutoMinTrustScore: cfg.Payout.AutoMinTrustScore,
		AutoMaxAmount:     cfg.Payout.AutoMaxAmount,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "datamarket-settlement")
	v.SetDefault("HTTP_SERVER.ADDR", ":8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("PAYOUT.MIN_THRESHOLD", 1000)
	v.SetDefault("PAYOUT.AUTO_MIN_TRUST_SCORE", 40.0)
	v.SetDefault("PAYOUT.AUTO_MAX_AMOUNT", 100000)
	v.SetDefault("PAYOUT.RUN_INTERVAL", time.Hour)
}
