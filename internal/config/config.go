package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	PostgresConn  string `mapstructure:"POSTGRES_CONN"`
	MigrationURL  string `mapstructure:"MIGRATION_URL"`

	APIHost    string `mapstructure:"API_HOST"`
	APIVersion string `mapstructure:"API_VERSION"`
	APIToken   string `mapstructure:"API_TOKEN"`
	DSHost     string `mapstructure:"DS_HOST"`
	DSUser     string `mapstructure:"DS_USER"`
	DSPassword string `mapstructure:"DS_PASSWORD"`
	UserAgent  string `mapstructure:"USER_AGENT"`

	// защита аукциона от других воркеров, в секундах
	ProcessingLockSec int `mapstructure:"PROCESSING_LOCK"`
	// допустимое опоздание к началу этапа, в секундах
	LatencyTimeSec int `mapstructure:"LATENCY_TIME"`
	// таймаут обработки HTTP-запроса, в секундах
	RequestTimeoutSec int `mapstructure:"REQUEST_TIMEOUT"`
}

// LoadConfig загружает конфигурацию из файла
func LoadConfig(path string) (cfg Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.SetDefault("API_VERSION", "2.5")
	viper.SetDefault("USER_AGENT", "Auction 2.0")
	viper.SetDefault("PROCESSING_LOCK", 1)
	viper.SetDefault("LATENCY_TIME", 30)
	viper.SetDefault("REQUEST_TIMEOUT", 5)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}
	err = viper.Unmarshal(&cfg)
	return
}

// ProcessingLock возвращает длительность блокировки обработки.
func (c Config) ProcessingLock() time.Duration {
	return time.Duration(c.ProcessingLockSec) * time.Second
}

// LatencyTime возвращает допустимое опоздание к началу этапа.
func (c Config) LatencyTime() time.Duration {
	return time.Duration(c.LatencyTimeSec) * time.Second
}

// RequestTimeout возвращает таймаут обработки HTTP-запроса.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
