package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Race     RaceConfig     `mapstructure:"race"`
	Lobby    LobbyConfig    `mapstructure:"lobby"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MonitorAddress string `mapstructure:"monitor_address"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type RaceConfig struct {
	TickIntervalMs   int `mapstructure:"tick_interval_ms"`
	CountdownSeconds int `mapstructure:"countdown_seconds"`
}

// TickInterval returns the tick cadence, defaulting to 500ms.
func (c RaceConfig) TickInterval() time.Duration {
	if c.TickIntervalMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

type LobbyConfig struct {
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
	RetentionMinutes     int `mapstructure:"retention_minutes"`
}

// SweepInterval returns how often the janitor runs, defaulting to 5 minutes.
func (c LobbyConfig) SweepInterval() time.Duration {
	if c.SweepIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// Retention returns how long completed lobbies stay listed, default 1 hour.
func (c LobbyConfig) Retention() time.Duration {
	if c.RetentionMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.RetentionMinutes) * time.Minute
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
