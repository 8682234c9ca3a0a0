package config

import (
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every runtime setting for the server. Values are resolved in
// order: defaults, config file, environment (POLLBOARD_*), command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	Port     string `mapstructure:"port"`

	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBName     string `mapstructure:"db_name"`

	RedisAddr string `mapstructure:"redis_addr"`

	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
	RateLimitMax    int           `mapstructure:"rate_limit_max"`
	AuthBurstRPS    float64       `mapstructure:"auth_burst_rps"`
	AuthBurstSize   int           `mapstructure:"auth_burst_size"`

	SessionMaxAge time.Duration `mapstructure:"session_max_age"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
}

// Default returns the built-in configuration. Tests build on top of this
// rather than going through viper.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		Port:            "8090",
		DBUser:          "pollboard",
		DBPassword:      "pollboard",
		DBHost:          "mysql",
		DBPort:          "3306",
		DBName:          "pollboard",
		RedisAddr:       "",
		RateLimitWindow: 15 * time.Minute,
		RateLimitMax:    100,
		AuthBurstRPS:    1,
		AuthBurstSize:   5,
		SessionMaxAge:   24 * time.Hour,
		BcryptCost:      12,
	}
}

// Load resolves the full configuration and initialises the logger.
func Load() (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("port", def.Port)
	v.SetDefault("db_user", def.DBUser)
	v.SetDefault("db_password", def.DBPassword)
	v.SetDefault("db_host", def.DBHost)
	v.SetDefault("db_port", def.DBPort)
	v.SetDefault("db_name", def.DBName)
	v.SetDefault("redis_addr", def.RedisAddr)
	v.SetDefault("rate_limit_window", def.RateLimitWindow)
	v.SetDefault("rate_limit_max", def.RateLimitMax)
	v.SetDefault("auth_burst_rps", def.AuthBurstRPS)
	v.SetDefault("auth_burst_size", def.AuthBurstSize)
	v.SetDefault("session_max_age", def.SessionMaxAge)
	v.SetDefault("bcrypt_cost", def.BcryptCost)

	fs := pflag.NewFlagSet("pollboard", pflag.ContinueOnError)
	fs.String("config_file", "config.yaml", "configuration file")
	fs.String("log_level", def.LogLevel, "log level")
	fs.String("port", def.Port, "HTTP listen port")
	fs.String("redis_addr", def.RedisAddr, "redis address, empty for in-memory rate limiting")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	v.SetConfigFile(v.GetString("config_file"))
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		log.WithError(err).Info("no config file, using defaults")
	}

	v.SetEnvPrefix("pollboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if l, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(l)
	}

	return cfg, nil
}
