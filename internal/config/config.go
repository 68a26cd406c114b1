package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultBcryptCost    = 10
	defaultOTPTTLMinutes = 5
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ServerPort    string `mapstructure:"SERVER_PORT"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	RabbitMQURL   string `mapstructure:"RABBITMQ_URL"`
	BcryptCost    int    `mapstructure:"BCRYPT_COST"`
	OTPTTLMinutes int    `mapstructure:"OTP_TTL_MINUTES"`
}

// LoadConfig reads configuration from a .env file in path or from environment
// variables. Missing file is fine; env vars always win.
func LoadConfig(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind env vars explicitly
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("BCRYPT_COST")
	_ = viper.BindEnv("OTP_TTL_MINUTES")

	viper.SetDefault("BCRYPT_COST", defaultBcryptCost)
	viper.SetDefault("OTP_TTL_MINUTES", defaultOTPTTLMinutes)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, err
	}

	if config.BcryptCost <= 0 {
		config.BcryptCost = defaultBcryptCost
	}
	if config.OTPTTLMinutes <= 0 {
		config.OTPTTLMinutes = defaultOTPTTLMinutes
	}

	return config, nil
}
