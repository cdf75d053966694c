package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port        string `mapstructure:"port"`
		MetricsPort string `mapstructure:"metrics_port"`
		LogLevel    string `mapstructure:"log_level"`
	} `mapstructure:"server"`
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Swarm struct {
		APIURL         string `mapstructure:"api_url"`
		APIKey         string `mapstructure:"api_key"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"swarm"`
	PumpFun struct {
		APIBase        string `mapstructure:"api_base"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"pumpfun"`
	Broadcast struct {
		AMQPURL string `mapstructure:"amqp_url"`
		Queue   string `mapstructure:"queue"`
	} `mapstructure:"broadcast"`
	Show struct {
		AutoTransition          bool `mapstructure:"auto_transition"`
		GeneratorTimeoutSeconds int  `mapstructure:"generator_timeout_seconds"`
	} `mapstructure:"show"`
	Auth struct {
		JWTSecret     string `mapstructure:"jwt_secret"`
		AdminPassword string `mapstructure:"admin_password"`
	} `mapstructure:"auth"`
}

func Load() *Config {
	viper.SetEnvPrefix("TOKENCAST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("server.port")
	viper.BindEnv("server.metrics_port")
	viper.BindEnv("server.log_level")

	viper.BindEnv("database.host")
	viper.BindEnv("database.port")
	viper.BindEnv("database.user")
	viper.BindEnv("database.password")
	viper.BindEnv("database.name")

	viper.BindEnv("redis.addr")
	viper.BindEnv("redis.password")
	viper.BindEnv("redis.db")

	viper.BindEnv("swarm.api_url")
	viper.BindEnv("swarm.api_key")
	viper.BindEnv("swarm.timeout_seconds")

	viper.BindEnv("pumpfun.api_base")
	viper.BindEnv("pumpfun.timeout_seconds")

	viper.BindEnv("broadcast.amqp_url")
	viper.BindEnv("broadcast.queue")

	viper.BindEnv("show.auto_transition")
	viper.BindEnv("show.generator_timeout_seconds")

	viper.BindEnv("auth.jwt_secret")
	viper.BindEnv("auth.admin_password")

	// Defaults
	viper.SetDefault("server.port", ":8002")
	viper.SetDefault("server.metrics_port", ":9091")
	viper.SetDefault("server.log_level", "error")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "tokencast")
	viper.SetDefault("database.name", "tokencast")

	viper.SetDefault("swarm.api_url", "http://localhost:8001")
	viper.SetDefault("swarm.timeout_seconds", 30)

	viper.SetDefault("pumpfun.api_base", "https://api.pump.fun")
	viper.SetDefault("pumpfun.timeout_seconds", 30)

	viper.SetDefault("broadcast.queue", "tokencast.events")

	viper.SetDefault("show.auto_transition", true)
	viper.SetDefault("show.generator_timeout_seconds", 20)

	viper.SetDefault("auth.jwt_secret", "super-secret-tokencast-key-change-me")
	viper.SetDefault("auth.admin_password", "changeme")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	return &cfg
}
