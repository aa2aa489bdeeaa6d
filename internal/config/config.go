package config

import (
	"os"
	"strconv"

	"github.com/yukikurage/taskboard-api/internal/constants"
)

type Config struct {
	DBDriver        string
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	RedisHost       string
	RedisPort       string
	SessionSecret   string
	ChannelSecret   string
	GinMode         string
	DispatchWorkers int
}

func Load() *Config {
	return &Config{
		DBDriver:        getEnv("DB_DRIVER", "mysql"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "3306"),
		DBUser:          getEnv("DB_USER", "taskuser"),
		DBPassword:      getEnv("DB_PASSWORD", "taskpassword"),
		DBName:          getEnv("DB_NAME", "taskboard"),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		SessionSecret:   getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		ChannelSecret:   getEnv("CHANNEL_SECRET", "default-channel-key-change-me"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		DispatchWorkers: getEnvInt("DISPATCH_WORKERS", constants.DefaultDispatchWorkers),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return defaultValue
	}
	return n
}
