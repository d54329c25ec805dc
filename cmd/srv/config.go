package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/questx-lab/gemdrops/config"
	"github.com/urfave/cli/v2"
)

// loadEnvFile populates the process environment from the env file. A missing
// file is not an error, variables may come from the environment only.
func (s *srv) loadEnvFile(cctx *cli.Context) error {
	path := cctx.String("env-file")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	return godotenv.Load(path)
}

func (s *srv) loadConfig() {
	s.configs = &config.Configs{
		Env: getEnv("ENV", "local"),
		Database: config.DatabaseConfigs{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("MYSQL_HOST", "localhost"),
			Port:            getEnv("MYSQL_PORT", "3306"),
			Database:        getEnv("MYSQL_DATABASE", "gemdrops"),
			User:            getEnv("MYSQL_USER", "mysql"),
			Password:        getEnv("MYSQL_PASSWORD", "mysql"),
			SQLitePath:      getEnv("SQLITE_PATH", "gemdrops.db"),
			MaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "20")),
			MaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "5")),
			ConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m")),
		},
		ApiServer: config.APIServerConfigs{
			Host:           getEnv("API_HOST", ""),
			Port:           getEnv("API_PORT", "8080"),
			AllowedOrigins: parseList(getEnv("API_ALLOWED_ORIGINS", "*")),
			MaxLimit:       parseInt(getEnv("API_MAX_LIMIT", "50")),
			DefaultLimit:   parseInt(getEnv("API_DEFAULT_LIMIT", "10")),
		},
		Auth: config.AuthConfigs{
			UserIDHeader:   getEnv("AUTH_USER_ID_HEADER", "X-User-ID"),
			AdminKeyHeader: getEnv("AUTH_ADMIN_KEY_HEADER", "X-Admin-Key"),
			AdminKey:       getEnv("AUTH_ADMIN_KEY", ""),
		},
		Redis: config.RedisConfigs{
			Addr:      getEnv("REDIS_ADDRESS", ""),
			ResultTTL: parseDuration(getEnv("REDIS_RESULT_TTL", "24h")),
		},
		Kafka: config.KafkaConfigs{
			Addrs:    parseList(getEnv("KAFKA_ADDRESSES", "")),
			ClientID: getEnv("KAFKA_CLIENT_ID", "gemdrops"),
		},
		Purchase: config.PurchaseConfigs{
			MaxQuantity: parseInt(getEnv("PURCHASE_MAX_QUANTITY", "10")),
		},
		Raffle: config.RaffleConfigs{
			AllowMultipleWins: parseBool(getEnv("RAFFLE_ALLOW_MULTIPLE_WINS", "true")),
			ConsolationPolicy: getEnv("RAFFLE_CONSOLATION_POLICY", "per_slot"),
		},
		Log: config.LogConfigs{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  parseBool(getEnv("LOG_JSON", "false")),
		},
		SnowflakeNode: int64(parseInt(getEnv("SNOWFLAKE_NODE", "1"))),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		panic(err)
	}
	return b
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

// parseList splits a comma separated value. Empty items are dropped.
func parseList(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
