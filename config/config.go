package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env string

	Database  DatabaseConfigs
	ApiServer APIServerConfigs
	Auth      AuthConfigs
	Redis     RedisConfigs
	Kafka     KafkaConfigs
	Purchase  PurchaseConfigs
	Raffle    RaffleConfigs
	Log       LogConfigs

	SnowflakeNode int64
}

type DatabaseConfigs struct {
	// Driver is either "mysql" or "sqlite".
	Driver string

	Host     string
	Port     string
	Database string
	User     string
	Password string

	// SQLitePath is used when Driver is "sqlite".
	SQLitePath string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&multiStatements=true",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type APIServerConfigs struct {
	Host           string
	Port           string
	AllowedOrigins []string

	MaxLimit     int
	DefaultLimit int
}

type AuthConfigs struct {
	// UserIDHeader is the header set by the upstream identity provider.
	UserIDHeader string

	AdminKeyHeader string
	AdminKey       string
}

type RedisConfigs struct {
	Addr string

	ResultTTL time.Duration
}

type KafkaConfigs struct {
	Addrs    []string
	ClientID string
}

type PurchaseConfigs struct {
	MaxQuantity int
}

// RaffleConfigs holds the policy defaults applied to raffles created without
// an explicit policy.
type RaffleConfigs struct {
	AllowMultipleWins bool
	ConsolationPolicy string
}

type LogConfigs struct {
	Level string
	JSON  bool
}
