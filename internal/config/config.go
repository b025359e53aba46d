package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
)

// Config はアプリケーション設定を表す
type Config struct {
	Env         string
	Server      ServerConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Reservation ReservationConfig
	Metrics     MetricsConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // 1リクエストの処理期限（ストア操作を含む）
	ShutdownTimeout time.Duration
}

// StoreConfig はイベントストアの選択
type StoreConfig struct {
	Driver         string // redis | postgres
	MigrationsPath string
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ReservationConfig は座席ホールドと競合制御の設定
type ReservationConfig struct {
	HoldTTL         time.Duration
	MaxHoldsPerUser int
	MaxAttempts     int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	UseLock         bool
	LockTTL         time.Duration
	LockRetries     int
	LockRetryDelay  time.Duration
}

// MetricsConfig は /metrics の Basic 認証設定
// User と Password の両方が設定されている場合のみ認証を要求する
type MetricsConfig struct {
	User     string
	Password string
}

// AuthEnabled は認証が有効かどうかを返す
func (c *MetricsConfig) AuthEnabled() bool {
	return c.User != "" && c.Password != ""
}

// Load は環境変数から設定を読み込む
// カレントディレクトリに .env があれば先に読み込む
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout:  getDurationEnv("SERVER_REQUEST_TIMEOUT", 5*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Driver:         getEnv("STORE_DRIVER", StoreDriverRedis),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "events_booking"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 2*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 2*time.Second),
		},
		Reservation: ReservationConfig{
			HoldTTL:         getDurationEnv("HOLD_TTL", 60*time.Second),
			MaxHoldsPerUser: getIntEnv("MAX_HOLDS_PER_USER", 10),
			MaxAttempts:     getIntEnv("RESERVATION_MAX_ATTEMPTS", 5),
			RetryBaseDelay:  getDurationEnv("RESERVATION_RETRY_BASE_DELAY", 5*time.Millisecond),
			RetryMaxDelay:   getDurationEnv("RESERVATION_RETRY_MAX_DELAY", 100*time.Millisecond),
			UseLock:         getBoolEnv("RESERVATION_USE_LOCK", false),
			LockTTL:         getDurationEnv("RESERVATION_LOCK_TTL", 2*time.Second),
			LockRetries:     getIntEnv("RESERVATION_LOCK_RETRIES", 20),
			LockRetryDelay:  getDurationEnv("RESERVATION_LOCK_RETRY_DELAY", 10*time.Millisecond),
		},
		Metrics: MetricsConfig{
			User:     os.Getenv("METRICS_USER"),
			Password: os.Getenv("METRICS_PASSWORD"),
		},
	}
}

// Validate は設定値の整合性を検証する
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Driver != StoreDriverRedis && c.Store.Driver != StoreDriverPostgres {
		errs = append(errs, fmt.Errorf("STORE_DRIVER は %q または %q: %q", StoreDriverRedis, StoreDriverPostgres, c.Store.Driver))
	}
	if c.Store.Driver == StoreDriverPostgres && c.Reservation.UseLock {
		errs = append(errs, errors.New("RESERVATION_USE_LOCK は redis ストアでのみ利用できます"))
	}
	if c.Reservation.HoldTTL <= 0 {
		errs = append(errs, errors.New("HOLD_TTL は正の値である必要があります"))
	}
	if c.Reservation.MaxHoldsPerUser < 1 {
		errs = append(errs, errors.New("MAX_HOLDS_PER_USER は1以上である必要があります"))
	}
	if c.Reservation.MaxAttempts < 1 {
		errs = append(errs, errors.New("RESERVATION_MAX_ATTEMPTS は1以上である必要があります"))
	}
	if c.Reservation.RetryMaxDelay < c.Reservation.RetryBaseDelay {
		errs = append(errs, errors.New("RESERVATION_RETRY_MAX_DELAY は RESERVATION_RETRY_BASE_DELAY 以上である必要があります"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_REQUEST_TIMEOUT は正の値である必要があります"))
	}
	return errors.Join(errs...)
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
