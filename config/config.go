package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Reservation ReservationConfig
	Auth        AuthConfig
	Queue       QueueConfig
	Redis       RedisConfig
	Payment     PaymentConfig
}

type ServerConfig struct {
	Addr     string
	GinMode  string
	LogLevel string
}

type ReservationConfig struct {
	Hold          time.Duration
	SweepInterval time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

// QueueConfig Driver 為 memory 或 redis
type QueueConfig struct {
	Driver     string
	BufferSize int
	MaxLen     int64
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type PaymentConfig struct {
	RevertTimeout time.Duration
}

const (
	QueueDriverMemory = "memory"
	QueueDriverRedis  = "redis"
)

// devJWTSecret 只在 debug / test 模式且未設定 JWT_SECRET 時使用
const devJWTSecret = "dev-only-secret"

var AppConfig *Config

func LoadConfig() *Config {
	// .env 不存在時直接使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	server := GetServerConfig()
	AppConfig = &Config{
		Server:      server,
		Reservation: GetReservationConfig(),
		Auth:        AuthConfig{JWTSecret: getJWTSecret(server.GinMode)},
		Queue:       GetQueueConfig(),
		Redis:       GetRedisConfig(),
		Payment:     PaymentConfig{RevertTimeout: getDuration("PAYMENT_REVERT_TIMEOUT", 10*time.Second)},
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
	}

	return &Config{
		Server: ServerConfig{Addr: ":0", GinMode: "test", LogLevel: "debug"},
		Reservation: ReservationConfig{
			Hold:          time.Minute,
			SweepInterval: 10 * time.Millisecond,
		},
		Auth:    AuthConfig{JWTSecret: "test-secret"},
		Queue:   QueueConfig{Driver: QueueDriverMemory, BufferSize: 16},
		Redis:   testRedisConfig,
		Payment: PaymentConfig{RevertTimeout: time.Second},
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Addr:     getEnv("HTTP_ADDR", ":8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func GetReservationConfig() ReservationConfig {
	return ReservationConfig{
		Hold:          getDuration("RESERVATION_HOLD", 10*time.Minute),
		SweepInterval: getDuration("SWEEP_INTERVAL", 30*time.Second),
	}
}

func GetQueueConfig() QueueConfig {
	return QueueConfig{
		Driver:     getEnv("RECEIPT_QUEUE", QueueDriverMemory),
		BufferSize: getInt("RECEIPT_QUEUE_BUFFER", 1000),
		MaxLen:     int64(getInt("RECEIPT_STREAM_MAXLEN", 100000)),
	}
}

func GetRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getInt("REDIS_DB", 0),
	}
}

// getJWTSecret release 模式下沒有 JWT_SECRET 直接 panic，不使用預設值
func getJWTSecret(ginMode string) string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}
	if ginMode == "debug" || ginMode == "test" {
		log.Printf("JWT_SECRET not set, using development secret (GIN_MODE=%s)", ginMode)
		return devJWTSecret
	}
	panic("JWT_SECRET must be set when GIN_MODE=" + ginMode)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		panic(err)
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		panic(err)
	}
	return v
}
