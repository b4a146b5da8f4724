// config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура конфигурации приложения
type Config struct {
	// WS Server (исходящие алерты)
	WsIP   string
	WsPort int

	// Binance
	ApiURL         string
	StreamURL      string
	KlineChannel   string
	SplitLetter    string // граница разбиения символов на два стрима
	StreamBuffer   int    // размер буфера событий стрима
	RequestTimeout time.Duration

	// Strategy
	MaximumKlines               int
	AvgIncrease                 float64 // суммарный объём окна, $
	VolumeMultiple              float64
	PercentToMaxPriceExceedsMin float64
	WithinThreshold             float64
	TimePassed                  int // кулдаун между алертами, минуты
	MinDailyVolume              float64

	// Application
	UpdateSymbolsCooldown time.Duration
	PendingQueueSize      int

	// DB
	DbHost     string
	DbPort     int
	DbUser     string
	DbPassword string
	DbName     string
	DbSSLMode  string

	// Redis (кэш суточного объёма, опционально)
	RedisEnabled   bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	VolumeCacheTTL time.Duration

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Logging
	LogLevel string
	LogFile  string
	Debug    bool
}

// LoadConfig загружает конфигурацию из .env файла
func LoadConfig(envPath string) (*Config, error) {
	// Загружаем .env файл
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
	}

	config := &Config{
		// WS Server
		WsIP:   getEnvString("WS_IP", "127.0.0.1"),
		WsPort: getEnvInt("WS_PORT", 8004),

		// Binance
		ApiURL:         getEnvString("BINANCE_API_URL", "https://fapi.binance.com"),
		StreamURL:      getEnvString("BINANCE_STREAM_URL", "wss://fstream.binance.com/stream"),
		KlineChannel:   getEnvString("KLINE_CHANNEL", "kline_1m"),
		SplitLetter:    getEnvString("STREAM_SPLIT_LETTER", "K"),
		StreamBuffer:   getEnvInt("STREAM_BUFFER_SIZE", 4096),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT", 10)) * time.Second,

		// Strategy
		MaximumKlines:               getEnvInt("STRATEGY_MAXIMUM_KLINES", 10),
		AvgIncrease:                 getEnvFloat("STRATEGY_VOLUME_AVG_INCREASE", 3500000),
		VolumeMultiple:              getEnvFloat("STRATEGY_VOLUME_MULTIPLE", 3.5),
		PercentToMaxPriceExceedsMin: getEnvFloat("STRATEGY_PERCENT_TO_MAX_PRICE_EXCEEDS_MIN", 3),
		WithinThreshold:             getEnvFloat("STRATEGY_PERCENT_TO_MAX_PRICE_WITHIN_MIN", 9),
		TimePassed:                  getEnvInt("STRATEGY_TIME_PASSED", 90),
		MinDailyVolume:              getEnvFloat("STRATEGY_MIN_DAILY_VOLUME", 70000000),

		// Application
		UpdateSymbolsCooldown: time.Duration(getEnvInt("UPDATE_SYMBOLS_COOLDOWN", 300)) * time.Second,
		PendingQueueSize:      getEnvInt("PENDING_QUEUE_SIZE", 256),

		// DB
		DbHost:     getEnvString("DB_HOST", "localhost"),
		DbPort:     getEnvInt("DB_PORT", 5432),
		DbUser:     getEnvString("DB_USER", "postgres"),
		DbPassword: getEnvString("DB_PASSWORD", ""),
		DbName:     getEnvString("DB_DATABASE", "alerts"),
		DbSSLMode:  getEnvString("DB_SSLMODE", "disable"),

		// Redis
		RedisEnabled:   getEnvBool("REDIS_ENABLED", false),
		RedisAddr:      getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnvString("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		VolumeCacheTTL: time.Duration(getEnvInt("VOLUME_CACHE_TTL", 30)) * time.Second,

		// Telegram
		TelegramToken:  getEnvString("TG_TOKEN_MAIN_BOT", ""),
		TelegramChatID: getEnvInt64("GROUP_ID", 0),

		// Logging
		LogLevel: getEnvString("LOG_LEVEL", "info"),
		LogFile:  getEnvString("LOG_FILE", "logs/alert_server.log"),
		Debug:    getEnvBool("DEBUG", false),
	}

	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.MaximumKlines < 2 {
		return fmt.Errorf("STRATEGY_MAXIMUM_KLINES must be >= 2, got %d", c.MaximumKlines)
	}
	if c.WsPort <= 0 || c.WsPort > 65535 {
		return fmt.Errorf("invalid WS_PORT: %d", c.WsPort)
	}
	if c.TimePassed <= 0 {
		return fmt.Errorf("STRATEGY_TIME_PASSED must be positive, got %d", c.TimePassed)
	}
	if len(c.SplitLetter) != 1 {
		return fmt.Errorf("STREAM_SPLIT_LETTER must be a single letter, got %q", c.SplitLetter)
	}
	if c.PendingQueueSize <= 0 {
		return fmt.Errorf("PENDING_QUEUE_SIZE must be positive, got %d", c.PendingQueueSize)
	}
	return nil
}

// DSN собирает строку подключения к Postgres
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DbHost, c.DbPort, c.DbUser, c.DbPassword, c.DbName, c.DbSSLMode,
	)
}

// Вспомогательные функции для парсинга переменных окружения
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
