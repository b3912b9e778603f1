package config

import (
	"os"
	"strconv"
)

// Config holds all runtime settings, loaded from the environment with
// sensible defaults for local use.
type Config struct {
	Addr     string
	Storage  string // "file" or "mysql"
	DataFile string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisAddr string

	AdminPassword string
	JWTSecret     string

	GSTRate           float64 // percent, fallback when a product has no rate
	PointsRatio       float64 // currency spent to earn one point
	PointsValue       float64 // currency value of one redeemed point
	LowStockThreshold int     // advisory only, never blocks checkout
}

func Load() *Config {
	return &Config{
		Addr:     getenv("ADDR", ":8000"),
		Storage:  getenv("STORAGE", "file"),
		DataFile: getenv("DATA_FILE", "data.json"),

		DBHost: getenv("DB_HOST", "127.0.0.1"),
		DBPort: getenv("DB_PORT", "3306"),
		DBUser: getenv("DB_USER", "root"),
		DBPass: os.Getenv("DB_PASS"),
		DBName: getenv("DB_NAME", "shop_billing"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		AdminPassword: getenv("ADMIN_PASSWORD", "admin"),
		JWTSecret:     getenv("JWT_SECRET", "secret"),

		GSTRate:           getfloat("GST_RATE", 5),
		PointsRatio:       getfloat("POINTS_RATIO", 100),
		PointsValue:       getfloat("POINTS_VALUE", 1),
		LowStockThreshold: getint("LOW_STOCK_THRESHOLD", 10),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
