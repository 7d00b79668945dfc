package config

import (
	"log"
	"os"
)

type Config struct {
	MySQLDSN    string
	RedisURL    string
	JWTSecret   string
	GuestSecret string
	Port        string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	return Config{
		MySQLDSN:    getenv("MYSQL_DSN", "dev:test@tcp(localhost:3306)/modboard?parseTime=true"),
		RedisURL:    getenv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:   getenv("JWT_SECRET", ""),
		GuestSecret: getenv("GUEST_SECRET", ""),
		Port:        getenv("PORT", "8080"),
	}
}
