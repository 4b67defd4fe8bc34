package config

import (
	"os"
)

type Config struct {
	HTTPAddr    string
	ObsHTTPAddr string
	DatabaseURL string
	JWTSecret   string
	ServiceName string
	InstanceID  string

	// Optional infrastructure: empty disables the concern.
	RedisAddr    string
	KafkaBrokers string
	NotifyTopic  string

	TracingEnabled bool
	JaegerURL      string
}

func Load() *Config {
	return &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		ObsHTTPAddr:    getEnv("OBS_HTTP_ADDR", ":9090"),
		DatabaseURL:    mustEnv("DATABASE_URL"),
		JWTSecret:      mustEnv("JWT_SECRET"),
		ServiceName:    getEnv("SERVICE_NAME", "pairchat"),
		InstanceID:     getEnv("INSTANCE_ID", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		KafkaBrokers:   getEnv("KAFKA_BROKERS", ""),
		NotifyTopic:    getEnv("KAFKA_NOTIFY_TOPIC", "notifications"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		JaegerURL:      getEnv("JAEGER_URL", ""),
	}
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing required env: " + k)
	}
	return v
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true"
}
