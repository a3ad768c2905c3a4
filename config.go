package main

import (
	"os"
	"strings"
	"time"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Port     string
	RedisURL string

	CartTTL    time.Duration
	SessionTTL time.Duration

	FraudEngineURL  string
	FraudFailClosed bool

	KafkaBrokers    []string
	OrderEventTopic string

	OrderSNSTopicARN string
}

// LoadConfig reads configuration from environment variables with defaults
// suitable for local development.
func LoadConfig() *Config {
	return &Config{
		Port:             getEnv("PORT", "8085"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379"),
		CartTTL:          time.Hour * 24 * 7,
		SessionTTL:       time.Hour * 24,
		FraudEngineURL:   getEnv("FRAUD_ENGINE_URL", "http://localhost:9010"),
		FraudFailClosed:  getEnv("FRAUD_FAIL_CLOSED", "false") == "true",
		KafkaBrokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrderEventTopic:  getEnv("ORDER_EVENT_TOPIC", "order.placed"),
		OrderSNSTopicARN: os.Getenv("ORDER_SNS_TOPIC_ARN"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
