package config

import (
	"encoding/base64"
	"fmt"
)

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string

	// RedisAddr selects the cross-process broadcast broker. Empty means
	// the in-process broker, which only fans out within one server.
	RedisAddr string

	// KafkaBrokers/KafkaTopic configure the search-index event stream.
	// Empty brokers disable it.
	KafkaBrokers []string
	KafkaTopic   string

	// PushEnabled gates push notifications for new messages.
	PushEnabled bool
	ExpoPushURL string
}

const defaultExpoPushURL = "https://exp.host/--/api/v2/push/send"

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string, opts ...Option) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	cfg := &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		ExpoPushURL:    defaultExpoPushURL,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("kafka brokers set but topic is empty")
	}

	return cfg, nil
}

type Option func(*Config)

func WithRedis(addr string) Option {
	return func(c *Config) { c.RedisAddr = addr }
}

func WithKafka(brokers []string, topic string) Option {
	return func(c *Config) {
		c.KafkaBrokers = brokers
		c.KafkaTopic = topic
	}
}

func WithPush(enabled bool, url string) Option {
	return func(c *Config) {
		c.PushEnabled = enabled
		if url != "" {
			c.ExpoPushURL = url
		}
	}
}
