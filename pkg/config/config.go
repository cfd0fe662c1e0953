package config

import (
	"errors"
	"time"
)

// ErrMissingJWTSecret admin tokens cannot be verified without a secret.
var ErrMissingJWTSecret = errors.New("jwt.secret is required")

// Store drivers.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Feed drivers.
const (
	FeedRedis = "redis"
	FeedAMQP  = "amqp"
	FeedNATS  = "nats"
	FeedLocal = "local"
)

// Chat definition chat_service YAML structure
type Chat struct {
	Port  string      `mapstructure:"port"`
	Store StoreConfig `mapstructure:"store"`
	Feed  FeedConfig  `mapstructure:"feed"`
	Chat  ChatConfig  `mapstructure:"chat"`
	JWT   JWTConfig   `mapstructure:"jwt"`
	Pprof PprofConfig `mapstructure:"pprof"`
	Debug bool        `mapstructure:"debug"`
}

// StoreConfig selects the conversation store.
type StoreConfig struct {
	Driver   string         `mapstructure:"driver"`
	MongoDB  DatabaseConfig `mapstructure:"mongo"`
	Postgres DatabaseConfig `mapstructure:"pg"`
	// SQLitePath is a file path or a "file::memory:" DSN.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// FeedConfig selects the change notification transport.
type FeedConfig struct {
	Driver  string      `mapstructure:"driver"`
	Redis   RedisConfig `mapstructure:"redis"`
	AMQPURL string      `mapstructure:"amqp_url"`
	// Exchange is the topic exchange used by the amqp driver.
	Exchange string `mapstructure:"exchange"`
	NATSURL  string `mapstructure:"nats_url"`
}

// ChatConfig tunes the chat behaviour.
type ChatConfig struct {
	Greeting       string          `mapstructure:"greeting"`
	EnforceClosed  *bool           `mapstructure:"enforce_closed"`
	StoreTimeout   time.Duration   `mapstructure:"store_timeout"`
	OutboundBuffer int             `mapstructure:"outbound_buffer"`
	EventBuffer    int             `mapstructure:"event_buffer"`
	PingInterval   time.Duration   `mapstructure:"ping_interval"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// ClosedEnforced reports whether sends to closed conversations are rejected, true unless disabled.
func (c ChatConfig) ClosedEnforced() bool {
	return c.EnforceClosed == nil || *c.EnforceClosed
}

// RateLimitConfig limits visitor sends per session.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	MessagesPerMinute int  `mapstructure:"messages_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// JWTConfig definition admin token setting
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// PprofConfig definition pprof listener
type PprofConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// RedisConfig definition redis setting.
// Addr connects to a single node, otherwise the sentinel settings from .env are used.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	RedisDB  int    `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// DefaultGreeting is seeded as the first admin message of every conversation.
const DefaultGreeting = "Hi {name}, thanks for reaching out! An agent will reply shortly."

// ApplyDefaults fills zero values.
func (c *Chat) ApplyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMongo
	}
	if c.Feed.Driver == "" {
		c.Feed.Driver = FeedRedis
	}
	if c.Feed.Exchange == "" {
		c.Feed.Exchange = "support_chat.events"
	}
	if c.Chat.EnforceClosed == nil {
		enforce := true
		c.Chat.EnforceClosed = &enforce
	}
	if c.Chat.Greeting == "" {
		c.Chat.Greeting = DefaultGreeting
	}
	if c.Chat.StoreTimeout <= 0 {
		c.Chat.StoreTimeout = 5 * time.Second
	}
	if c.Chat.OutboundBuffer <= 0 {
		c.Chat.OutboundBuffer = 64
	}
	if c.Chat.EventBuffer <= 0 {
		c.Chat.EventBuffer = 128
	}
	if c.Chat.PingInterval <= 0 {
		c.Chat.PingInterval = 30 * time.Second
	}
	if c.Chat.RateLimit.MessagesPerMinute <= 0 {
		c.Chat.RateLimit.MessagesPerMinute = 20
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "support_chat_service"
	}
	if c.Pprof.Addr == "" {
		c.Pprof.Addr = "127.0.0.1:6060"
	}
}

// Validate rejects settings the service cannot start with.
func (c *Chat) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}
