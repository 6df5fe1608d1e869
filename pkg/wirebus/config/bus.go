package config

import (
	"fmt"
	"net"

	"github.com/caarlos0/env/v11"

	"github.com/randalmurphal/wirebus/pkg/wirebus"
)

// Config keys recognized for publisher settings (under the "publisher" map
// when loading a whole file) and subscriber settings ("subscriber" map).
const (
	keyBindAddr        = "bind_addr"
	keyChannelCapacity = "channel_capacity"
	keyMaxConnections  = "max_connections"

	keyPublisherAddr  = "publisher_addr"
	keyTopics         = "topics"
	keyReconnectDelay = "reconnect_delay"
	keyAutoReconnect  = "auto_reconnect"
	keyBufferCapacity = "buffer_capacity"
)

// PublisherFrom extracts and validates a PublisherConfig from cfg.
// Missing keys take the bus defaults.
func PublisherFrom(cfg Config) (wirebus.PublisherConfig, error) {
	def := wirebus.DefaultPublisherConfig()
	pc := wirebus.PublisherConfig{
		BindAddr:        cfg.String(keyBindAddr, def.BindAddr),
		ChannelCapacity: cfg.Int(keyChannelCapacity, def.ChannelCapacity),
		MaxConnections:  cfg.Int(keyMaxConnections, def.MaxConnections),
	}
	if err := validateAddr(pc.BindAddr); err != nil {
		return wirebus.PublisherConfig{}, err
	}
	if pc.ChannelCapacity <= 0 {
		return wirebus.PublisherConfig{}, fmt.Errorf("channel_capacity must be positive, got %d", pc.ChannelCapacity)
	}
	if pc.MaxConnections <= 0 {
		return wirebus.PublisherConfig{}, fmt.Errorf("max_connections must be positive, got %d", pc.MaxConnections)
	}
	return pc, nil
}

// SubscriberFrom extracts and validates a SubscriberConfig from cfg.
// Missing keys take the bus defaults; publisher_addr is required.
func SubscriberFrom(cfg Config) (wirebus.SubscriberConfig, error) {
	def := wirebus.DefaultSubscriberConfig()
	sc := wirebus.SubscriberConfig{
		PublisherAddr:  cfg.String(keyPublisherAddr, ""),
		Topics:         cfg.StringSlice(keyTopics, nil),
		ReconnectDelay: cfg.Duration(keyReconnectDelay, def.ReconnectDelay),
		AutoReconnect:  cfg.Bool(keyAutoReconnect, def.AutoReconnect),
		BufferCapacity: cfg.Int(keyBufferCapacity, def.BufferCapacity),
	}
	if sc.PublisherAddr == "" {
		return wirebus.SubscriberConfig{}, fmt.Errorf("publisher_addr is required")
	}
	if err := validateAddr(sc.PublisherAddr); err != nil {
		return wirebus.SubscriberConfig{}, err
	}
	for _, t := range sc.Topics {
		if err := validatePattern(t); err != nil {
			return wirebus.SubscriberConfig{}, err
		}
	}
	if sc.BufferCapacity <= 0 {
		return wirebus.SubscriberConfig{}, fmt.Errorf("buffer_capacity must be positive, got %d", sc.BufferCapacity)
	}
	return sc, nil
}

// publisherEnv maps environment variables onto publisher settings.
type publisherEnv struct {
	BindAddr        string `env:"WIREBUS_BIND_ADDR" envDefault:"127.0.0.1:0"`
	ChannelCapacity int    `env:"WIREBUS_CHANNEL_CAPACITY" envDefault:"1024"`
	MaxConnections  int    `env:"WIREBUS_MAX_CONNECTIONS" envDefault:"100"`
}

// subscriberEnv maps environment variables onto subscriber settings.
// Topics is a comma-separated list of patterns.
type subscriberEnv struct {
	PublisherAddr  string   `env:"WIREBUS_PUBLISHER_ADDR,required"`
	Topics         []string `env:"WIREBUS_TOPICS" envSeparator:","`
	ReconnectDelay string   `env:"WIREBUS_RECONNECT_DELAY" envDefault:"1s"`
	AutoReconnect  bool     `env:"WIREBUS_AUTO_RECONNECT" envDefault:"true"`
	BufferCapacity int      `env:"WIREBUS_BUFFER_CAPACITY" envDefault:"256"`
}

// PublisherFromEnv builds a PublisherConfig from WIREBUS_* environment
// variables.
func PublisherFromEnv() (wirebus.PublisherConfig, error) {
	var e publisherEnv
	if err := env.Parse(&e); err != nil {
		return wirebus.PublisherConfig{}, fmt.Errorf("parse environment: %w", err)
	}
	return PublisherFrom(New(map[string]any{
		keyBindAddr:        e.BindAddr,
		keyChannelCapacity: e.ChannelCapacity,
		keyMaxConnections:  e.MaxConnections,
	}))
}

// SubscriberFromEnv builds a SubscriberConfig from WIREBUS_* environment
// variables.
func SubscriberFromEnv() (wirebus.SubscriberConfig, error) {
	var e subscriberEnv
	if err := env.Parse(&e); err != nil {
		return wirebus.SubscriberConfig{}, fmt.Errorf("parse environment: %w", err)
	}
	return SubscriberFrom(New(map[string]any{
		keyPublisherAddr:  e.PublisherAddr,
		keyTopics:         e.Topics,
		keyReconnectDelay: e.ReconnectDelay,
		keyAutoReconnect:  e.AutoReconnect,
		keyBufferCapacity: e.BufferCapacity,
	}))
}

// validateAddr checks that addr parses as host:port.
func validateAddr(addr string) error {
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return nil
}

// validatePattern checks a topic pattern: "*", "prefix.*", or a plain topic.
func validatePattern(pattern string) error {
	if pattern == "*" {
		return nil
	}
	topic := pattern
	if len(pattern) > 2 && pattern[len(pattern)-2:] == ".*" {
		topic = pattern[:len(pattern)-2]
	}
	if err := wirebus.ValidateTopic(topic); err != nil {
		return fmt.Errorf("invalid topic pattern %q: %w", pattern, err)
	}
	return nil
}
