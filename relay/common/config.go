package common

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/ValentinKolb/kvRelay/lib/store/rstore"
)

// ErrStartupConfig is wrapped by every configuration error that must stop the relay before it listens
var ErrStartupConfig = errors.New("invalid startup configuration")

// --------------------------------------------------------------------------
// helper functions to interface with the redis store
// --------------------------------------------------------------------------

// ToRedisOptions converts the store configuration to rstore options.
// onStateChange is passed through as the state transition hook (may be nil).
func (c *ServerConfig) ToRedisOptions(onStateChange func(from, to store.ConnState)) rstore.Options {
	return rstore.Options{
		Addr:           c.Store.RedisAddr(),
		Username:       c.Store.RedisUsername,
		Password:       c.Store.RedisPassword,
		DB:             c.Store.RedisDB,
		ConnectTimeout: time.Duration(c.Store.ConnectTimeoutSecond) * time.Second,
		MaxRetries:     c.Store.MaxRetries,
		BackoffBase:    time.Duration(c.Store.BackoffBaseMillisecond) * time.Millisecond,
		BackoffCeiling: time.Duration(c.Store.BackoffCeilingMillisecond) * time.Millisecond,
		HealthInterval: time.Duration(c.Store.HealthIntervalSecond) * time.Second,
		FailAfter:      c.Store.FailAfter,
		ScanCount:      int64(c.Store.ScanCount),
		MaxScanKeys:    c.Store.SearchMaxKeys,
		OnStateChange:  onStateChange,
	}
}

// --------------------------------------------------------------------------
// Relay server configuration struct
// --------------------------------------------------------------------------

type TransportType string

const (
	TransportWebSocket TransportType = "ws"
	TransportTCP       TransportType = "tcp"
)

type StoreType string

const (
	StoreRedis  StoreType = "redis"
	StoreMemory StoreType = "memory"
)

// ServerTransportConf holds the settings of the client facing transport
type ServerTransportConf struct {
	Type TransportType
	// MaxInflightPerConn bounds the concurrently processed messages of one connection (0 = unbounded)
	MaxInflightPerConn int
	// MaxMessageBytes is the largest accepted client message
	MaxMessageBytes int
	// PingIntervalSecond enables websocket keepalive pings (0 = disabled)
	PingIntervalSecond int
	// AllowedOrigins restricts the Origin header of websocket upgrades (empty = any origin)
	AllowedOrigins []string
}

// StoreConf holds the settings of the backing store
type StoreConf struct {
	Type StoreType

	RedisHost     string
	RedisPort     int
	RedisUsername string
	RedisPassword string
	RedisDB       int

	ConnectTimeoutSecond      int
	MaxRetries                int
	BackoffBaseMillisecond    int
	BackoffCeilingMillisecond int
	HealthIntervalSecond      int
	FailAfter                 int

	ScanCount     int
	SearchMaxKeys int
}

// RedisAddr returns host:port of the redis server
func (c *StoreConf) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// ServerConfig holds all configuration parameters of the relay server.
type ServerConfig struct {
	// Endpoint is the address the client facing transport listens on
	Endpoint  string
	Transport ServerTransportConf
	Store     StoreConf

	// StatusEndpoint is an optional dedicated address for /healthz, /readyz and /metrics
	StatusEndpoint string

	// TimeoutSecond bounds every write to a client (0 = no deadline)
	TimeoutSecond int64

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns the configuration used when no flag is set
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint: "0.0.0.0:8080",
		Transport: ServerTransportConf{
			Type:               TransportWebSocket,
			MaxMessageBytes:    64 * 1024,
			PingIntervalSecond: 30,
		},
		Store: StoreConf{
			Type:                      StoreRedis,
			RedisPort:                 6379,
			ConnectTimeoutSecond:      10,
			MaxRetries:                1,
			BackoffBaseMillisecond:    50,
			BackoffCeilingMillisecond: 2000,
			HealthIntervalSecond:      5,
			FailAfter:                 10,
			ScanCount:                 100,
		},
		TimeoutSecond: 10,
		LogLevel:      "info",
	}
}

// Validate checks the configuration. Every returned error wraps ErrStartupConfig.
func (c *ServerConfig) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrStartupConfig, fmt.Sprintf(format, args...))
	}

	if c.Endpoint == "" {
		return invalid("endpoint is required")
	}
	switch c.Transport.Type {
	case TransportWebSocket, TransportTCP:
	default:
		return invalid("invalid transport %q (expected one of: ws, tcp)", c.Transport.Type)
	}
	if c.Transport.MaxMessageBytes <= 0 {
		return invalid("max message size must be positive")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return invalid("%v", err)
	}

	switch c.Store.Type {
	case StoreMemory:
	case StoreRedis:
		// the relay must not run without a working store link
		if strings.TrimSpace(c.Store.RedisHost) == "" {
			return invalid("redis host is required for the redis store (set --redis-host or REDIS_HOST)")
		}
		if c.Store.RedisPort <= 0 || c.Store.RedisPort > 65535 {
			return invalid("invalid redis port %d", c.Store.RedisPort)
		}
		if c.Store.BackoffBaseMillisecond <= 0 || c.Store.BackoffCeilingMillisecond < c.Store.BackoffBaseMillisecond {
			return invalid("backoff ceiling (%d ms) must be >= backoff base (%d ms) > 0",
				c.Store.BackoffCeilingMillisecond, c.Store.BackoffBaseMillisecond)
		}
	default:
		return invalid("invalid store %q (expected one of: redis, memory)", c.Store.Type)
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Relay settings
	addSection("Relay Server")
	addField("Endpoint", c.Endpoint)
	addField("Transport", string(c.Transport.Type))
	addField("Write Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Message Size", fmt.Sprintf("%d bytes", c.Transport.MaxMessageBytes))
	if c.Transport.MaxInflightPerConn > 0 {
		addField("Max Inflight/Conn", strconv.Itoa(c.Transport.MaxInflightPerConn))
	} else {
		addField("Max Inflight/Conn", "unbounded")
	}
	if c.Transport.Type == TransportWebSocket {
		addField("Ping Interval", fmt.Sprintf("%d sec", c.Transport.PingIntervalSecond))
		if len(c.Transport.AllowedOrigins) > 0 {
			addField("Allowed Origins", strings.Join(c.Transport.AllowedOrigins, ", "))
		} else {
			addField("Allowed Origins", "any")
		}
	}
	if c.StatusEndpoint != "" {
		addField("Status Endpoint", c.StatusEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Store
	addSection("Store")
	addField("Type", string(c.Store.Type))
	if c.Store.Type == StoreRedis {
		addField("Address", c.Store.RedisAddr())
		addField("Database", strconv.Itoa(c.Store.RedisDB))
		if c.Store.RedisUsername != "" {
			addField("Username", c.Store.RedisUsername)
		}
		// never print the password itself
		addField("Password", fmt.Sprintf("%t", c.Store.RedisPassword != ""))
		addField("Connect Timeout", fmt.Sprintf("%d sec", c.Store.ConnectTimeoutSecond))
		addField("Backoff", fmt.Sprintf("%d ms steps, max %d ms", c.Store.BackoffBaseMillisecond, c.Store.BackoffCeilingMillisecond))
		addField("Health Interval", fmt.Sprintf("%d sec", c.Store.HealthIntervalSecond))
		addField("Fail After", fmt.Sprintf("%d attempts", c.Store.FailAfter))
		addField("Scan Count", strconv.Itoa(c.Store.ScanCount))
		if c.Store.SearchMaxKeys > 0 {
			addField("Search Max Keys", strconv.Itoa(c.Store.SearchMaxKeys))
		} else {
			addField("Search Max Keys", "unbounded")
		}
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// Relay client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	// Endpoint is a ws:// or wss:// URL for the websocket transport, host:port for tcp
	Endpoint      string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	return sb.String()
}
