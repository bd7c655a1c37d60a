package serve

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/kvRelay/cmd/util"
	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/ValentinKolb/kvRelay/lib/store/lstore"
	"github.com/ValentinKolb/kvRelay/lib/store/rstore"
	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/metrics"
	"github.com/ValentinKolb/kvRelay/relay/serializer"
	"github.com/ValentinKolb/kvRelay/relay/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Long: `Start the relay server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is KVRELAY_<flag> (e.g. KVRELAY_REDIS_HOST=localhost).

The variables REDIS_HOST, REDIS_PASSWORD and PORT are honoured as well: PORT replaces the port of the endpoint unless the endpoint is set explicitly.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

// envAliases maps flags to additional environment variables that set them
var envAliases = map[string]string{
	"redis-host":     "REDIS_HOST",
	"redis-password": "REDIS_PASSWORD",
}

func init() {
	defaults := common.DefaultServerConfig()

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Endpoint, cmdUtil.WrapString("The address on which the relay will listen (host:port)"))

	key = "store"
	ServeCmd.PersistentFlags().String(key, string(defaults.Store.Type), cmdUtil.WrapString("The backing store (redis, memory). The memory store is meant for development"))

	key = "redis-host"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Host of the redis server (required for the redis store)"))

	key = "redis-port"
	ServeCmd.PersistentFlags().Int(key, defaults.Store.RedisPort, cmdUtil.WrapString("Port of the redis server"))

	key = "redis-username"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Username for redis ACL authentication"))

	key = "redis-password"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Password of the redis server"))

	key = "redis-db"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Redis database number"))

	key = "redis-connect-timeout"
	ServeCmd.PersistentFlags().Int(key, defaults.Store.ConnectTimeoutSecond, cmdUtil.WrapString("Timeout in seconds of a single connection attempt"))

	key = "backoff-base-ms"
	ServeCmd.PersistentFlags().Int(key, defaults.Store.BackoffBaseMillisecond, cmdUtil.WrapString("The delay before reconnect attempt n is n times this value (in milliseconds)"))

	key = "backoff-ceiling-ms"
	ServeCmd.PersistentFlags().Int(key, defaults.Store.BackoffCeilingMillisecond, cmdUtil.WrapString("The maximum delay between reconnect attempts (in milliseconds)"))

	key = "health-interval"
	ServeCmd.PersistentFlags().Int(key, defaults.Store.HealthIntervalSecond, cmdUtil.WrapString("Interval in seconds of the health check while connected"))

	key = "fail-after"
	ServeCmd.PersistentFlags().Int(key, defaults.Store.FailAfter, cmdUtil.WrapString("Number of consecutive failed attempts after which the store reports failed. Reconnecting continues"))

	key = "scan-count"
	ServeCmd.PersistentFlags().Int(key, defaults.Store.ScanCount, cmdUtil.WrapString("COUNT hint of each SCAN call of a search"))

	key = "search-max-keys"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Maximum number of keys a search enumerates (0 = unbounded)"))

	key = "max-inflight-per-conn"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Maximum number of concurrently processed messages per connection (0 = unbounded)"))

	key = "max-message-kb"
	ServeCmd.PersistentFlags().Int(key, defaults.Transport.MaxMessageBytes/1024, cmdUtil.WrapString("Maximum size of a client message in KB"))

	key = "ping-interval"
	ServeCmd.PersistentFlags().Int(key, defaults.Transport.PingIntervalSecond, cmdUtil.WrapString("Interval in seconds of websocket keepalive pings (0 = disabled)"))

	key = "allowed-origins"
	ServeCmd.PersistentFlags().StringSlice(key, nil, cmdUtil.WrapString("Comma-separated list of origins allowed to open websocket connections (empty = any)"))

	key = "status-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Dedicated address for /healthz, /readyz and /metrics. If empty they are served by the ws transport"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, defaults.TimeoutSecond, cmdUtil.WrapString("Write timeout in seconds for replies"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// the prefixed variable wins over the alias
	for key, alias := range envAliases {
		envName := strings.ToUpper(cmdUtil.EnvPrefix + "_" + strings.ReplaceAll(key, "-", "_"))
		if err := viper.BindEnv(key, envName, alias); err != nil {
			return err
		}
	}

	// read the configuration from the command line flags and environment variables
	*serveCmdConfig = common.DefaultServerConfig()
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport.Type = common.TransportType(viper.GetString("transport"))
	serveCmdConfig.Transport.MaxInflightPerConn = viper.GetInt("max-inflight-per-conn")
	serveCmdConfig.Transport.MaxMessageBytes = viper.GetInt("max-message-kb") * 1024
	serveCmdConfig.Transport.PingIntervalSecond = viper.GetInt("ping-interval")
	serveCmdConfig.Transport.AllowedOrigins = viper.GetStringSlice("allowed-origins")
	serveCmdConfig.Store.Type = common.StoreType(viper.GetString("store"))
	serveCmdConfig.Store.RedisHost = viper.GetString("redis-host")
	serveCmdConfig.Store.RedisPort = viper.GetInt("redis-port")
	serveCmdConfig.Store.RedisUsername = viper.GetString("redis-username")
	serveCmdConfig.Store.RedisPassword = viper.GetString("redis-password")
	serveCmdConfig.Store.RedisDB = viper.GetInt("redis-db")
	serveCmdConfig.Store.ConnectTimeoutSecond = viper.GetInt("redis-connect-timeout")
	serveCmdConfig.Store.BackoffBaseMillisecond = viper.GetInt("backoff-base-ms")
	serveCmdConfig.Store.BackoffCeilingMillisecond = viper.GetInt("backoff-ceiling-ms")
	serveCmdConfig.Store.HealthIntervalSecond = viper.GetInt("health-interval")
	serveCmdConfig.Store.FailAfter = viper.GetInt("fail-after")
	serveCmdConfig.Store.ScanCount = viper.GetInt("scan-count")
	serveCmdConfig.Store.SearchMaxKeys = viper.GetInt("search-max-keys")
	serveCmdConfig.StatusEndpoint = viper.GetString("status-endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// PORT only applies when the endpoint was not set explicitly
	if port := os.Getenv("PORT"); port != "" && !cmd.Flags().Changed("endpoint") && os.Getenv("KVRELAY_ENDPOINT") == "" {
		endpoint, err := withPort(serveCmdConfig.Endpoint, port)
		if err != nil {
			return err
		}
		serveCmdConfig.Endpoint = endpoint
	}

	return serveCmdConfig.Validate()
}

// run starts the relay server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	t, err := cmdUtil.GetServerTransport(serveCmdConfig.Transport.Type)
	if err != nil {
		return err
	}

	// the single store shared by all connections
	var s store.IStore
	switch serveCmdConfig.Store.Type {
	case common.StoreRedis:
		s = rstore.NewRedisStore(serveCmdConfig.ToRedisOptions(metrics.StoreStateChanged))
	case common.StoreMemory:
		s = lstore.NewLocalStore()
	default:
		return fmt.Errorf("%w: invalid store %q", common.ErrStartupConfig, serveCmdConfig.Store.Type)
	}

	serv := server.NewRelayServer(
		*serveCmdConfig,
		s,
		t,
		serializer.NewJSONSerializer(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serv.Serve(ctx)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// withPort replaces the port of a host:port endpoint
func withPort(endpoint, port string) (string, error) {
	host, _, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint %q: %v", common.ErrStartupConfig, endpoint, err)
	}
	return net.JoinHostPort(host, port), nil
}
