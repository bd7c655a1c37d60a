package serve

import (
	"errors"
	"testing"

	cmdUtil "github.com/ValentinKolb/kvRelay/cmd/util"
	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/spf13/viper"
)

// setupViper resets the global viper state and parses no flags, so every flag has its default
func setupViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cmdUtil.InitConfig()
	viper.SetDefault("transport", "ws")

	for _, name := range []string{"KVRELAY_REDIS_HOST", "KVRELAY_REDIS_PASSWORD", "KVRELAY_ENDPOINT", "KVRELAY_STORE", "REDIS_HOST", "REDIS_PASSWORD", "PORT"} {
		t.Setenv(name, "")
	}

	if err := ServeCmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
}

func TestProcessConfigEnvAliases(t *testing.T) {
	setupViper(t)
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("PORT", "9000")

	if err := processConfig(ServeCmd, nil); err != nil {
		t.Fatalf("processConfig failed: %v", err)
	}

	if got := serveCmdConfig.Store.RedisHost; got != "redis.internal" {
		t.Errorf("Expected redis host from REDIS_HOST, got %q", got)
	}
	if got := serveCmdConfig.Store.RedisPassword; got != "secret" {
		t.Errorf("Expected redis password from REDIS_PASSWORD, got %q", got)
	}
	if got := serveCmdConfig.Endpoint; got != "0.0.0.0:9000" {
		t.Errorf("Expected endpoint with the port from PORT, got %q", got)
	}
	if got := serveCmdConfig.Store.RedisAddr(); got != "redis.internal:6379" {
		t.Errorf("Expected default redis port, got %q", got)
	}
}

func TestProcessConfigPrefixedWins(t *testing.T) {
	setupViper(t)
	t.Setenv("REDIS_HOST", "alias")
	t.Setenv("KVRELAY_REDIS_HOST", "prefixed")

	if err := processConfig(ServeCmd, nil); err != nil {
		t.Fatalf("processConfig failed: %v", err)
	}
	if got := serveCmdConfig.Store.RedisHost; got != "prefixed" {
		t.Errorf("Expected the prefixed variable to win, got %q", got)
	}
}

func TestProcessConfigMissingRedisHost(t *testing.T) {
	setupViper(t)

	err := processConfig(ServeCmd, nil)
	if !errors.Is(err, common.ErrStartupConfig) {
		t.Fatalf("Expected a startup config error, got %v", err)
	}
}

func TestProcessConfigMemoryStore(t *testing.T) {
	setupViper(t)
	t.Setenv("KVRELAY_STORE", "memory")

	if err := processConfig(ServeCmd, nil); err != nil {
		t.Fatalf("processConfig failed: %v", err)
	}
	if serveCmdConfig.Store.Type != common.StoreMemory {
		t.Errorf("Expected memory store, got %q", serveCmdConfig.Store.Type)
	}
}

func TestWithPort(t *testing.T) {
	got, err := withPort("127.0.0.1:8080", "9999")
	if err != nil || got != "127.0.0.1:9999" {
		t.Errorf("Expected 127.0.0.1:9999, got %q (%v)", got, err)
	}
	if _, err := withPort("no-port", "1"); !errors.Is(err, common.ErrStartupConfig) {
		t.Errorf("Expected a startup config error, got %v", err)
	}
}
