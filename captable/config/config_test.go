package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	pk, err := cfg.ProgramPublicKey()
	require.NoError(t, err)
	require.Equal(t, address.DefaultProgramID, pk)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "config.toml", `
rpc_url = "https://api.devnet.solana.com"
commitment = "finalized"
confirm_timeout = "30s"
requests_per_second = 5.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://api.devnet.solana.com", cfg.RPCURL)
	require.Equal(t, "finalized", cfg.Commitment)
	require.Equal(t, 30*time.Second, cfg.ConfirmTimeout)
	require.Equal(t, 5.0, cfg.RequestsPerSecond)
	// untouched keys keep their defaults
	require.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "config.toml", `rpc_urll = "http://localhost:8899"`)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_DIRS", t.TempDir())
	xdg.Reload()
	defer xdg.Reload()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvRPCURL:            "http://10.0.0.1:8899",
		EnvWallet:            "/keys/authority.json",
		EnvCommitment:        "processed",
		EnvConfirmTimeout:    "2m",
		EnvRequestsPerSecond: "",
	}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))
	require.Equal(t, "http://10.0.0.1:8899", cfg.RPCURL)
	require.Equal(t, "/keys/authority.json", cfg.KeypairFile())
	require.Equal(t, "processed", cfg.Commitment)
	require.Equal(t, 2*time.Minute, cfg.ConfirmTimeout)
	require.Zero(t, cfg.RequestsPerSecond)

	env[EnvConfirmTimeout] = "soon"
	require.ErrorIs(t, cfg.applyEnv(lookup), ErrInvalidConfig)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "OCP_PROGRAM_ID=11111111111111111111111111111111\n")
	t.Setenv(EnvProgramID, "")
	os.Unsetenv(EnvProgramID)

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	require.Equal(t, "11111111111111111111111111111111", os.Getenv(EnvProgramID))

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	require.Equal(t, "11111111111111111111111111111111", cfg.ProgramID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"bad rpc url", func(c *Config) { c.RPCURL = "localhost:8899" }},
		{"bad program id", func(c *Config) { c.ProgramID = "not-a-key" }},
		{"bad commitment", func(c *Config) { c.Commitment = "max" }},
		{"zero timeout", func(c *Config) { c.ConfirmTimeout = 0 }},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }},
		{"no concurrency", func(c *Config) { c.Concurrency = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		rpc  string
		ws   string
		want string
	}{
		{rpc: "http://127.0.0.1:8899", want: "ws://127.0.0.1:8900"},
		{rpc: "https://api.devnet.solana.com", want: "wss://api.devnet.solana.com"},
		{rpc: "http://localhost:8899", ws: "ws://other:9000", want: "ws://other:9000"},
	}

	for _, tc := range tests {
		cfg := Default()
		cfg.RPCURL = tc.rpc
		cfg.WSURL = tc.ws
		got, err := cfg.WebsocketURL()
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}

func TestKeypairFileDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, filepath.Join(xdg.ConfigHome, "solana", "id.json"), cfg.KeypairFile())
}
