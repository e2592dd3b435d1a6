// Package config resolves client settings from defaults, a TOML file, the
// environment and a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/opencaptable/ocp-solana/captable/address"
)

const (
	ConfigPath  = "ocp/config.toml"
	KeypairPath = "solana/id.json"
)

// Environment variables. The ANCHOR_ names are the ones the Anchor tool
// chain exports.
const (
	EnvRPCURL            = "ANCHOR_PROVIDER_URL"
	EnvWallet            = "ANCHOR_WALLET"
	EnvWSURL             = "OCP_WS_URL"
	EnvProgramID         = "OCP_PROGRAM_ID"
	EnvCommitment        = "OCP_COMMITMENT"
	EnvConfirmTimeout    = "OCP_CONFIRM_TIMEOUT"
	EnvRequestsPerSecond = "OCP_RPS"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	RPCURL     string `toml:"rpc_url"`
	// WSURL defaults to the websocket endpoint next to RPCURL.
	WSURL      string `toml:"ws_url"`
	ProgramID  string `toml:"program_id"`
	Commitment string `toml:"commitment"`
	Keypair    string `toml:"keypair"`

	ConfirmTimeout    time.Duration `toml:"confirm_timeout"`
	PollInterval      time.Duration `toml:"poll_interval"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	// Concurrency bounds batch operations.
	Concurrency int `toml:"concurrency"`
}

func Default() Config {
	return Config{
		RPCURL:         rpc.LocalNet_RPC,
		ProgramID:      address.DefaultProgramID.String(),
		Commitment:     string(rpc.CommitmentConfirmed),
		ConfirmTimeout: 90 * time.Second,
		PollInterval:   500 * time.Millisecond,
		Concurrency:    4,
	}
}

// Load reads the TOML file at path over the defaults. An empty path looks
// for ocp/config.toml in the XDG config directories and is not an error
// when none exists.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		found, err := xdg.SearchConfigFile(ConfigPath)
		if err != nil {
			return cfg, nil
		}
		path = found
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown keys in %s: %v", ErrInvalidConfig, path, undecoded)
	}

	return cfg, nil
}

// LoadDotEnv loads the given .env files into the process environment
// without overriding variables that are already set. Missing files are
// skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with the values set in the environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str(EnvRPCURL, &c.RPCURL)
	str(EnvWSURL, &c.WSURL)
	str(EnvWallet, &c.Keypair)
	str(EnvProgramID, &c.ProgramID)
	str(EnvCommitment, &c.Commitment)

	if v, ok := lookup(EnvConfirmTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvConfirmTimeout, err)
		}
		c.ConfirmTimeout = d
	}
	if v, ok := lookup(EnvRequestsPerSecond); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvRequestsPerSecond, err)
		}
		c.RequestsPerSecond = rps
	}
	return nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.RPCURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: rpc url %q", ErrInvalidConfig, c.RPCURL)
	}
	if _, err := c.ProgramPublicKey(); err != nil {
		return err
	}
	switch rpc.CommitmentType(c.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("%w: commitment %q", ErrInvalidConfig, c.Commitment)
	}
	if c.ConfirmTimeout <= 0 || c.PollInterval <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: negative requests per second", ErrInvalidConfig)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func (c Config) ProgramPublicKey() (solana.PublicKey, error) {
	if c.ProgramID == "" {
		return address.DefaultProgramID, nil
	}
	pk, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: program id %q: %v", ErrInvalidConfig, c.ProgramID, err)
	}
	return pk, nil
}

func (c Config) CommitmentType() rpc.CommitmentType {
	return rpc.CommitmentType(c.Commitment)
}

// WebsocketURL returns WSURL, or derives it from RPCURL the way validators
// expose pubsub: ws scheme, port one above the RPC port.
func (c Config) WebsocketURL() (string, error) {
	if c.WSURL != "" {
		return c.WSURL, nil
	}

	u, err := url.Parse(c.RPCURL)
	if err != nil {
		return "", fmt.Errorf("%w: rpc url %q", ErrInvalidConfig, c.RPCURL)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: rpc url %q", ErrInvalidConfig, c.RPCURL)
	}

	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return "", fmt.Errorf("%w: rpc port %q", ErrInvalidConfig, port)
		}
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(n+1))
	}

	return u.String(), nil
}

// KeypairFile returns the signer keypair path, defaulting to the Solana
// CLI keypair under the XDG config home.
func (c Config) KeypairFile() string {
	if c.Keypair == "" {
		return filepath.Join(xdg.ConfigHome, KeypairPath)
	}
	if strings.HasPrefix(c.Keypair, "~/") {
		return filepath.Join(xdg.Home, c.Keypair[2:])
	}
	return c.Keypair
}
