package session

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/opencaptable/ocp-solana/captable/client"
	"github.com/opencaptable/ocp-solana/captable/config"
	"github.com/opencaptable/ocp-solana/captable/dispatch"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to a TOML config file (default: $XDG_CONFIG_HOME/" + config.ConfigPath + ")",
	}
	envFileFlag = &cli.StringSliceFlag{
		Name:  "env-file",
		Usage: "Load environment variables from these files",
		Value: cli.NewStringSlice(".env"),
	}
	rpcURLFlag = &cli.StringFlag{
		Name:  "rpc-url",
		Usage: "The URL of the Solana JSON-RPC endpoint",
	}
	wsURLFlag = &cli.StringFlag{
		Name:  "ws-url",
		Usage: "The URL of the Solana websocket endpoint",
	}
	programIDFlag = &cli.StringFlag{
		Name:  "program-id",
		Usage: "The cap table program address",
	}
	commitmentFlag = &cli.StringFlag{
		Name:  "commitment",
		Usage: "Commitment level to wait for (processed|confirmed|finalized)",
	}
	keypairFlag = &cli.StringFlag{
		Name:  "keypair",
		Usage: "Path to the authority keypair written by solana-keygen",
	}
	confirmTimeoutFlag = &cli.DurationFlag{
		Name:  "confirm-timeout",
		Usage: "How long to wait for a transaction to be confirmed",
	}
	rpsFlag = &cli.Float64Flag{
		Name:  "rps",
		Usage: "Maximum RPC requests per second, 0 for no limit",
	}
)

// Flags are the connection flags shared by every command.
var Flags = []cli.Flag{
	configFlag,
	envFileFlag,
	rpcURLFlag,
	wsURLFlag,
	programIDFlag,
	commitmentFlag,
	keypairFlag,
	confirmTimeoutFlag,
	rpsFlag,
}

// Config resolves the configuration: defaults, then the config file, then
// .env files and the environment, then flags.
func Config(c *cli.Context) (config.Config, error) {
	err := config.LoadDotEnv(c.StringSlice(envFileFlag.Name)...)
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return config.Config{}, err
	}

	err = cfg.ApplyEnv()
	if err != nil {
		return config.Config{}, err
	}

	str := func(f *cli.StringFlag, dst *string) {
		if c.IsSet(f.Name) {
			*dst = c.String(f.Name)
		}
	}
	str(rpcURLFlag, &cfg.RPCURL)
	str(wsURLFlag, &cfg.WSURL)
	str(programIDFlag, &cfg.ProgramID)
	str(commitmentFlag, &cfg.Commitment)
	str(keypairFlag, &cfg.Keypair)
	if c.IsSet(confirmTimeoutFlag.Name) {
		cfg.ConfirmTimeout = c.Duration(confirmTimeoutFlag.Name)
	}
	if c.IsSet(rpsFlag.Name) {
		cfg.RequestsPerSecond = c.Float64(rpsFlag.Name)
	}

	err = cfg.Validate()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

type Session struct {
	Config config.Config
	Client *client.Client
	rpc    *rpc.Client
}

// Open connects with the configured authority keypair.
func Open(c *cli.Context) (*Session, error) {
	cfg, err := Config(c)
	if err != nil {
		return nil, err
	}

	signer, err := dispatch.LoadKeypairSigner(cfg.KeypairFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load authority: %w", err)
	}

	return open(cfg, signer)
}

// OpenReadOnly connects for account queries. The keypair is used when it
// exists but is not required.
func OpenReadOnly(c *cli.Context) (*Session, error) {
	cfg, err := Config(c)
	if err != nil {
		return nil, err
	}

	var signer dispatch.Signer = readOnly{}
	loaded, err := dispatch.LoadKeypairSigner(cfg.KeypairFile())
	switch {
	case err == nil:
		signer = loaded
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to load authority: %w", err)
	}

	return open(cfg, signer)
}

func open(cfg config.Config, signer dispatch.Signer) (*Session, error) {
	rpcClient := rpc.New(cfg.RPCURL)

	c, err := client.New(cfg, rpcClient, signer)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	log.Debug("connected", "rpc", cfg.RPCURL, "program", cfg.ProgramID, "authority", signer.PublicKey())

	return &Session{
		Config: cfg,
		Client: c,
		rpc:    rpcClient,
	}, nil
}

func (s *Session) Close() {
	err := s.rpc.Close()
	if err != nil {
		log.Debug("failed to close rpc client", "err", err)
	}
}

type readOnly struct{}

func (readOnly) PublicKey() solana.PublicKey {
	return solana.PublicKey{}
}

func (readOnly) Sign(*solana.Transaction) error {
	return errors.New("no keypair configured")
}
