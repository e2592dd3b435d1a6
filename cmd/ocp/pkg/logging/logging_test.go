package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/logging"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newApp(action cli.ActionFunc) *cli.App {
	return &cli.App{
		Name:   "ocp",
		Flags:  logging.Flags,
		Before: logging.Setup,
		After:  logging.Close,
		Action: action,
		Writer: os.Stdout,
	}
}

func keepRootLogger(t *testing.T) {
	prev := log.Root()
	t.Cleanup(func() { log.SetDefault(prev) })
}

func TestLogFileIsWrittenAndClosed(t *testing.T) {
	keepRootLogger(t)
	path := filepath.Join(t.TempDir(), "ocp.log")

	err := newApp(func(*cli.Context) error {
		log.Info("issuer created", "id", "123e4567-e89b-12d3-a456-426614174000")
		return nil
	}).Run([]string{"ocp", "--log.file", path, "--log.format", "logfmt"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "issuer created")
	require.Contains(t, string(data), "123e4567-e89b-12d3-a456-426614174000")

	require.NoError(t, logging.Close(nil))
}

func TestRotatedLogFileIsClosed(t *testing.T) {
	keepRootLogger(t)
	path := filepath.Join(t.TempDir(), "ocp.log")

	err := newApp(func(*cli.Context) error {
		log.Warn("confirmation slow")
		return nil
	}).Run([]string{"ocp", "--log.file", path, "--log.rotate", "--log.format", "json"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"confirmation slow"`)
}

func TestSetupErrors(t *testing.T) {
	keepRootLogger(t)
	noop := func(*cli.Context) error { return nil }

	err := newApp(noop).Run([]string{"ocp", "--log.rotate"})
	require.ErrorContains(t, err, "--log.rotate requires --log.file")

	err = newApp(noop).Run([]string{"ocp", "--log.format", "xml"})
	require.ErrorContains(t, err, "unknown log format: xml")
}
