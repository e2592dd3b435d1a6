package derive

import (
	"fmt"
	"strings"

	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/session"
	"github.com/urfave/cli/v2"
)

func namespaces() string {
	names := make([]string, len(address.Namespaces))
	for i, ns := range address.Namespaces {
		names[i] = string(ns)
	}
	return strings.Join(names, ", ")
}

// Derive prints the program address of an account without touching the
// network.
func Derive() *cli.Command {
	return &cli.Command{
		Name:      "derive",
		Usage:     "Compute the address of a cap table account",
		ArgsUsage: "<namespace> <id>...",
		Description: "Namespaces: " + namespaces() + ".\n" +
			"Ids are given in seed order, e.g. stock_position <stakeholder id> <security id>.",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("expected a namespace and at least one id")
			}

			ns, err := address.ParseNamespace(c.Args().First())
			if err != nil {
				return err
			}

			ids := make([]ident.BinaryID, c.NArg()-1)
			for i, s := range c.Args().Tail() {
				ids[i], err = ident.ToBinaryID(s)
				if err != nil {
					return fmt.Errorf("id %d: %w", i+1, err)
				}
			}

			cfg, err := session.Config(c)
			if err != nil {
				return err
			}
			programID, err := cfg.ProgramPublicKey()
			if err != nil {
				return err
			}

			derived, err := address.NewDeriver(programID).Derive(ns, ids...)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, derived.Address)
			fmt.Fprintln(c.App.Writer, "bump", derived.Bump)
			return nil
		},
	}
}
