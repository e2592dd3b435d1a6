package main

import (
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/opencaptable/ocp-solana/cmd/ocp/convertible"
	"github.com/opencaptable/ocp-solana/cmd/ocp/derive"
	"github.com/opencaptable/ocp-solana/cmd/ocp/equitycomp"
	"github.com/opencaptable/ocp-solana/cmd/ocp/issuer"
	"github.com/opencaptable/ocp-solana/cmd/ocp/listen"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/logging"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/session"
	"github.com/opencaptable/ocp-solana/cmd/ocp/stakeholder"
	"github.com/opencaptable/ocp-solana/cmd/ocp/stock"
	"github.com/opencaptable/ocp-solana/cmd/ocp/stockclass"
	"github.com/opencaptable/ocp-solana/cmd/ocp/stockplan"
	"github.com/opencaptable/ocp-solana/cmd/ocp/warrant"
	"github.com/urfave/cli/v2"
)

func main() {

	app := &cli.App{
		Name:  "ocp",
		Usage: "Open Cap Table on Solana",

		Flags:  append(append([]cli.Flag{}, session.Flags...), logging.Flags...),
		Before: logging.Setup,
		After:  logging.Close,

		Commands: []*cli.Command{
			issuer.Issuer(),
			stakeholder.Stakeholder(),
			stockclass.StockClass(),
			stockplan.StockPlan(),
			stock.Stock(),
			convertible.Convertible(),
			warrant.Warrant(),
			equitycomp.EquityComp(),
			listen.Listen(),
			derive.Derive(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Crit("command failed", "err", err)
	}
}
