// Command quotectl runs the quote engine from the command line.
package main

import (
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/cardmachinequote/quote-engine/internal/app"
	"github.com/cardmachinequote/quote-engine/internal/config"
	"github.com/cardmachinequote/quote-engine/internal/pkg/logger"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("quotectl failed")
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "quotectl",
		Usage:   "price card machine statements against the rate table",
		Version: app.Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rates", Usage: "rate table YAML file", EnvVars: []string{"RATES_FILE"}},
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"LOG_LEVEL"}},
		},
		Before: func(c *cli.Context) error {
			logger.InitWriter(os.Stderr, c.String("log-level"), "console")
			return nil
		},
		Commands: []*cli.Command{
			analyseCommand(),
			priceCommand(),
			tiersCommand(),
		},
	}
}

// loadConfig reads the environment and applies global flag overrides.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()
	if c.IsSet("rates") {
		cfg.RatesFile = c.String("rates")
	}
	return cfg
}
