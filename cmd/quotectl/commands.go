package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/cardmachinequote/quote-engine/internal/adapters/ocr"
	"github.com/cardmachinequote/quote-engine/internal/app"
	"github.com/cardmachinequote/quote-engine/internal/config"
	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/usecase"
)

func terminalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "terminal-option", Value: "none", Usage: "none, monthly or buyout"},
		&cli.IntFlag{Name: "terminals", Value: 1, Usage: "number of terminals"},
	}
}

func analyseCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyse",
		Usage:     "extract, reconcile and price a statement file",
		ArgsUsage: "<statement>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "business", Usage: "business name"},
			&cli.StringFlag{Name: "email", Usage: "merchant email"},
			&cli.BoolFlag{Name: "notify", Usage: "mail the result to the quotes inbox when SMTP is configured"},
		}, terminalFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("analyse needs exactly one statement file", 2)
			}
			path := c.Args().First()
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read statement: %w", err)
			}
			opt, err := domain.ParseTerminalOption(c.String("terminal-option"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			cfg := loadConfig(c)
			if !c.Bool("notify") {
				cfg.SMTPHost = ""
			}
			eng, err := app.Build(c.Context, cfg)
			if err != nil {
				return err
			}
			defer eng.Shutdown(c.Context)

			doc := domain.Document{Name: filepath.Base(path), Data: data}
			doc.ContentType = ocr.ContentType(doc)

			res := eng.Service.Analyse(c.Context, usecase.AnalyseRequest{
				Document:       doc,
				BusinessName:   c.String("business"),
				UserEmail:      c.String("email"),
				TerminalOption: opt,
				TerminalsCount: c.Int("terminals"),
			})
			return writeJSON(c, res)
		},
	}
}

func priceCommand() *cli.Command {
	return &cli.Command{
		Name:  "price",
		Usage: "price hand-entered monthly figures",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "turnover", Required: true, Usage: "monthly card turnover"},
			&cli.StringFlag{Name: "fees", Usage: "current total monthly fees"},
			&cli.StringFlag{Name: "fixed", Value: "0", Usage: "current fixed monthly fees"},
			&cli.StringFlag{Name: "debit", Value: "0"},
			&cli.StringFlag{Name: "credit", Value: "0"},
			&cli.StringFlag{Name: "business-cards", Value: "0"},
			&cli.StringFlag{Name: "international", Value: "0"},
			&cli.StringFlag{Name: "amex", Value: "0"},
			&cli.Int64Flag{Name: "tx", Usage: "monthly transaction count"},
			&cli.StringFlag{Name: "provider", Usage: "current provider name"},
		}, terminalFlags()...),
		Action: func(c *cli.Context) error {
			in, err := priceInputs(c)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			cfg := loadConfig(c)
			cfg.AIProvider = "none"
			cfg.SMTPHost = ""
			eng, err := app.Build(c.Context, cfg)
			if err != nil {
				return err
			}
			defer eng.Shutdown(c.Context)

			res := eng.Service.Quote(c.Context, usecase.QuoteRequest{
				Inputs:       in,
				ProviderName: c.String("provider"),
			})
			return writeJSON(c, res)
		},
	}
}

func priceInputs(c *cli.Context) (domain.QuoteInputs, error) {
	amount := func(flag string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(c.String(flag))
		if err != nil {
			return decimal.Zero, fmt.Errorf("--%s: %w", flag, err)
		}
		if d.IsNegative() {
			return decimal.Zero, fmt.Errorf("--%s must not be negative", flag)
		}
		return d, nil
	}

	var errs []error
	get := func(flag string) decimal.Decimal {
		d, err := amount(flag)
		errs = append(errs, err)
		return d
	}
	in := domain.QuoteInputs{
		MonthTurnover:       get("turnover"),
		CurrentFixedMonthly: get("fixed"),
		Mix: domain.Mix{
			Debit:         get("debit"),
			Credit:        get("credit"),
			Business:      get("business-cards"),
			International: get("international"),
			Amex:          get("amex"),
			TxCount:       c.Int64("tx"),
		},
		TerminalsCount: c.Int("terminals"),
	}
	if in.Mix.TxCount < 0 {
		errs = append(errs, errors.New("--tx must not be negative"))
	}
	if c.IsSet("fees") {
		fees := get("fees")
		in.CurrentFeesMonthly = &fees
	}
	opt, err := domain.ParseTerminalOption(c.String("terminal-option"))
	errs = append(errs, err)
	in.TerminalOption = opt
	return in, errors.Join(errs...)
}

func tiersCommand() *cli.Command {
	return &cli.Command{
		Name:  "tiers",
		Usage: "print the active rate table",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "yaml", Usage: "yaml or json"},
		},
		Action: func(c *cli.Context) error {
			table, err := config.LoadRateTable(loadConfig(c).RatesFile)
			if err != nil {
				return err
			}
			file := config.RatesFileFrom(table)
			switch c.String("format") {
			case "yaml":
				enc := yaml.NewEncoder(c.App.Writer)
				enc.SetIndent(2)
				return errors.Join(enc.Encode(file), enc.Close())
			case "json":
				return writeJSON(c, file)
			default:
				return cli.Exit(fmt.Sprintf("unknown format %q", c.String("format")), 2)
			}
		},
	}
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
