package main

import (
	"os"

	"github.com/abiiranathan/pdfnotes/cli"
	"github.com/abiiranathan/pdfnotes/pdf"
	"github.com/abiiranathan/pdfnotes/server"
)

func main() {
	// Set the locale to the system's default
	pdf.SetLocale()

	// Configuration from defaults, the config file and the environment.
	config, err := cli.Load(cli.ConfigPath())
	if err != nil {
		logger := cli.NewLogger(cli.DefaultConfig().Log, nil)
		logger.Fatal().Err(err).Send()
	}

	// Parse the command line arguments
	ctx := cli.DefineFlags(config, server.Run)
	subcmd, err := ctx.Parse(os.Args)
	if err != nil {
		logger := cli.NewLogger(config.Log, nil)
		logger.Fatal().Err(err).Send()
	}

	// If the subcommand is nil, print the usage and exit
	if subcmd == nil {
		ctx.PrintUsage(os.Stdout)
		os.Exit(1)
	}

	// Run the subcommand
	subcmd.Handler()
}
