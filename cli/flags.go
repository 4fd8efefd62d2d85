package cli

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/abiiranathan/goflag"
	"github.com/abiiranathan/pdfnotes/service"
	"github.com/rs/zerolog"
)

// Server starts the HTTP API and blocks until it stops.
type Server func(config *Config, svc *service.Service, logger zerolog.Logger) error

// run validates config and calls fn with a ready service. Errors are fatal.
func run(config *Config, fn func(ctx context.Context, svc *service.Service, logger zerolog.Logger) error) {
	logger := NewLogger(config.Log, nil)
	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Send()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, closeFn, err := Open(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to start")
	}

	err = fn(ctx, svc, logger)
	closeFn()
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
}

// output opens the file the guide is written to, stdout when name is empty.
func output(name string) (io.WriteCloser, error) {
	if name == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(name)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// DefineFlags registers the global flags and the subcommands on a new
// context. Flag values override config.
func DefineFlags(config *Config, runserver Server) *goflag.Context {
	// Flags required by multiple subcomands
	documentFlag := goflag.Flag{
		FlagType:  goflag.FlagString,
		Name:      "id",
		ShortName: "i",
		Value:     &config.Document,
		Usage:     "The document id printed by extract",
		Required:  true,
		Validator: nil,
	}

	// Create flag context.
	ctx := goflag.NewContext()

	// global flags
	ctx.AddFlag(goflag.FlagInt, "concurrency", "c",
		&config.MaxConcurrency,
		"No of PDF files to be extracted at once",
		false, goflag.Min(1), goflag.Max(100))

	ctx.AddFlag(goflag.FlagString, "database", "b", &config.Database, "Path of the sqlite database", false)
	ctx.AddFlag(goflag.FlagString, "log-level", "l", &config.Log.Level, "debug, info, warn or error", false)

	// register subcommands
	ctx.AddSubCommand("extract", "Extract the annotations of a PDF file", func() {
		run(config, func(ctx context.Context, svc *service.Service, _ zerolog.Logger) error {
			return Extract(ctx, svc, config.Filename, os.Stdout)
		})
	}).AddFlag(goflag.FlagFilePath, "file", "f", &config.Filename, "The PDF file to extract", true)

	ctx.AddSubCommand("extract_dir", "Extract every PDF file in a directory recursively", func() {
		run(config, func(ctx context.Context, svc *service.Service, _ zerolog.Logger) error {
			return ExtractDir(ctx, svc, config.Directory, os.Stdout)
		})
	}).AddFlag(goflag.FlagDirPath, "directory", "d", &config.Directory, "The directory to extract", true)

	ctx.AddSubCommand("export", "Export the study guide of an extracted document", func() {
		run(config, func(ctx context.Context, svc *service.Service, _ zerolog.Logger) error {
			out, err := output(config.Output)
			if err != nil {
				return err
			}
			defer out.Close()
			return Export(ctx, svc, config.Document, config.Format, out)
		})
	}).AddFlagPtr(&documentFlag).
		AddFlag(goflag.FlagString, "format", "f", &config.Format, "md, md-images, html, pdf or zip", false).
		AddFlag(goflag.FlagString, "output", "o", &config.Output, "File to write instead of stdout", false)

	ctx.AddSubCommand("search", "Search the annotations of all extracted documents", func() {
		run(config, func(ctx context.Context, svc *service.Service, _ zerolog.Logger) error {
			return Search(ctx, svc, config.Pattern, config.Limit, os.Stdout)
		})
	}).AddFlag(goflag.FlagString, "pattern", "p", &config.Pattern, "The search term", true).
		AddFlag(goflag.FlagInt, "limit", "n", &config.Limit, "Maximum number of matches", false)

	// Run server
	ctx.AddSubCommand("runserver", "Start an Http server for the annotation API", func() {
		run(config, func(_ context.Context, svc *service.Service, logger zerolog.Logger) error {
			return runserver(config, svc, logger)
		})
	}).AddFlag(goflag.FlagInt, "port", "p", &config.Port, "The port to run the server on", false)

	return ctx
}
