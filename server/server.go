package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/abiiranathan/pdfnotes/cli"
	"github.com/abiiranathan/pdfnotes/routes"
	"github.com/abiiranathan/pdfnotes/service"
	"github.com/rs/zerolog"
)

// Diagrams are small; uploads are whole PDFs.
const maxDiagramBytes = 8 << 20

// NewHandler returns the API with request logging.
func NewHandler(config *cli.Config, svc *service.Service, logger zerolog.Logger) http.Handler {
	// Create a new serveMux
	mux := http.NewServeMux()

	// Connect the routes.
	routes.SetupRoutes(mux, svc, routes.Options{
		MaxUploadBytes:  config.MaxUploadMB << 20,
		MaxDiagramBytes: maxDiagramBytes,
	})
	return routes.Logger(logger)(mux)
}

// Run serves the API on the configured port until an interrupt arrives.
func Run(config *cli.Config, svc *service.Service, logger zerolog.Logger) error {
	// Create a new http server to customize the timeouts.
	// Extraction with OCR can take minutes.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           NewHandler(config, svc, logger),
		ReadTimeout:       time.Minute,
		WriteTimeout:      10 * time.Minute,
		ReadHeaderTimeout: time.Second * 5,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info().Msgf("Listening on http://0.0.0.0:%d", config.Port)
	return Serve(ctx, server, ln, logger)
}

// Serve serves on ln until the server fails or ctx is done, then shuts the
// server down gracefully. The default timeout is 10 seconds
// to wait for pending connections.
func Serve(ctx context.Context, server *http.Server, ln net.Listener, logger zerolog.Logger, timeout ...time.Duration) error {
	t := 10 * time.Second
	if len(timeout) > 0 {
		t = timeout[0]
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server terminated with error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), t)
	defer cancel()

	logger.Info().Msg("Shutting down the server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("shutting down gracefully")
	return nil
}
