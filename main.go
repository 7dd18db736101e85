package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raine/pricetag-scanner/config"
	"github.com/raine/pricetag-scanner/internal/llm"
	"github.com/raine/pricetag-scanner/internal/server"
	"github.com/raine/pricetag-scanner/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	// Offer the setup wizard on first run; without a key the server still
	// starts and reports the missing credential per request.
	if os.Getenv("GEMINI_API_KEY") == "" && isInteractiveTerminal() {
		if !runSetupWizard() {
			log.Warn().Msg("setup skipped, continuing without a Gemini API key")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fatalWithWait("failed to load configuration: %v", err)
	}

	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
		log.Info().Str("logFile", cfg.LogFile).Msg("logging to file")
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	analyzer, closeStore, err := newAnalyzer(ctx, cfg)
	if err != nil {
		fatalWithWait("failed to initialize analyzer: %v", err)
	}
	defer closeStore()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(analyzer).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// newAnalyzer wires the Gemini generator, the optional cache and the
// analyzer. A nil analyzer with a nil error means no API key is configured.
func newAnalyzer(ctx context.Context, cfg *config.Config) (llm.PriceAnalyzer, func(), error) {
	noop := func() {}

	gen, err := llm.NewGeminiGenerator(ctx, llm.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		var configErr *llm.ConfigurationError
		if errors.As(err, &configErr) {
			log.Warn().Str("setting", configErr.Setting).Msg("gemini not configured, analyze requests will fail")
			return nil, noop, nil
		}
		return nil, noop, err
	}
	log.Info().Str("model", gen.Model()).Msg("gemini generator initialized")

	if !cfg.CacheEnabled {
		return llm.NewAnalyzer(gen), noop, nil
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, noop, err
	}
	if cfg.CacheTTL > 0 {
		pruned, err := store.PruneAnalysisCache(time.Now().Add(-cfg.CacheTTL))
		if err != nil {
			log.Warn().Err(err).Msg("failed to prune analysis cache")
		} else if pruned > 0 {
			log.Info().Int64("pruned", pruned).Msg("pruned analysis cache")
		}
	}
	log.Info().Str("dbPath", cfg.DBPath).Msg("analysis caching enabled")

	cached := llm.NewCachedGenerator(gen, store, gen.Model())
	return llm.NewAnalyzer(cached), func() { store.Close() }, nil
}
