package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hashrecipe/internal/api"
	"hashrecipe/internal/config"
	"hashrecipe/internal/imaging"
	"hashrecipe/internal/logging"
	"hashrecipe/internal/platform/gemini"
	"hashrecipe/internal/platform/localllm"
	"hashrecipe/internal/recipe"
	"hashrecipe/internal/retrieval"
	"hashrecipe/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hashrecipe: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	catalog, err := buildCatalog(ctx, cfg.Corpus)
	if err != nil {
		return err
	}

	engine, closeEngine, err := buildEngine(ctx, cfg.Retrieval)
	if err != nil {
		return err
	}
	defer closeEngine()

	mgr := session.NewManager(catalog, engine,
		session.WithLocale(cfg.Locale()),
		session.WithQueryLatency(cfg.Session.QueryLatency),
		session.WithQueryTimeout(cfg.Session.QueryTimeout),
		session.WithAuthenticator(session.NewMockAuthenticator(cfg.Session.LoginLatency)),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg.Server, mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildCatalog returns the configured corpus. A Postgres corpus is loaded
// once into memory; the connection is closed afterwards.
func buildCatalog(ctx context.Context, cfg config.CorpusConfig) (recipe.Catalog, error) {
	if cfg.Source != config.CorpusPostgres {
		return recipe.Builtin(), nil
	}

	store, err := recipe.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("error creating postgres store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if cfg.Seed {
		seeded, err := recipe.Seed(ctx, store, recipe.Builtin())
		if err != nil {
			return nil, fmt.Errorf("seed corpus: %w", err)
		}
		if seeded {
			logging.Info().Msg("seeded empty corpus with built-in recipes")
		}
	}

	catalog, err := recipe.LoadCatalog(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return catalog, nil
}

// buildEngine routes image queries to the configured rankers. Text queries
// always use substring matching, over ingredients too when configured.
func buildEngine(ctx context.Context, cfg config.RetrievalConfig) (*retrieval.Engine, func(), error) {
	opts := []retrieval.Option{retrieval.WithImageLimit(cfg.ImageLimit)}
	cleanup := func() {}

	if cfg.MatchIngredients {
		text := retrieval.SubstringMatch{Fields: retrieval.MatchAll}
		opts = append(opts,
			retrieval.WithRanker(retrieval.ModeText, retrieval.AlgorithmFast, text),
			retrieval.WithRanker(retrieval.ModeText, retrieval.AlgorithmAccurate, text),
		)
	}

	similarity := retrieval.SimilaritySearch{Fingerprinter: imaging.Hasher{}, Limit: cfg.ImageLimit}
	if cfg.FastImage == config.ImageSimilarity {
		opts = append(opts, retrieval.WithRanker(retrieval.ModeImage, retrieval.AlgorithmFast, similarity))
	}

	switch cfg.AccurateImage {
	case config.ImageSimilarity:
		opts = append(opts, retrieval.WithRanker(retrieval.ModeImage, retrieval.AlgorithmAccurate, similarity))
	case config.ImageCaption:
		describer, closeDescriber, err := buildDescriber(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		cleanup = closeDescriber
		ranker := retrieval.Guard(
			retrieval.CaptionMatch{Describer: describer, Limit: cfg.ImageLimit},
			retrieval.BreakerConfig{Name: cfg.Captioner, FailureThreshold: cfg.BreakerFailures, Timeout: cfg.BreakerTimeout},
		)
		opts = append(opts, retrieval.WithRanker(retrieval.ModeImage, retrieval.AlgorithmAccurate, ranker))
	}

	logging.Info().
		Str("fast_image", cfg.FastImage).
		Str("accurate_image", cfg.AccurateImage).
		Int("image_limit", cfg.ImageLimit).
		Bool("match_ingredients", cfg.MatchIngredients).
		Msg("retrieval engine configured")
	return retrieval.New(opts...), cleanup, nil
}

func buildDescriber(ctx context.Context, cfg config.RetrievalConfig) (retrieval.Describer, func(), error) {
	if cfg.Captioner == config.CaptionerLocalLLM {
		return localllm.NewClient(cfg.LocalLLMURL, cfg.LocalLLMModel), func() {}, nil
	}
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating gemini client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

func newRouter(cfg config.ServerConfig, mgr *session.Manager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger())

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api.NewHandler(mgr, cfg.UploadDir, cfg.MaxUploadBytes).Register(r)
	return r
}
