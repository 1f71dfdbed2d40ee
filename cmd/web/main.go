package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"minesweep/internal/config"
	"minesweep/internal/game"
	"minesweep/internal/handlers"
	"minesweep/internal/logging"
)

func main() {
	_ = mime.AddExtensionType(".js", "application/javascript")
	_ = mime.AddExtensionType(".css", "text/css")

	cfg := config.Load(logrus.StandardLogger())
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	def, err := game.ParseDifficulty(cfg.DefaultDifficulty)
	if err != nil {
		log.WithError(err).Warn("DEFAULT_DIFFICULTY invalid, using easy")
		def = game.Easy
	}

	store := game.NewStore(game.WithLogger(log))
	limiter := handlers.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	static, err := staticHandler()
	if err != nil {
		log.WithError(err).Fatal("static files")
	}

	homeHandler := handlers.NewHomeHandler(store, log, def)
	gameHandler := handlers.NewGameHandler(store, log, cfg.BaseURL, limiter.Middleware)
	apiHandler := handlers.NewAPIHandler(store)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(middleware.Compress(5, "text/html", "text/css", "application/javascript", "application/json"))
		r.Mount("/static", static)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoCache)
			homeHandler.RegisterRoutes(r)
			gameHandler.RegisterRoutes(r)
			apiHandler.RegisterRoutes(r)
		})
	})
	gameHandler.RegisterStream(r)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweep(ctx, log, store, limiter, cfg)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received, shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http server shutdown")
		}
		close(idleConnsClosed)
	}()

	log.WithField("addr", cfg.Addr()).Infof("listening on http://localhost%s", cfg.Addr())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("http server")
		os.Exit(1)
	}
	<-idleConnsClosed
	log.Info("server exited")
}

// sweep drops idle sessions and rate limiter entries until ctx is done.
func sweep(ctx context.Context, log logrus.FieldLogger, store *game.Store, limiter *handlers.RateLimiter, cfg config.Config) {
	t := time.NewTicker(cfg.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			store.Sweep(cfg.SessionIdle, now.UTC())
			if n := limiter.Prune(cfg.SessionIdle, now); n > 0 {
				log.WithField("removed", n).Debug("pruned rate limiters")
			}
		}
	}
}

//go:embed static/*
var embeddedStatic embed.FS

func staticHandler() (http.Handler, error) {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return nil, err
	}
	return http.StripPrefix("/static", http.FileServer(http.FS(staticFS))), nil
}
