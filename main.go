package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/pagebound/backend/config"
	"github.com/pagebound/backend/handlers"
	"github.com/pagebound/backend/logger"
	"github.com/pagebound/backend/middleware"
	"github.com/pagebound/backend/providers"
	"github.com/pagebound/backend/service"
	"github.com/pagebound/backend/store"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal("logger:", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		zl.Fatal("mongodb connect", zap.Error(err))
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			zl.Warn("mongodb disconnect", zap.Error(err))
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		// The text index failing to build is survivable; search falls back to
		// the scored substring path.
		zl.Warn("index bootstrap failed", zap.Error(err))
	}

	chain := []providers.Client{
		providers.NewGoogleBooks(cfg.GoogleBooksAPIKey, cfg.ProviderTimeout),
		providers.NewOpenLibrary(cfg.ProviderTimeout),
	}
	if cfg.ISBNDBAPIKey != "" {
		chain = append(chain, providers.NewISBNDB(cfg.ISBNDBAPIKey, cfg.ProviderTimeout))
	}

	var s3Service *service.S3Service
	var covers *service.CoverMirror
	if cfg.S3Bucket != "" {
		s3Service, err = service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			zl.Fatal("s3", zap.Error(err))
		}
		covers = service.NewCoverMirror(s3Service, db, zl)
	} else {
		zl.Info("AWS_S3_BUCKET not set; cover mirroring disabled")
	}

	policy := service.StalenessPolicy{
		SearchRefreshAfter: cfg.SearchRefreshAfter,
		RecordRefreshAfter: cfg.RecordRefreshAfter,
	}
	refresher := service.NewRefresher(db, chain, cfg.ProviderTimeout,
		cfg.RefreshWorkers, cfg.RefreshQueueSize, zl)

	booksHandler := &handlers.BooksHandler{
		Search:   &service.Search{Store: db, Chain: chain, Policy: policy, Refresher: refresher, Covers: covers, Log: zl},
		Resolver: &service.Resolver{Store: db, Chain: chain, Policy: policy, Refresher: refresher, Covers: covers, Log: zl},
		Store:    db,
		S3:       s3Service,
		Log:      zl,
	}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Identity(cfg.JWTSecret))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Route("/books", func(r chi.Router) {
		r.Get("/search", booksHandler.SearchBooks)
		r.Get("/{id}", booksHandler.GetBook)
		r.Get("/{id}/cover", booksHandler.Cover)
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		zl.Info("server listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Warn("shutdown", zap.Error(err))
	}
	refresher.Drain()
}
