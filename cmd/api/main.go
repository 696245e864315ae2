package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/quickfix-backend/internal/ai"
	"github.com/shinyyama/quickfix-backend/internal/config"
	"github.com/shinyyama/quickfix-backend/internal/db"
	"github.com/shinyyama/quickfix-backend/internal/geo"
	"github.com/shinyyama/quickfix-backend/internal/media"
	"github.com/shinyyama/quickfix-backend/internal/payment"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/shinyyama/quickfix-backend/internal/server"
	"github.com/shinyyama/quickfix-backend/internal/telemetry"
)

var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "quickfix-backend")
	if err != nil {
		log.Printf("tracer init error: %v", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	clients := server.Clients{}

	app, err := db.NewFirebaseApp(ctx, cfg)
	if err != nil {
		log.Printf("firebase init error: %v (auth disabled)", err)
	} else {
		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Printf("firebase auth error: %v", err)
		} else {
			clients.Auth = authClient
			clients.Users = authClient
		}
		if credProject := db.CredProjectID(ctx); credProject != "" && credProject != cfg.FirebaseProjectID {
			log.Printf("warning: credentials project %q differs from FIREBASE_PROJECT_ID %q", credProject, cfg.FirebaseProjectID)
		}
	}

	var repos *repository.Repositories
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Fatalf("db connect error: %v", err)
		}
		if err := repository.AutoMigrate(conn); err != nil {
			log.Printf("auto migrate error: %v", err)
		}
		repos = repository.NewGormRepositories(conn)
	default:
		if app == nil {
			log.Fatalf("firestore driver needs a firebase app")
		}
		fs, err := app.Firestore(ctx)
		if err != nil {
			log.Fatalf("firestore client error: %v", err)
		}
		defer fs.Close()
		repos = repository.NewFirestoreRepositories(fs)
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout, nil)
		if err != nil {
			log.Printf("gemini init error: %v (diagnosis disabled)", err)
		} else {
			clients.Gemini = gemini
		}
	} else {
		log.Printf("GEMINI_API_KEY not set; diagnosis and verification disabled")
	}

	if cfg.TomTomAPIKey != "" {
		clients.Maps = geo.NewTomTomClient(cfg.TomTomAPIKey, &http.Client{Timeout: cfg.MapTimeout})
	}

	if cfg.StorageBucket != "" {
		sc, err := storage.NewClient(ctx, db.ClientOptions(cfg)...)
		if err != nil {
			log.Printf("storage client error: %v (uploads disabled)", err)
		} else {
			defer sc.Close()
			clients.Uploads = media.NewUploader(sc, cfg.StorageBucket)
		}
	}

	if cfg.StripeSecretKey != "" {
		allowUnsigned := cfg.StripeWebhookSecret == "" && cfg.Development()
		clients.Checkout = payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, allowUnsigned)
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis ping error: %v (webhook dedupe disabled)", err)
		} else {
			clients.Deduper = payment.NewRedisDeduper(rdb, 0)
		}
	}

	srv := server.New(cfg, repos, clients, gitSHA, buildTime)
	addr := ":" + cfg.Port

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s (store=%s)", addr, cfg.StoreDriver)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	case <-ctx.Done():
		log.Printf("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("tracer shutdown error: %v", err)
	}
}
