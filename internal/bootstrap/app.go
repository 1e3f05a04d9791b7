package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"complai-backend/internal/evidence"
	"complai-backend/internal/matching"
	locmatch "complai-backend/internal/matching/local"
	remmatch "complai-backend/internal/matching/remote"
	"complai-backend/internal/queue"
	"complai-backend/internal/reviews"
	"complai-backend/internal/shared/config"
	"complai-backend/internal/shared/server"
	"complai-backend/internal/shared/storage/db"
	"complai-backend/internal/shared/storage/object"
	localstore "complai-backend/internal/shared/storage/object/local"
	s3store "complai-backend/internal/shared/storage/object/s3"
	"complai-backend/internal/shared/telemetry"
)

// App holds shared dependencies wired once at startup.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.ObjectStore
	Queue           queue.Client
	Provider        matching.Provider
	Timers          *reviews.Arena
	EvidenceRepo    evidence.EvidenceRepo
	ReviewsRepo     reviews.ReviewsRepo
	EvidenceService *evidence.Service
	ReviewsService  *reviews.Service
	EvidenceHandler *evidence.Handler
	ReviewsHandler  *reviews.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Router:   nil,
		DB:       sqlDB,
		Store:    store,
		Queue:    queueClient,
		Provider: provider,
		Timers:   reviews.NewArena(),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		EvidenceHandler: app.EvidenceHandler,
		ReviewsHandler:  app.ReviewsHandler,
		EnableUploads:   strings.TrimSpace(os.Getenv("UPLOADS_S3_BUCKET")) != "",
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildProvider(cfg config.Config) (matching.Provider, error) {
	switch cfg.MatchProvider {
	case "remote":
		client, err := remmatch.New(cfg.MatchEndpoint, cfg.MatchModel)
		if err != nil {
			return nil, err
		}
		return matching.WithRetry(client), nil
	default:
		p, err := locmatch.New()
		if err != nil {
			return nil, err
		}
		return matching.WithRetry(p), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var evidenceRepo evidence.EvidenceRepo
	var reviewsRepo reviews.ReviewsRepo

	if app.DB != nil {
		evidenceRepo = &evidence.PGRepo{DB: app.DB}
		reviewsRepo = &reviews.PGRepo{DB: app.DB}
	} else {
		evidenceRepo = evidence.NewMemoryRepo()
		reviewsRepo = reviews.NewMemoryRepo()
	}

	evidenceSvc := &evidence.Service{
		Repo:     evidenceRepo,
		Store:    app.Store,
		Provider: app.Provider,
		Policy:   app.Config.Policy,
	}

	reviewsSvc := &reviews.Service{
		Repo:   reviewsRepo,
		Timers: app.Timers,
		Policy: app.Config.Policy,
		OnRecompute: func(orgID string, snap reviews.Snapshot) {
			telemetry.Info("reviews.metrics.recomputed", map[string]any{
				"org_id":          orgID,
				"items_today":     snap.ItemsToday,
				"items_completed": snap.ItemsCompleted,
				"dollars_saved":   snap.DollarsSaved,
			})
		},
	}

	evidenceHandler := evidence.NewHandler(evidenceSvc)
	if app.Queue != nil {
		q := app.Queue
		evidenceHandler.Enqueue = func(ctx context.Context, orgID, artifactID, requestID string) error {
			return q.Send(ctx, queue.Message{
				OrgID:      orgID,
				ArtifactID: artifactID,
				RequestID:  firstNonEmpty(requestID, uuid.NewString()),
				EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
				Version:    1,
			})
		}
	}

	app.EvidenceRepo = evidenceRepo
	app.ReviewsRepo = reviewsRepo
	app.EvidenceService = evidenceSvc
	app.ReviewsService = reviewsSvc
	app.EvidenceHandler = evidenceHandler
	app.ReviewsHandler = reviews.NewHandler(reviewsSvc)

	if app.EvidenceHandler == nil || app.ReviewsHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
