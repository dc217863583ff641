package service

import (
	"context"
	"fmt"

	"pathway-backend/classify"
	"pathway-backend/config"
	"pathway-backend/embedding"
	"pathway-backend/llm"
	"pathway-backend/rag"
	"pathway-backend/storage"
	"pathway-backend/vectorstore"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// App bundles the fully wired pipeline.
type App struct {
	Index      *DocumentIndexService
	Engine     *rag.Engine
	Classifier *classify.ClauseClassifier

	db       *pgxpool.Pool
	provider *llm.Gemini
}

// NewApp wires every component from settings. Components whose credentials
// are absent come up in their degraded mode rather than failing.
func NewApp(ctx context.Context, settings config.Settings, logger zerolog.Logger) (*App, error) {
	app := &App{}

	embedder := embedding.NewGeminiEmbedder(
		settings.GeminiAPIKey,
		settings.EmbeddingModel,
		settings.EmbeddingDimensions,
		logger,
	)

	var store vectorstore.VectorStore
	if settings.DatabaseURL != "" {
		db, err := pgxpool.New(ctx, settings.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		pg, err := vectorstore.NewPgVectorStore(ctx, db, embedder.Dimensions(), logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		app.db = db
		store = pg
	} else {
		logger.Info().Msg("no DATABASE_URL set, using in-memory vector store")
		store = vectorstore.NewMemoryStore()
	}

	var provider llm.CompletionProvider
	if settings.GeminiAPIKey != "" {
		gemini, err := llm.NewGemini(ctx, settings.GeminiAPIKey, settings.GenerationModel)
		if err != nil {
			logger.Warn().Err(err).Msg("completion provider unavailable, answers will be mocked")
		} else {
			app.provider = gemini
			provider = gemini
		}
	} else {
		logger.Info().Msg("no GEMINI_API_KEY set, answers will be mocked")
	}

	artifacts, err := storage.NewStore(storage.Config{
		Type:         storage.Type(settings.StorageType),
		LocalPath:    settings.StorageLocalPath,
		S3Bucket:     settings.S3Bucket,
		S3Region:     settings.S3Region,
		AWSAccessKey: settings.AWSAccessKey,
		AWSSecretKey: settings.AWSSecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise artifact storage: %w", err)
	}

	app.Index = NewDocumentIndexService(
		IndexWithEmbedder(embedder),
		IndexWithVectorStore(store),
		IndexWithArtifactStore(artifacts),
		IndexWithLogger(logger),
	)
	app.Engine = rag.NewEngine(embedder, store, provider, logger)
	app.Classifier = classify.NewClauseClassifier(
		classify.NewClient(settings.IsaacusAPIKey, settings.IsaacusBaseURL, settings.IsaacusModel, logger),
		logger,
	)

	return app, nil
}

// Close releases the database pool and LLM client, if held.
func (a *App) Close() {
	if a.provider != nil {
		a.provider.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
