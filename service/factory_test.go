package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway-backend/config"
	"pathway-backend/models"
	"pathway-backend/rag"
)

func TestNewAppWithoutCredentials(t *testing.T) {
	settings := config.Settings{
		EmbeddingModel:      "gemini-embedding-001",
		EmbeddingDimensions: 8,
		StorageType:         "local",
		StorageLocalPath:    t.TempDir(),
	}

	app, err := NewApp(context.Background(), settings, zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Index)
	require.NotNil(t, app.Engine)
	require.NotNil(t, app.Classifier)

	// End to end through the degraded pipeline: index, ask, classify.
	result, err := app.Index.IndexDocument(context.Background(), IndexRequest{
		PropertyID:   "prop-1",
		DocumentType: models.DocTypeBuildingInspection,
		OCR:          inspectionOCR(2),
	})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.NotNil(t, result.Artifact)

	answer, err := app.Engine.Answer(context.Background(), rag.Request{
		Question:   "Any defects?",
		PropertyID: "prop-1",
	})
	require.NoError(t, err)
	assert.True(t, answer.Degraded)
}

func TestNewAppUnknownStorageType(t *testing.T) {
	settings := config.Settings{
		EmbeddingDimensions: 8,
		StorageType:         "tape",
	}

	_, err := NewApp(context.Background(), settings, zerolog.Nop())
	assert.Error(t, err)
}
