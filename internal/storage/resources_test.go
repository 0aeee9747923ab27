package storage

import (
	"auth_gateway/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBuildUpdate_OnlyPresentFieldsInColumnOrder(t *testing.T) {
	annotation := strPtr("hi")
	patch := models.ResourcePatch{
		models.FieldURL:        nil,
		models.FieldAnnotation: annotation,
	}

	query, args, err := buildUpdate(42, patch)
	require.NoError(t, err)

	assert.Equal(t, "UPDATE resources SET annotation = $1, url = $2 WHERE id = $3;", query)
	require.Len(t, args, 3)
	assert.Equal(t, annotation, args[0])
	assert.Nil(t, args[1])
	assert.Equal(t, int64(42), args[2])
}

func TestBuildUpdate_IgnoresUnknownKeys(t *testing.T) {
	patch := models.ResourcePatch{
		"id; DROP TABLE resources": strPtr("x"),
		models.FieldKind:           strPtr("video"),
	}

	query, args, err := buildUpdate(7, patch)
	require.NoError(t, err)

	assert.Equal(t, "UPDATE resources SET kind = $1 WHERE id = $2;", query)
	assert.Len(t, args, 2)
}

func TestBuildUpdate_Empty(t *testing.T) {
	_, _, err := buildUpdate(1, models.ResourcePatch{"bogus": strPtr("x")})
	require.ErrorIs(t, err, errEmptyPatch)
}
