package service

import (
	"auth_gateway/internal/models"
	"auth_gateway/internal/storage"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []models.UsageEvent
}

func (r *recordingSink) Record(_ context.Context, e models.UsageEvent) {
	r.events = append(r.events, e)
}

func (r *recordingSink) actions() []models.Action {
	out := make([]models.Action, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestResources_CRUDRecordsEverySuccess(t *testing.T) {
	sink := &recordingSink{}
	s := NewResourceService(storage.NewMemoryStorage(), sink)
	ctx := context.Background()

	id, err := s.Create(ctx, "a@x.com", models.NewResource{Name: "Doc1"})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "a@x.com", id, models.ResourcePatch{models.FieldAnnotation: strPtr("hi")}))

	list, err := s.List(ctx, "b@x.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Doc1", list[0].Name)
	assert.Equal(t, "hi", *list[0].Annotation)

	require.NoError(t, s.Delete(ctx, "a@x.com", id))

	assert.Equal(t, []models.Action{models.ActionCreate, models.ActionUpdate, models.ActionRead, models.ActionDelete}, sink.actions())
	assert.Equal(t, "b@x.com", sink.events[2].User)
	assert.Equal(t, id, sink.events[3].ResourceID)
}

func TestResources_UpdateWithoutRecognizedFields(t *testing.T) {
	sink := &recordingSink{}
	s := NewResourceService(storage.NewMemoryStorage(), sink)

	err := s.Update(context.Background(), "a@x.com", 1, models.ResourcePatch{"colour": strPtr("red")})
	require.ErrorIs(t, err, ErrNoFieldsToUpdate)
	assert.Empty(t, sink.events)
}

func TestResources_NotFoundIsNotRecorded(t *testing.T) {
	sink := &recordingSink{}
	s := NewResourceService(storage.NewMemoryStorage(), sink)
	ctx := context.Background()

	err := s.Update(ctx, "a@x.com", 5, models.ResourcePatch{models.FieldKind: strPtr("video")})
	require.ErrorIs(t, err, storage.ErrResourceNotFound)

	err = s.Delete(ctx, "a@x.com", 5)
	require.ErrorIs(t, err, storage.ErrResourceNotFound)

	assert.Empty(t, sink.events)
}
