package service

import (
	"auth_gateway/internal/metrics"
	"auth_gateway/internal/models"
	"auth_gateway/internal/storage"
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNoFieldsToUpdate = errors.New("no fields to update")

type Resources interface {
	Create(ctx context.Context, user string, r models.NewResource) (int64, error)
	List(ctx context.Context, user string) ([]models.Resource, error)
	Update(ctx context.Context, user string, id int64, patch models.ResourcePatch) error
	Delete(ctx context.Context, user string, id int64) error
}

// resourceService runs CRUD against the resource store and reports every
// successful call to the metrics sink under the caller's email.
type resourceService struct {
	storage storage.ResourceStorage
	sink    metrics.Sink
	now     func() time.Time
}

func NewResourceService(st storage.ResourceStorage, sink metrics.Sink) *resourceService {
	return &resourceService{
		storage: st,
		sink:    sink,
		now:     time.Now,
	}
}

func (s *resourceService) Create(ctx context.Context, user string, r models.NewResource) (int64, error) {
	const op = "service.CreateResource"

	id, err := s.storage.CreateResource(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.record(ctx, models.ActionCreate, user, id)

	return id, nil
}

func (s *resourceService) List(ctx context.Context, user string) ([]models.Resource, error) {
	const op = "service.ListResources"

	resources, err := s.storage.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.record(ctx, models.ActionRead, user, 0)

	return resources, nil
}

func (s *resourceService) Update(ctx context.Context, user string, id int64, patch models.ResourcePatch) error {
	const op = "service.UpdateResource"

	if !hasUpdatableField(patch) {
		return fmt.Errorf("%s: %w", op, ErrNoFieldsToUpdate)
	}

	if err := s.storage.UpdateResource(ctx, id, patch); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.record(ctx, models.ActionUpdate, user, id)

	return nil
}

func (s *resourceService) Delete(ctx context.Context, user string, id int64) error {
	const op = "service.DeleteResource"

	if err := s.storage.DeleteResource(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.record(ctx, models.ActionDelete, user, id)

	return nil
}

func (s *resourceService) record(ctx context.Context, action models.Action, user string, id int64) {
	s.sink.Record(ctx, models.UsageEvent{
		Action:     action,
		User:       user,
		ResourceID: id,
		At:         s.now().UTC(),
	})
}

func hasUpdatableField(patch models.ResourcePatch) bool {
	for _, f := range models.UpdatableFields {
		if _, ok := patch[f]; ok {
			return true
		}
	}

	return false
}
