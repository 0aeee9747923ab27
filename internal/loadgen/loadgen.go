// Package loadgen produces synthetic activity against the resource store:
// weighted inserts, updates and deletes followed by a burst of usage events.
package loadgen

import (
	"auth_gateway/internal/models"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

const (
	DefaultMinSeed = 5
	DefaultMinKeep = 10
)

var (
	kinds           = []string{"article", "dataset", "video", "tool", "guide"}
	purposes        = []string{"education", "research", "publication", "lab"}
	usageConditions = []string{"internal", "public", "students-only", "staff-only"}
)

// Op is one mutating operation chosen by RunOnce.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Weights are the relative chances of insert, update and delete.
type Weights struct {
	Insert, Update, Delete float64
}

var DefaultWeights = Weights{Insert: 0.6, Update: 0.3, Delete: 0.1}

type ResourceStore interface {
	CreateResource(ctx context.Context, r models.NewResource) (int64, error)
	UpdateResource(ctx context.Context, id int64, patch models.ResourcePatch) error
	DeleteResource(ctx context.Context, id int64) error
	CountResources(ctx context.Context) (int64, error)
	ListResourceIDs(ctx context.Context) ([]int64, error)
	RecordUsage(ctx context.Context, resourceID int64, email string) error
}

type UserDirectory interface {
	ListEmails(ctx context.Context) ([]string, error)
}

type Generator struct {
	resources ResourceStore
	users     UserDirectory
	rnd       *rand.Rand
	faker     *gofakeit.Faker
	weights   Weights
	minKeep   int64
	log       *slog.Logger
}

type Option func(*Generator)

// WithSeed makes every random choice and every fake value reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rnd = rand.New(rand.NewSource(seed))
		g.faker = gofakeit.New(seed)
	}
}

func WithWeights(w Weights) Option {
	return func(g *Generator) {
		g.weights = w
	}
}

// WithMinKeep sets the resource count at or below which deletes are skipped.
func WithMinKeep(n int64) Option {
	return func(g *Generator) {
		g.minKeep = n
	}
}

func New(resources ResourceStore, users UserDirectory, log *slog.Logger, opts ...Option) *Generator {
	seed := time.Now().UnixNano()
	g := &Generator{
		resources: resources,
		users:     users,
		rnd:       rand.New(rand.NewSource(seed)),
		faker:     gofakeit.New(seed),
		weights:   DefaultWeights,
		minKeep:   DefaultMinKeep,
		log:       log.With(slog.String("component", "loadgen")),
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// EnsureSeed inserts resources until at least want exist.
func (g *Generator) EnsureSeed(ctx context.Context, want int64) (int, error) {
	const op = "loadgen.EnsureSeed"

	count, err := g.resources.CountResources(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	inserted := 0
	for ; count < want; count++ {
		if _, err := g.Insert(ctx); err != nil {
			return inserted, fmt.Errorf("%s: %w", op, err)
		}
		inserted++
	}

	if inserted > 0 {
		g.log.Info("seeded resources", slog.Int("count", inserted))
	}

	return inserted, nil
}

// RunOnce performs one weighted operation followed by a usage burst of 1..4 events.
func (g *Generator) RunOnce(ctx context.Context) (Op, error) {
	const op = "loadgen.RunOnce"

	var err error
	chosen := g.pick()
	switch chosen {
	case OpInsert:
		_, err = g.Insert(ctx)
	case OpUpdate:
		_, err = g.Update(ctx)
	case OpDelete:
		_, _, err = g.Delete(ctx)
	}
	if err != nil {
		return chosen, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := g.SimulateUsage(ctx, 1+g.rnd.Intn(4)); err != nil {
		return chosen, fmt.Errorf("%s: %w", op, err)
	}

	return chosen, nil
}

func (g *Generator) pick() Op {
	total := g.weights.Insert + g.weights.Update + g.weights.Delete
	if total <= 0 {
		return OpInsert
	}

	x := g.rnd.Float64() * total
	switch {
	case x < g.weights.Insert:
		return OpInsert
	case x < g.weights.Insert+g.weights.Update:
		return OpUpdate
	default:
		return OpDelete
	}
}

func (g *Generator) Insert(ctx context.Context) (int64, error) {
	const op = "loadgen.Insert"

	r := g.fakeResource()
	id, err := g.resources.CreateResource(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	g.log.Info("insert resource", slog.Int64("id", id), slog.String("name", r.Name))

	return id, nil
}

// Update rewrites the annotation and kind of a random resource, or inserts
// one when the store is empty.
func (g *Generator) Update(ctx context.Context) (int64, error) {
	const op = "loadgen.Update"

	ids, err := g.resources.ListResourceIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return g.Insert(ctx)
	}

	id := ids[g.rnd.Intn(len(ids))]
	annotation := g.faker.Paragraph(1, 2, 8, " ")
	kind := g.choice(kinds)

	err = g.resources.UpdateResource(ctx, id, models.ResourcePatch{
		models.FieldAnnotation: &annotation,
		models.FieldKind:       &kind,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	g.log.Info("update resource", slog.Int64("id", id))

	return id, nil
}

// Delete removes a random resource unless the store holds minKeep or fewer.
// The bool reports whether anything was deleted.
func (g *Generator) Delete(ctx context.Context) (int64, bool, error) {
	const op = "loadgen.Delete"

	count, err := g.resources.CountResources(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	if count <= g.minKeep {
		g.log.Info("delete skipped", slog.Int64("count", count), slog.Int64("min_keep", g.minKeep))
		return 0, false, nil
	}

	ids, err := g.resources.ListResourceIDs(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return 0, false, nil
	}

	id := ids[g.rnd.Intn(len(ids))]
	if err := g.resources.DeleteResource(ctx, id); err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	g.log.Info("delete resource", slog.Int64("id", id))

	return id, true, nil
}

// SimulateUsage records bursts usage events for random (user, resource)
// pairs. It does nothing when either set is empty or the users cannot be
// listed, e.g. when the credentials schema lives in another database.
func (g *Generator) SimulateUsage(ctx context.Context, bursts int) (int, error) {
	const op = "loadgen.SimulateUsage"

	emails, err := g.users.ListEmails(ctx)
	if err != nil {
		g.log.Warn("usage skipped, cannot list users", slog.Any("error", err))
		return 0, nil
	}
	ids, err := g.resources.ListResourceIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(emails) == 0 || len(ids) == 0 {
		return 0, nil
	}

	for i := 0; i < bursts; i++ {
		email := emails[g.rnd.Intn(len(emails))]
		id := ids[g.rnd.Intn(len(ids))]

		if err := g.resources.RecordUsage(ctx, id, email); err != nil {
			return i, fmt.Errorf("%s: %w", op, err)
		}

		g.log.Info("usage", slog.Int64("resource_id", id), slog.String("user", email))
	}

	return bursts, nil
}

func (g *Generator) fakeResource() models.NewResource {
	name := fmt.Sprintf("%s %s Resource", title(g.faker.Word()), title(g.faker.Word()))
	author := g.faker.Name()
	annotation := g.faker.Paragraph(1, 3, 8, " ")
	kind := g.choice(kinds)
	purpose := g.choice(purposes)
	conditions := g.choice(usageConditions)
	url := g.faker.URL()

	open := time.Date(2018+g.rnd.Intn(8), time.Month(1+g.rnd.Intn(12)), 1+g.rnd.Intn(28), 0, 0, 0, 0, time.UTC)
	expiry := open.AddDate(0, 0, 180+g.rnd.Intn(1500-180+1))
	openDate := open.Format(time.DateOnly)
	expiryDate := expiry.Format(time.DateOnly)

	return models.NewResource{
		Name:            name,
		Author:          &author,
		Annotation:      &annotation,
		Kind:            &kind,
		Purpose:         &purpose,
		OpenDate:        &openDate,
		ExpiryDate:      &expiryDate,
		UsageConditions: &conditions,
		URL:             &url,
	}
}

func (g *Generator) choice(options []string) string {
	return options[g.rnd.Intn(len(options))]
}

func title(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
