// Package metrics records successful resource actions per user.
//
// The Prometheus sink keeps a counter labelled by action and user and is
// scraped from the metrics endpoint. The Kafka sink publishes each event as
// JSON for downstream consumers. Sinks never fail the request they observe.
package metrics

import (
	"auth_gateway/internal/models"
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type Sink interface {
	Record(ctx context.Context, event models.UsageEvent)
}

type PrometheusSink struct {
	actions *prometheus.CounterVec
}

func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	const op = "metrics.NewPrometheusSink"

	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_actions_total",
		Help: "Successful resource CRUD calls by action and user.",
	}, []string{"action", "user"})

	if err := reg.Register(actions); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PrometheusSink{actions: actions}, nil
}

func (s *PrometheusSink) Record(_ context.Context, event models.UsageEvent) {
	s.actions.WithLabelValues(string(event.Action), event.User).Inc()
}

// Fanout forwards every event to each sink in order.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, event models.UsageEvent) {
	for _, s := range f {
		s.Record(ctx, event)
	}
}
