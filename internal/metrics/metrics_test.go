package metrics

import (
	"auth_gateway/internal/models"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusSink_CountsPerActionAndUser(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	sink.Record(ctx, models.UsageEvent{Action: models.ActionCreate, User: "a@x.com"})
	sink.Record(ctx, models.UsageEvent{Action: models.ActionCreate, User: "a@x.com"})
	sink.Record(ctx, models.UsageEvent{Action: models.ActionRead, User: "b@x.com"})

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.actions.WithLabelValues("create", "a@x.com")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.actions.WithLabelValues("read", "b@x.com")))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.actions))
}

func TestNewPrometheusSink_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}

type recordingSink struct {
	events []models.UsageEvent
}

func (r *recordingSink) Record(_ context.Context, e models.UsageEvent) {
	r.events = append(r.events, e)
}

func TestFanout(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	f := Fanout{a, b}

	ev := models.UsageEvent{Action: models.ActionDelete, User: "a@x.com", ResourceID: 3}
	f.Record(context.Background(), ev)

	assert.Equal(t, []models.UsageEvent{ev}, a.events)
	assert.Equal(t, []models.UsageEvent{ev}, b.events)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_PublishesJSONKeyedByUser(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w, log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	at := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	sink.Record(context.Background(), models.UsageEvent{Action: models.ActionUpdate, User: "a@x.com", ResourceID: 9, At: at})

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "a@x.com", string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)

	var got models.UsageEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, models.ActionUpdate, got.Action)
	assert.Equal(t, int64(9), got.ResourceID)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_WriteErrorIsLoggedNotPropagated(t *testing.T) {
	var buf bytes.Buffer
	w := &fakeWriter{err: errors.New("broker down")}
	sink := &KafkaSink{writer: w, log: slog.New(slog.NewTextHandler(&buf, nil))}

	sink.Record(context.Background(), models.UsageEvent{Action: models.ActionRead, User: "a@x.com"})

	assert.Contains(t, buf.String(), "broker down")
}

func TestNewKafkaSink(t *testing.T) {
	sink := NewKafkaSink([]string{"localhost:9092"}, "resource-actions", slog.New(slog.NewTextHandler(io.Discard, nil)))

	kw, ok := sink.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "resource-actions", kw.Topic)
	assert.True(t, kw.Async)
	require.NoError(t, sink.Close())
}
