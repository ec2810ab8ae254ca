package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/zayana/storefront/pkg/kafka"
	"github.com/zayana/storefront/services/storefront/internal/domain"
)

type fakeRepo struct {
	mu        sync.Mutex
	rows      []domain.OutboxEvent
	marked    []int64
	attempts  map[int64]int
	parked    []int64
	fetchErr  error
	markErr   error
	recordErr error
}

func (f *fakeRepo) FetchPending(_ context.Context, limit int) ([]domain.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []domain.OutboxEvent
	for _, r := range f.rows {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) MarkPublished(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, ids...)
	keep := f.rows[:0]
	for _, r := range f.rows {
		if !contains(ids, r.ID) {
			keep = append(keep, r)
		}
	}
	f.rows = keep
	return nil
}

func (f *fakeRepo) RecordFailure(_ context.Context, id int64, _ string, maxAttempts int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return 0, false, f.recordErr
	}
	if f.attempts == nil {
		f.attempts = make(map[int64]int)
	}
	f.attempts[id]++
	if f.attempts[id] < maxAttempts {
		return f.attempts[id], false, nil
	}
	f.parked = append(f.parked, id)
	keep := f.rows[:0]
	for _, r := range f.rows {
		if r.ID != id {
			keep = append(keep, r)
		}
	}
	f.rows = keep
	return f.attempts[id], true, nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type sentEvent struct {
	topic string
	event *pkgkafka.Event
}

type fakeProducer struct {
	mu     sync.Mutex
	sent   []sentEvent
	failOn string
}

func (f *fakeProducer) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.AggregateID == f.failOn {
		return errors.New("broker unavailable")
	}
	f.sent = append(f.sent, sentEvent{topic: topic, event: e})
	return nil
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(id int64, orderID string) domain.OutboxEvent {
	return domain.OutboxEvent{
		ID:          id,
		AggregateID: orderID,
		EventType:   domain.EventOrderCreated,
		Payload:     []byte(`{"id":"` + orderID + `","quantity":2}`),
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestOutboxPublisher_Flush_PublishesAndMarks(t *testing.T) {
	repo := &fakeRepo{rows: []domain.OutboxEvent{row(1, "o1"), row(2, "o2")}}
	prod := &fakeProducer{}
	p := NewOutboxPublisher(repo, prod, OutboxConfig{BatchSize: 10}, quietLogger())

	n, err := p.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, repo.marked)

	require.Len(t, prod.sent, 2)
	first := prod.sent[0]
	assert.Equal(t, "zayana.order.created", first.topic)
	assert.Equal(t, domain.EventOrderCreated, first.event.EventType)
	assert.Equal(t, "order", first.event.AggregateType)
	assert.Equal(t, "o1", first.event.AggregateID)
	assert.Equal(t, EventID(1), first.event.EventID)
	assert.Equal(t, "1", first.event.Metadata["outbox_id"])
	assert.JSONEq(t, `{"id":"o1","quantity":2}`, string(first.event.Data))
	assert.True(t, first.event.OccurredAt.Equal(row(1, "o1").CreatedAt))
}

func TestOutboxPublisher_Flush_StopsAtFirstFailure(t *testing.T) {
	repo := &fakeRepo{rows: []domain.OutboxEvent{row(1, "o1"), row(2, "o2"), row(3, "o3")}}
	prod := &fakeProducer{failOn: "o2"}
	p := NewOutboxPublisher(repo, prod, OutboxConfig{}, quietLogger())

	n, err := p.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox row 2")
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, repo.marked)
	assert.Equal(t, 1, prod.count())
	assert.Equal(t, 1, repo.attempts[2])
	assert.Empty(t, repo.parked)
}

func TestOutboxPublisher_Flush_MarkFailureReportsNothingMarked(t *testing.T) {
	repo := &fakeRepo{rows: []domain.OutboxEvent{row(1, "o1")}, markErr: errors.New("db gone")}
	p := NewOutboxPublisher(repo, &fakeProducer{}, OutboxConfig{}, quietLogger())

	n, err := p.Flush(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestOutboxPublisher_Flush_Empty(t *testing.T) {
	prod := &fakeProducer{}
	n, err := NewOutboxPublisher(&fakeRepo{}, prod, OutboxConfig{}, quietLogger()).Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, prod.count())
}

func TestOutboxPublisher_Flush_FetchError(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("timeout")}
	_, err := NewOutboxPublisher(repo, &fakeProducer{}, OutboxConfig{}, quietLogger()).Flush(context.Background())
	require.Error(t, err)
}

func TestOutboxPublisher_Flush_InvalidPayloadIsParkedAtOnce(t *testing.T) {
	bad := row(1, "o1")
	bad.Payload = []byte("{not json")
	prod := &fakeProducer{}
	repo := &fakeRepo{rows: []domain.OutboxEvent{bad, row(2, "o2")}}

	n, err := NewOutboxPublisher(repo, prod, OutboxConfig{}, quietLogger()).Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, repo.parked)
	assert.Equal(t, []int64{2}, repo.marked)
	require.Equal(t, 1, prod.count())
	assert.Equal(t, "o2", prod.sent[0].event.AggregateID)
}

func TestOutboxPublisher_Flush_FailingRowParkedAfterMaxAttempts(t *testing.T) {
	repo := &fakeRepo{rows: []domain.OutboxEvent{row(1, "o1"), row(2, "o2"), row(3, "o3")}}
	prod := &fakeProducer{failOn: "o1"}
	p := NewOutboxPublisher(repo, prod, OutboxConfig{MaxAttempts: 3}, quietLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		n, err := p.Flush(ctx)
		require.Error(t, err)
		assert.Zero(t, n)
		assert.Zero(t, prod.count())
	}
	assert.Equal(t, 2, repo.attempts[1])
	assert.Empty(t, repo.parked)

	n, err := p.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1}, repo.parked)
	assert.Equal(t, []int64{2, 3}, repo.marked)

	n, err = p.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxPublisher_Flush_RecordFailureErrorStopsBatch(t *testing.T) {
	repo := &fakeRepo{
		rows:      []domain.OutboxEvent{row(1, "o1"), row(2, "o2")},
		recordErr: errors.New("db gone"),
	}
	prod := &fakeProducer{failOn: "o1"}

	n, err := NewOutboxPublisher(repo, prod, OutboxConfig{}, quietLogger()).Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Contains(t, err.Error(), "db gone")
	assert.Zero(t, n)
	assert.Zero(t, prod.count())
}

func TestEventID_IsStablePerRow(t *testing.T) {
	assert.Equal(t, EventID(42), EventID(42))
	assert.NotEqual(t, EventID(42), EventID(43))
}

func TestOutboxPublisher_Run_DrainsUntilCancelled(t *testing.T) {
	repo := &fakeRepo{rows: []domain.OutboxEvent{row(1, "o1"), row(2, "o2"), row(3, "o3")}}
	prod := &fakeProducer{}
	p := NewOutboxPublisher(repo, prod, OutboxConfig{Interval: 5 * time.Millisecond, BatchSize: 2}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return prod.count() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
