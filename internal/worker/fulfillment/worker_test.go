package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/orderdesk/fulfillment/internal/service/errs"
	fulfillmentmodel "github.com/orderdesk/fulfillment/internal/service/models/fulfillment"
	"github.com/orderdesk/fulfillment/internal/service/models/inbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memInboxRepo struct {
	pending []inbox.Message
	deleted []int64
	dead    []int64
	retried []int64
}

func (r *memInboxRepo) Insert(ctx context.Context, msg inbox.Message) error {
	r.pending = append(r.pending, msg)

	return nil
}

func (r *memInboxRepo) GetPendingMessages(ctx context.Context, limit int) ([]inbox.Message, error) {
	return r.pending, nil
}

func (r *memInboxRepo) Delete(ctx context.Context, id int64) error {
	r.deleted = append(r.deleted, id)

	return nil
}

func (r *memInboxRepo) UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	r.retried = append(r.retried, id)

	return nil
}

func (r *memInboxRepo) MarkDead(ctx context.Context, id int64, lastError string) error {
	r.dead = append(r.dead, id)

	return nil
}

type stubService struct {
	err error
}

func (s *stubService) Process(ctx context.Context, ev fulfillmentmodel.Event) error {
	return s.err
}

func validPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(fulfillmentmodel.Event{
		EventID: "3f2c7f0e-4a8f-4b52-9a7d-1c2d3e4f5a6b",
		Name:    fulfillmentmodel.EventName,
		OrderID: "ORD-20250615120000-A1B2C",
		UserID:  42,
		Email:   "billing@acme.example",
	})
	require.NoError(t, err)

	return payload
}

func TestProcessMessages_DeletesOnSuccess(t *testing.T) {
	repo := &memInboxRepo{pending: []inbox.Message{
		{ID: 1, Payload: validPayload(t), MaxRetries: 5},
	}}
	w := NewWorker(repo, &stubService{}, time.Second, 10)

	w.processMessages(context.Background())

	assert.Equal(t, []int64{1}, repo.deleted)
	assert.Empty(t, repo.dead)
	assert.Empty(t, repo.retried)
}

func TestProcessMessages_DeadLettersMalformedPayload(t *testing.T) {
	repo := &memInboxRepo{pending: []inbox.Message{
		{ID: 1, Payload: []byte("{not json"), MaxRetries: 5},
		{ID: 2, Payload: []byte(`{"eventId":"x","name":"wrong/name","orderId":"ORD-20250615120000-A1B2C","userId":42,"email":"a@b.c"}`), MaxRetries: 5},
	}}
	w := NewWorker(repo, &stubService{}, time.Second, 10)

	w.processMessages(context.Background())

	assert.ElementsMatch(t, []int64{1, 2}, repo.dead)
	assert.Empty(t, repo.deleted)
}

func TestProcessMessages_DeadLettersNonRetriableFailure(t *testing.T) {
	repo := &memInboxRepo{pending: []inbox.Message{
		{ID: 1, Payload: validPayload(t), MaxRetries: 5},
	}}
	w := NewWorker(repo, &stubService{err: errs.NonRetriablef("order has no items")}, time.Second, 10)

	w.processMessages(context.Background())

	assert.Equal(t, []int64{1}, repo.dead)
	assert.Empty(t, repo.retried)
}

func TestProcessMessages_SchedulesRetryOnTransientFailure(t *testing.T) {
	repo := &memInboxRepo{pending: []inbox.Message{
		{ID: 1, Payload: validPayload(t), RetryCount: 0, MaxRetries: 5},
	}}
	w := NewWorker(repo, &stubService{err: fmt.Errorf("storage unreachable")}, time.Second, 10)

	w.processMessages(context.Background())

	assert.Equal(t, []int64{1}, repo.retried)
	assert.Empty(t, repo.dead)
	assert.Empty(t, repo.deleted)
}

func TestProcessMessages_DeadLettersWhenRetriesExhausted(t *testing.T) {
	repo := &memInboxRepo{pending: []inbox.Message{
		{ID: 1, Payload: validPayload(t), RetryCount: 4, MaxRetries: 5},
	}}
	w := NewWorker(repo, &stubService{err: fmt.Errorf("storage unreachable")}, time.Second, 10)

	w.processMessages(context.Background())

	assert.Equal(t, []int64{1}, repo.dead)
	assert.Empty(t, repo.retried)
}
