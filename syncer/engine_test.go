package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"passagens/connectivity"
	"passagens/db"
	"passagens/entity"
	"passagens/syncer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueMock struct {
	mu      sync.Mutex
	entries []db.QueueEntry
}

func (q *queueMock) List(_ context.Context) ([]db.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]db.QueueEntry(nil), q.entries...), nil
}

func (q *queueMock) Remove(_ context.Context, bookingReference string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, entry := range q.entries {
		if entry.BookingReference == bookingReference {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (q *queueMock) references() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	refs := make([]string, 0, len(q.entries))
	for _, entry := range q.entries {
		refs = append(refs, entry.BookingReference)
	}
	return refs
}

type saleStoreStub struct{}

func (saleStoreStub) Get(_ context.Context, bookingReference string) (entity.Sale, error) {
	return entity.Sale{BookingReference: bookingReference}, nil
}

type docStoreStub struct {
	statuses map[string]string
}

func (d docStoreStub) Get(_ context.Context, bookingReference string) (entity.FiscalDocument, error) {
	status, ok := d.statuses[bookingReference]
	if !ok {
		status = entity.FiscalPending
	}
	return entity.FiscalDocument{BookingReference: bookingReference, Status: status}, nil
}

type submitterMock struct {
	mu        sync.Mutex
	submitted []string
	retried   []string
	failWith  map[string]error
}

func (s *submitterMock) Submit(_ context.Context, sale entity.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWith[sale.BookingReference]; err != nil {
		return err
	}
	s.submitted = append(s.submitted, sale.BookingReference)
	return nil
}

func (s *submitterMock) Retry(_ context.Context, bookingReference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWith[bookingReference]; err != nil {
		return err
	}
	s.retried = append(s.retried, bookingReference)
	return nil
}

func queued(refs ...string) *queueMock {
	q := &queueMock{}
	for i, ref := range refs {
		q.entries = append(q.entries, db.QueueEntry{ID: int64(i + 1), BookingReference: ref})
	}
	return q
}

func TestEngine_DrainSubmitsInOrder(t *testing.T) {
	queue := queued("BK000001", "BK000002", "BK000003")
	submitter := &submitterMock{}
	engine := syncer.NewEngine(queue, saleStoreStub{}, docStoreStub{}, submitter, connectivity.NewMonitor(true))

	engine.Drain(context.Background())

	assert.Equal(t, []string{"BK000001", "BK000002", "BK000003"}, submitter.submitted)
	assert.Empty(t, queue.references())
}

func TestEngine_DrainLeavesFailuresQueued(t *testing.T) {
	queue := queued("BK000001", "BK000002")
	submitter := &submitterMock{failWith: map[string]error{"BK000001": errors.New("rejected")}}
	engine := syncer.NewEngine(queue, saleStoreStub{}, docStoreStub{}, submitter, connectivity.NewMonitor(true))

	engine.Drain(context.Background())

	// The failure does not block the rest of the queue.
	assert.Equal(t, []string{"BK000002"}, submitter.submitted)
	assert.Equal(t, []string{"BK000001"}, queue.references())
}

func TestEngine_DrainRetriesFailedDocuments(t *testing.T) {
	queue := queued("BK000001")
	docs := docStoreStub{statuses: map[string]string{"BK000001": entity.FiscalFailed}}
	submitter := &submitterMock{}
	engine := syncer.NewEngine(queue, saleStoreStub{}, docs, submitter, connectivity.NewMonitor(true))

	engine.Drain(context.Background())

	assert.Empty(t, submitter.submitted)
	assert.Equal(t, []string{"BK000001"}, submitter.retried)
	assert.Empty(t, queue.references())
}

func TestEngine_DrainDropsTerminalEntries(t *testing.T) {
	queue := queued("BK000001", "BK000002")
	docs := docStoreStub{statuses: map[string]string{
		"BK000001": entity.FiscalIssued,
		"BK000002": entity.FiscalCanceled,
	}}
	submitter := &submitterMock{}
	engine := syncer.NewEngine(queue, saleStoreStub{}, docs, submitter, connectivity.NewMonitor(true))

	engine.Drain(context.Background())

	assert.Empty(t, submitter.submitted)
	assert.Empty(t, submitter.retried)
	assert.Empty(t, queue.references())
}

func TestEngine_DrainStopsWhenConnectivityLost(t *testing.T) {
	queue := queued("BK000001", "BK000002")
	monitor := connectivity.NewMonitor(false)
	submitter := &submitterMock{}
	engine := syncer.NewEngine(queue, saleStoreStub{}, docStoreStub{}, submitter, monitor)

	engine.Drain(context.Background())

	assert.Empty(t, submitter.submitted)
	assert.Len(t, queue.references(), 2)
}

func TestEngine_DrainCanceledContext(t *testing.T) {
	queue := queued("BK000001")
	submitter := &submitterMock{}
	engine := syncer.NewEngine(queue, saleStoreStub{}, docStoreStub{}, submitter, connectivity.NewMonitor(true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine.Drain(ctx)

	assert.Empty(t, submitter.submitted)
	assert.Equal(t, []string{"BK000001"}, queue.references())
}

func TestEngine_RunDrainsOnTransition(t *testing.T) {
	queue := queued("BK000001")
	monitor := connectivity.NewMonitor(false)
	submitter := &submitterMock{}
	engine := syncer.NewEngine(queue, saleStoreStub{}, docStoreStub{}, submitter, monitor)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- engine.Run(ctx)
	}()

	monitor.SetSignal(true)
	require.Eventually(t, func() bool {
		return len(queue.references()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []string{"BK000001"}, submitter.submitted)
}
