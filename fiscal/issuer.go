package fiscal

import (
	"context"
	"errors"
	"fmt"
	"passagens/connectivity"
	"passagens/entity"
	"passagens/event"
	"time"
)

var (
	// ErrOffline guards Submit against being called while effectively
	// offline; callers must route to the sync queue instead.
	ErrOffline = errors.New("effectively offline, submission not allowed")

	ErrSubmissionFailed  = errors.New("fiscal submission failed")
	ErrSubmissionTimeout = errors.New("fiscal submission timed out")
	ErrNotRetryable      = errors.New("fiscal document is not retryable")
	ErrNotPending        = errors.New("fiscal document is not pending")
)

// Authorization is the fiscal authority's answer to a successful submission.
type Authorization struct {
	Protocol string
	Payload  string
}

// AuthorityClient submits a sale snapshot for BP-e issuance. Transport,
// auth and backoff against the fiscal authority are owned by the client.
type AuthorityClient interface {
	SubmitBPe(ctx context.Context, sale entity.Sale) (Authorization, error)
}

type DocumentStore interface {
	Get(ctx context.Context, bookingReference string) (entity.FiscalDocument, error)
	MarkIssued(ctx context.Context, bookingReference, protocol, payload string, emittedAt time.Time) error
	MarkFailed(ctx context.Context, bookingReference, cause string) error
	MarkPending(ctx context.Context, bookingReference string) error
}

type SaleStore interface {
	Get(ctx context.Context, bookingReference string) (entity.Sale, error)
}

type Connectivity interface {
	Effective() connectivity.State
}

type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Issuer drives the fiscal document state machine: pending to issued on a
// successful submission, pending to failed on rejection or timeout, with
// retry allowed from failed only. Issued and canceled are terminal.
type Issuer struct {
	authority AuthorityClient
	docs      DocumentStore
	sales     SaleStore
	monitor   Connectivity
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
}

func NewIssuer(
	authority AuthorityClient,
	docs DocumentStore,
	sales SaleStore,
	monitor Connectivity,
	publisher Publisher,
	timeout time.Duration,
) *Issuer {
	return &Issuer{
		authority: authority,
		docs:      docs,
		sales:     sales,
		monitor:   monitor,
		publisher: publisher,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Submit performs the external fiscal submission for a pending document.
// A rejected or timed-out submission is recorded as a failed transition and
// reported with ErrSubmissionFailed or ErrSubmissionTimeout; the sale stays
// valid and retryable either way.
func (i *Issuer) Submit(ctx context.Context, sale entity.Sale) error {
	if i.monitor.Effective() != connectivity.Online {
		return ErrOffline
	}

	doc, err := i.docs.Get(ctx, sale.BookingReference)
	if err != nil {
		return fmt.Errorf("getting fiscal document: %w", err)
	}
	if doc.Status != entity.FiscalPending {
		return fmt.Errorf("document status %s: %w", doc.Status, ErrNotPending)
	}

	submitCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	auth, submitErr := i.authority.SubmitBPe(submitCtx, sale)
	if submitErr != nil {
		kind := ErrSubmissionFailed
		if errors.Is(submitErr, context.DeadlineExceeded) {
			kind = ErrSubmissionTimeout
		}

		if err := i.docs.MarkFailed(ctx, sale.BookingReference, submitErr.Error()); err != nil {
			return fmt.Errorf("marking document failed: %w", err)
		}

		return fmt.Errorf("%w: %s", kind, submitErr)
	}

	emittedAt := i.now().UTC()
	if err := i.docs.MarkIssued(ctx, sale.BookingReference, auth.Protocol, auth.Payload, emittedAt); err != nil {
		return fmt.Errorf("marking document issued: %w", err)
	}

	issued := event.NewFiscalDocumentIssued(sale.BookingReference, sale.BookingReference, auth.Protocol, emittedAt)
	if err := i.publisher.Publish(ctx, issued); err != nil {
		return fmt.Errorf("publishing issued event: %w", err)
	}

	return nil
}

// Retry re-attempts submission of a failed document. The document flips
// back to pending only when the attempt itself begins.
func (i *Issuer) Retry(ctx context.Context, bookingReference string) error {
	doc, err := i.docs.Get(ctx, bookingReference)
	if err != nil {
		return fmt.Errorf("getting fiscal document: %w", err)
	}
	if doc.Status != entity.FiscalFailed {
		return fmt.Errorf("document status %s: %w", doc.Status, ErrNotRetryable)
	}

	if i.monitor.Effective() != connectivity.Online {
		return ErrOffline
	}

	sale, err := i.sales.Get(ctx, bookingReference)
	if err != nil {
		return fmt.Errorf("getting sale: %w", err)
	}

	if err := i.docs.MarkPending(ctx, bookingReference); err != nil {
		return fmt.Errorf("resetting document to pending: %w", err)
	}

	return i.Submit(ctx, sale)
}
