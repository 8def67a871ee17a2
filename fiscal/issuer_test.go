package fiscal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"passagens/connectivity"
	"passagens/entity"
	"passagens/event"
	"passagens/fiscal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authorityMock struct {
	auth  fiscal.Authorization
	err   error
	calls int
}

func (a *authorityMock) SubmitBPe(_ context.Context, _ entity.Sale) (fiscal.Authorization, error) {
	a.calls++
	return a.auth, a.err
}

type docStoreMock struct {
	doc entity.FiscalDocument

	issuedProtocol string
	issuedPayload  string
	failedCause    string
	markedPending  bool
}

func (d *docStoreMock) Get(_ context.Context, _ string) (entity.FiscalDocument, error) {
	return d.doc, nil
}

func (d *docStoreMock) MarkIssued(_ context.Context, _, protocol, payload string, _ time.Time) error {
	d.issuedProtocol = protocol
	d.issuedPayload = payload
	d.doc.Status = entity.FiscalIssued
	return nil
}

func (d *docStoreMock) MarkFailed(_ context.Context, _, cause string) error {
	d.failedCause = cause
	d.doc.Status = entity.FiscalFailed
	return nil
}

func (d *docStoreMock) MarkPending(_ context.Context, _ string) error {
	d.markedPending = true
	d.doc.Status = entity.FiscalPending
	return nil
}

type saleStoreMock struct {
	sale entity.Sale
}

func (s saleStoreMock) Get(_ context.Context, _ string) (entity.Sale, error) {
	return s.sale, nil
}

type publisherMock struct {
	published []any
}

func (p *publisherMock) Publish(_ context.Context, event any) error {
	p.published = append(p.published, event)
	return nil
}

func pendingSale() (entity.Sale, *docStoreMock) {
	sale := entity.Sale{BookingReference: "BK123456"}
	docs := &docStoreMock{doc: entity.FiscalDocument{
		BookingReference: "BK123456",
		Status:           entity.FiscalPending,
	}}
	return sale, docs
}

func TestIssuer_Submit(t *testing.T) {
	sale, docs := pendingSale()
	authority := &authorityMock{auth: fiscal.Authorization{Protocol: "135240000000001", Payload: "<bpe/>"}}
	publisher := &publisherMock{}
	issuer := fiscal.NewIssuer(authority, docs, saleStoreMock{sale: sale}, connectivity.NewMonitor(true), publisher, time.Second)

	require.NoError(t, issuer.Submit(context.Background(), sale))

	assert.Equal(t, entity.FiscalIssued, docs.doc.Status)
	assert.Equal(t, "135240000000001", docs.issuedProtocol)
	assert.Equal(t, "<bpe/>", docs.issuedPayload)

	require.Len(t, publisher.published, 1)
	issued, ok := publisher.published[0].(event.FiscalDocumentIssued)
	require.True(t, ok)
	assert.Equal(t, "BK123456", issued.BookingReference)
	assert.Equal(t, "135240000000001", issued.AuthorizationProtocol)
}

func TestIssuer_SubmitOffline(t *testing.T) {
	sale, docs := pendingSale()
	authority := &authorityMock{}
	issuer := fiscal.NewIssuer(authority, docs, saleStoreMock{sale: sale}, connectivity.NewMonitor(false), &publisherMock{}, time.Second)

	assert.ErrorIs(t, issuer.Submit(context.Background(), sale), fiscal.ErrOffline)
	assert.Zero(t, authority.calls)
	assert.Equal(t, entity.FiscalPending, docs.doc.Status)
}

func TestIssuer_SubmitRejected(t *testing.T) {
	sale, docs := pendingSale()
	authority := &authorityMock{err: errors.New("schema validation failed")}
	publisher := &publisherMock{}
	issuer := fiscal.NewIssuer(authority, docs, saleStoreMock{sale: sale}, connectivity.NewMonitor(true), publisher, time.Second)

	err := issuer.Submit(context.Background(), sale)
	assert.ErrorIs(t, err, fiscal.ErrSubmissionFailed)
	assert.Equal(t, entity.FiscalFailed, docs.doc.Status)
	assert.Equal(t, "schema validation failed", docs.failedCause)
	assert.Empty(t, publisher.published)
}

func TestIssuer_SubmitTimeout(t *testing.T) {
	sale, docs := pendingSale()
	authority := &authorityMock{err: context.DeadlineExceeded}
	issuer := fiscal.NewIssuer(authority, docs, saleStoreMock{sale: sale}, connectivity.NewMonitor(true), &publisherMock{}, time.Second)

	err := issuer.Submit(context.Background(), sale)
	assert.ErrorIs(t, err, fiscal.ErrSubmissionTimeout)
	assert.NotErrorIs(t, err, fiscal.ErrSubmissionFailed)
	assert.Equal(t, entity.FiscalFailed, docs.doc.Status)
}

func TestIssuer_SubmitNotPending(t *testing.T) {
	sale, docs := pendingSale()
	docs.doc.Status = entity.FiscalIssued
	authority := &authorityMock{}
	issuer := fiscal.NewIssuer(authority, docs, saleStoreMock{sale: sale}, connectivity.NewMonitor(true), &publisherMock{}, time.Second)

	assert.ErrorIs(t, issuer.Submit(context.Background(), sale), fiscal.ErrNotPending)
	assert.Zero(t, authority.calls)
}

func TestIssuer_Retry(t *testing.T) {
	sale, docs := pendingSale()
	docs.doc.Status = entity.FiscalFailed
	authority := &authorityMock{auth: fiscal.Authorization{Protocol: "135240000000002"}}
	publisher := &publisherMock{}
	issuer := fiscal.NewIssuer(authority, docs, saleStoreMock{sale: sale}, connectivity.NewMonitor(true), publisher, time.Second)

	require.NoError(t, issuer.Retry(context.Background(), "BK123456"))

	assert.True(t, docs.markedPending)
	assert.Equal(t, entity.FiscalIssued, docs.doc.Status)
	assert.Equal(t, 1, authority.calls)
	assert.Len(t, publisher.published, 1)
}

func TestIssuer_RetryOnlyFromFailed(t *testing.T) {
	for _, status := range []string{entity.FiscalPending, entity.FiscalIssued, entity.FiscalCanceled} {
		sale, docs := pendingSale()
		docs.doc.Status = status
		authority := &authorityMock{}
		issuer := fiscal.NewIssuer(authority, docs, saleStoreMock{sale: sale}, connectivity.NewMonitor(true), &publisherMock{}, time.Second)

		assert.ErrorIs(t, issuer.Retry(context.Background(), "BK123456"), fiscal.ErrNotRetryable, status)
		assert.Zero(t, authority.calls, status)
	}
}

func TestIssuer_RetryOffline(t *testing.T) {
	sale, docs := pendingSale()
	docs.doc.Status = entity.FiscalFailed
	issuer := fiscal.NewIssuer(&authorityMock{}, docs, saleStoreMock{sale: sale}, connectivity.NewMonitor(false), &publisherMock{}, time.Second)

	assert.ErrorIs(t, issuer.Retry(context.Background(), "BK123456"), fiscal.ErrOffline)
	assert.False(t, docs.markedPending)
}
