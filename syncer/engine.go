package syncer

import (
	"context"
	"fmt"
	"passagens/connectivity"
	"passagens/db"
	"passagens/entity"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type Queue interface {
	List(ctx context.Context) ([]db.QueueEntry, error)
	Remove(ctx context.Context, bookingReference string) error
}

type SaleStore interface {
	Get(ctx context.Context, bookingReference string) (entity.Sale, error)
}

type DocumentStore interface {
	Get(ctx context.Context, bookingReference string) (entity.FiscalDocument, error)
}

// Submitter is the fiscal issuer surface the drain needs.
type Submitter interface {
	Submit(ctx context.Context, sale entity.Sale) error
	Retry(ctx context.Context, bookingReference string) error
}

type Connectivity interface {
	Effective() connectivity.State
	Subscribe() <-chan connectivity.State
}

// Engine drains the pending sync queue when connectivity becomes
// effectively online. One drain runs at a time; entries are processed in
// insertion order and each failure is left queued for the next trigger.
type Engine struct {
	queue     Queue
	sales     SaleStore
	docs      DocumentStore
	submitter Submitter
	monitor   Connectivity

	draining atomic.Bool
}

func NewEngine(queue Queue, sales SaleStore, docs DocumentStore, submitter Submitter, monitor Connectivity) *Engine {
	return &Engine{
		queue:     queue,
		sales:     sales,
		docs:      docs,
		submitter: submitter,
		monitor:   monitor,
	}
}

// Run triggers a drain on every offline to online transition until ctx is
// done.
func (e *Engine) Run(ctx context.Context) error {
	transitions := e.monitor.Subscribe()

	if e.monitor.Effective() == connectivity.Online {
		e.Drain(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state := <-transitions:
			if state != connectivity.Online {
				continue
			}
			e.Drain(ctx)
		}
	}
}

// Drain processes the queue once. Safe to invoke concurrently with new
// offline sales being appended and with itself: overlapping calls are
// coalesced, so a transition firing twice in quick succession submits each
// entry at most once.
func (e *Engine) Drain(ctx context.Context) {
	if !e.draining.CompareAndSwap(false, true) {
		return
	}
	defer e.draining.Store(false)

	logger := logrus.WithField("component", "sync_engine")

	// Snapshot at trigger time, then re-list so entries appended while the
	// drain was running are discovered before it finishes.
	seen := map[string]bool{}
	for {
		entries, err := e.queue.List(ctx)
		if err != nil {
			logger.WithError(err).Error("Listing pending sync queue")
			return
		}

		progressed := false
		for _, entry := range entries {
			if ctx.Err() != nil {
				return
			}
			if e.monitor.Effective() != connectivity.Online {
				logger.Info("Connectivity lost mid-drain, stopping")
				return
			}
			if seen[entry.BookingReference] {
				continue
			}
			seen[entry.BookingReference] = true
			progressed = true

			if err := e.process(ctx, entry.BookingReference); err != nil {
				logger.WithError(err).
					WithField("booking_reference", entry.BookingReference).
					Warn("Pending sale left queued")
			}
		}

		if !progressed {
			return
		}
	}
}

func (e *Engine) process(ctx context.Context, bookingReference string) error {
	doc, err := e.docs.Get(ctx, bookingReference)
	if err != nil {
		return fmt.Errorf("getting fiscal document: %w", err)
	}

	switch doc.Status {
	case entity.FiscalPending:
		sale, err := e.sales.Get(ctx, bookingReference)
		if err != nil {
			return fmt.Errorf("getting sale: %w", err)
		}
		if err := e.submitter.Submit(ctx, sale); err != nil {
			return err
		}
	case entity.FiscalFailed:
		if err := e.submitter.Retry(ctx, bookingReference); err != nil {
			return err
		}
	case entity.FiscalIssued, entity.FiscalCanceled:
		// Nothing left to submit; drop the stale entry.
	default:
		return fmt.Errorf("unexpected fiscal document status %q", doc.Status)
	}

	if err := e.queue.Remove(ctx, bookingReference); err != nil {
		return fmt.Errorf("removing queue entry: %w", err)
	}

	return nil
}
