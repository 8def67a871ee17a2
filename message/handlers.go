package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"passagens/entity"
	"passagens/event"
	"passagens/fiscal"
	"passagens/logging"
)

type FiscalIssuer interface {
	Submit(ctx context.Context, sale entity.Sale) error
}

type Queue interface {
	Append(ctx context.Context, bookingReference string, queuedAt time.Time) error
}

type BoardingPassGenerator interface {
	Generate(ctx context.Context, sale entity.Sale) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event any) error
}

type Drainer interface {
	Drain(ctx context.Context)
}

func saleFromEvent(e *event.SaleCompleted) entity.Sale {
	return entity.Sale{
		BookingReference: e.BookingReference,
		TripID:           e.TripID,
		Passengers:       e.Passengers,
		Total:            e.Total,
		PaymentMethod:    e.PaymentMethod,
		PaymentStatus:    entity.PaymentCompleted,
		OfflineSale:      e.OfflineSale,
	}
}

// handleIssueFiscalDocument submits the sale for BP-e issuance. A rejected,
// timed-out or offline submission parks the sale in the sync queue for the
// next drain instead of spinning on redelivery.
func handleIssueFiscalDocument(issuer FiscalIssuer, queue Queue) func(ctx context.Context, e *event.SaleCompleted) error {
	return func(ctx context.Context, e *event.SaleCompleted) error {
		err := issuer.Submit(ctx, saleFromEvent(e))
		if err == nil {
			return nil
		}

		if errors.Is(err, fiscal.ErrNotPending) {
			// Canceled or already issued; nothing left to do.
			return nil
		}

		if errors.Is(err, fiscal.ErrSubmissionFailed) ||
			errors.Is(err, fiscal.ErrSubmissionTimeout) ||
			errors.Is(err, fiscal.ErrOffline) {
			logging.FromContext(ctx).WithError(err).
				WithField("booking_reference", e.BookingReference).
				Warn("Fiscal submission not possible, queueing for sync")

			if err := queue.Append(ctx, e.BookingReference, time.Now().UTC()); err != nil {
				return fmt.Errorf("queueing sale for sync: %w", err)
			}

			return nil
		}

		return err
	}
}

func handleGenerateBoardingPass(generator BoardingPassGenerator, publisher Publisher) func(ctx context.Context, e *event.SaleCompleted) error {
	return func(ctx context.Context, e *event.SaleCompleted) error {
		fileName, err := generator.Generate(ctx, saleFromEvent(e))
		if err != nil {
			return fmt.Errorf("generating boarding pass: %w", err)
		}

		generated := event.NewBoardingPassGenerated(e.Header.IdempotencyKey, e.BookingReference, fileName)
		if err := publisher.Publish(ctx, generated); err != nil {
			return fmt.Errorf("publishing boarding pass generated event: %w", err)
		}

		return nil
	}
}
