package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"passagens/connectivity"
	"passagens/entity"
	"passagens/event"
	"sync/atomic"
	"time"
)

var (
	ErrNoPassengers       = errors.New("sale needs at least one passenger")
	ErrSeatCountMismatch  = errors.New("seat count must equal passenger count")
	ErrDuplicateSeat      = errors.New("duplicate seat code in sale")
	ErrNoPaymentMethod    = errors.New("payment method required")
	ErrReferenceExhausted = errors.New("could not generate a unique booking reference")
)

type TripStore interface {
	Get(ctx context.Context, tripID string) (entity.Trip, error)
}

type SaleStore interface {
	Create(ctx context.Context, sale entity.Sale, tripCapacity uint, inTx func(context.Context, *sql.Tx) error) error
	Cancel(ctx context.Context, bookingReference string, inTx func(context.Context, *sql.Tx, []string) error) ([]string, error)
	Exists(ctx context.Context, bookingReference string) (bool, error)
	Get(ctx context.Context, bookingReference string) (entity.Sale, error)
}

type SeatLedger interface {
	Confirm(tripID string, seatCodes []string, token string) error
	Complete(tripID string, seatCodes []string, token string)
	Abort(tripID string, seatCodes []string, token string)
}

type Queue interface {
	AppendTx(ctx context.Context, tx *sql.Tx, bookingReference string, queuedAt time.Time) error
}

type Connectivity interface {
	Effective() connectivity.State
}

// TxPublisher publishes an event through the outbox inside the sale
// transaction.
type TxPublisher interface {
	PublishInTx(ctx context.Context, e any, tx *sql.Tx) error
}

type CreateSaleRequest struct {
	TripID        string
	HolderToken   string
	Passengers    []entity.Passenger
	PaymentMethod string
}

// Service runs the sale lifecycle: seat confirmation, record creation and
// the issue-now versus queue routing decision. Payment is assumed approved
// by the out-of-scope payment component before CreateSale is called.
type Service struct {
	trips     TripStore
	sales     SaleStore
	ledger    SeatLedger
	queue     Queue
	monitor   Connectivity
	publisher TxPublisher

	autoIssue atomic.Bool
	now       func() time.Time
	reference func(width int) string
}

func NewService(
	trips TripStore,
	sales SaleStore,
	ledger SeatLedger,
	queue Queue,
	monitor Connectivity,
	publisher TxPublisher,
	autoIssue bool,
) *Service {
	s := &Service{
		trips:     trips,
		sales:     sales,
		ledger:    ledger,
		queue:     queue,
		monitor:   monitor,
		publisher: publisher,
		now:       time.Now,
		reference: newReference,
	}
	s.autoIssue.Store(autoIssue)
	return s
}

// AutoIssue reports whether fiscal documents are issued immediately when
// effectively online (the operator's "emit BP-e online" toggle).
func (s *Service) AutoIssue() bool {
	return s.autoIssue.Load()
}

func (s *Service) SetAutoIssue(enabled bool) {
	s.autoIssue.Store(enabled)
}

// CreateSale confirms the held seats and creates the sale atomically. When
// effectively online with auto-issue on, the completion event goes through
// the outbox in the same transaction; otherwise the sale lands in the
// pending sync queue instead.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (entity.Sale, error) {
	if err := validate(req); err != nil {
		return entity.Sale{}, err
	}

	trip, err := s.trips.Get(ctx, req.TripID)
	if err != nil {
		return entity.Sale{}, fmt.Errorf("getting trip: %w", err)
	}

	seatCodes := make([]string, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		seatCodes = append(seatCodes, p.SeatCode)
	}

	if err := s.ledger.Confirm(req.TripID, seatCodes, req.HolderToken); err != nil {
		return entity.Sale{}, err
	}

	reference, err := s.generateReference(ctx)
	if err != nil {
		s.ledger.Abort(req.TripID, seatCodes, req.HolderToken)
		return entity.Sale{}, err
	}

	total, err := multiply(trip.Price.Amount, len(req.Passengers))
	if err != nil {
		s.ledger.Abort(req.TripID, seatCodes, req.HolderToken)
		return entity.Sale{}, fmt.Errorf("computing total price: %w", err)
	}

	effectivelyOnline := s.monitor.Effective() == connectivity.Online
	issueNow := effectivelyOnline && s.AutoIssue()

	sale := entity.Sale{
		BookingReference: reference,
		TripID:           req.TripID,
		Passengers:       req.Passengers,
		Total: entity.Money{
			Amount:   total,
			Currency: trip.Price.Currency,
		},
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: entity.PaymentCompleted,
		OfflineSale:   !effectivelyOnline,
		CreatedAt:     s.now().UTC(),
	}

	err = s.sales.Create(ctx, sale, trip.SeatCapacity, func(ctx context.Context, tx *sql.Tx) error {
		if issueNow {
			return s.publisher.PublishInTx(ctx, event.NewSaleCompleted(reference, sale), tx)
		}
		return s.queue.AppendTx(ctx, tx, reference, sale.CreatedAt)
	})
	if err != nil {
		s.ledger.Abort(req.TripID, seatCodes, req.HolderToken)
		return entity.Sale{}, err
	}

	s.ledger.Complete(req.TripID, seatCodes, req.HolderToken)

	return sale, nil
}

// CancelSale cancels the sale, cascading to its fiscal document and seats.
func (s *Service) CancelSale(ctx context.Context, bookingReference string) error {
	sale, err := s.sales.Get(ctx, bookingReference)
	if err != nil {
		return err
	}

	_, err = s.sales.Cancel(ctx, bookingReference, func(ctx context.Context, tx *sql.Tx, released []string) error {
		e := event.NewSaleCanceled(bookingReference, bookingReference, sale.TripID, released)
		return s.publisher.PublishInTx(ctx, e, tx)
	})
	return err
}

func (s *Service) generateReference(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		width := 6
		if attempt >= 5 {
			// Dense reference space; widen rather than fail the sale.
			width = 8
		}

		reference := s.reference(width)
		exists, err := s.sales.Exists(ctx, reference)
		if err != nil {
			return "", fmt.Errorf("checking booking reference: %w", err)
		}
		if !exists {
			return reference, nil
		}
	}

	return "", ErrReferenceExhausted
}

func validate(req CreateSaleRequest) error {
	if len(req.Passengers) == 0 {
		return ErrNoPassengers
	}
	if req.PaymentMethod == "" {
		return ErrNoPaymentMethod
	}

	seen := map[string]bool{}
	for _, p := range req.Passengers {
		if p.SeatCode == "" {
			return ErrSeatCountMismatch
		}
		if seen[p.SeatCode] {
			return fmt.Errorf("seat %s: %w", p.SeatCode, ErrDuplicateSeat)
		}
		seen[p.SeatCode] = true
	}

	return nil
}
