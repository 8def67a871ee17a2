package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"passagens/booking"
	"passagens/command"
	"passagens/connectivity"
	"passagens/db"
	"passagens/entity"
	"passagens/fiscal"
	"passagens/ledger"
	"passagens/pdfticket"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Bookings interface {
	CreateSale(ctx context.Context, req booking.CreateSaleRequest) (entity.Sale, error)
	CancelSale(ctx context.Context, bookingReference string) error
	AutoIssue() bool
	SetAutoIssue(enabled bool)
}

type TripStore interface {
	Add(ctx context.Context, trip entity.Trip) error
	Get(ctx context.Context, tripID string) (entity.Trip, error)
	List(ctx context.Context) ([]entity.Trip, error)
}

type SeatLedger interface {
	Hold(ctx context.Context, tripID, seatCode, token string) error
	Release(tripID, seatCode, token string)
	SeatMap(ctx context.Context, tripID string) ([]entity.Seat, error)
}

type SaleStore interface {
	Get(ctx context.Context, bookingReference string) (entity.Sale, error)
	List(ctx context.Context) ([]entity.Sale, error)
}

type FiscalDocs interface {
	Get(ctx context.Context, bookingReference string) (entity.FiscalDocument, error)
}

type FiscalRetryer interface {
	Retry(ctx context.Context, bookingReference string) error
}

type Monitor interface {
	Mode() connectivity.Mode
	SetMode(mode connectivity.Mode) error
	Effective() connectivity.State
	SignalOnline() bool
}

type CommandBus interface {
	Send(ctx context.Context, cmd any) error
}

type handler struct {
	bookings   Bookings
	trips      TripStore
	ledger     SeatLedger
	sales      SaleStore
	fiscalDocs FiscalDocs
	retryer    FiscalRetryer
	monitor    Monitor
	commandBus CommandBus
}

type holdRequest struct {
	SeatCode    string `json:"seat_code"`
	HolderToken string `json:"holder_token"`
}

func (h handler) CreateHold(c echo.Context) error {
	var request holdRequest
	if err := c.Bind(&request); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "failed to parse request",
			Internal: fmt.Errorf("failed to bind request: %w", err),
		}
	}
	if request.SeatCode == "" || request.HolderToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "seat_code and holder_token are required")
	}

	ctx := c.Request().Context()
	if err := h.ledger.Hold(ctx, c.Param("id"), request.SeatCode, request.HolderToken); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h handler) ReleaseHold(c echo.Context) error {
	token := c.QueryParam("holder_token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "holder_token is required")
	}

	h.ledger.Release(c.Param("id"), c.Param("code"), token)

	return c.NoContent(http.StatusNoContent)
}

type passenger struct {
	FullName   string `json:"full_name"`
	DocumentID string `json:"document_id"`
	Phone      string `json:"phone"`
	SeatCode   string `json:"seat_code"`
}

type createSaleRequest struct {
	TripID        string      `json:"trip_id"`
	HolderToken   string      `json:"holder_token"`
	PaymentMethod string      `json:"payment_method"`
	Passengers    []passenger `json:"passengers"`
}

func (h handler) CreateSale(c echo.Context) error {
	var request createSaleRequest
	if err := c.Bind(&request); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "failed to parse request",
			Internal: fmt.Errorf("failed to bind request: %w", err),
		}
	}

	passengers := make([]entity.Passenger, 0, len(request.Passengers))
	for _, p := range request.Passengers {
		passengers = append(passengers, entity.Passenger{
			FullName:   p.FullName,
			DocumentID: p.DocumentID,
			Phone:      p.Phone,
			SeatCode:   p.SeatCode,
		})
	}

	sale, err := h.bookings.CreateSale(c.Request().Context(), booking.CreateSaleRequest{
		TripID:        request.TripID,
		HolderToken:   request.HolderToken,
		Passengers:    passengers,
		PaymentMethod: request.PaymentMethod,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, sale)
}

func (h handler) ListSales(c echo.Context) error {
	sales, err := h.sales.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, sales)
}

type saleResponse struct {
	Sale           entity.Sale           `json:"sale"`
	FiscalDocument entity.FiscalDocument `json:"fiscal_document"`
}

func (h handler) GetSale(c echo.Context) error {
	ctx := c.Request().Context()
	reference := c.Param("reference")

	sale, err := h.sales.Get(ctx, reference)
	if err != nil {
		return httpError(err)
	}

	doc, err := h.fiscalDocs.Get(ctx, reference)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, saleResponse{
		Sale:           sale,
		FiscalDocument: doc,
	})
}

func (h handler) CancelSale(c echo.Context) error {
	if err := h.bookings.CancelSale(c.Request().Context(), c.Param("reference")); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h handler) RetryFiscalDocument(c echo.Context) error {
	if err := h.retryer.Retry(c.Request().Context(), c.Param("reference")); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h handler) GetBoardingPass(c echo.Context) error {
	ctx := c.Request().Context()

	sale, err := h.sales.Get(ctx, c.Param("reference"))
	if err != nil {
		return httpError(err)
	}
	if sale.PaymentStatus == entity.PaymentCanceled {
		return echo.NewHTTPError(http.StatusConflict, "sale is canceled")
	}

	trip, err := h.trips.Get(ctx, sale.TripID)
	if err != nil {
		return httpError(err)
	}

	pdf, err := pdfticket.Render(sale, trip)
	if err != nil {
		return &echo.HTTPError{
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("rendering boarding pass: %w", err),
		}
	}

	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

type connectivityResponse struct {
	SignalOnline bool               `json:"signal_online"`
	Mode         connectivity.Mode  `json:"mode"`
	Effective    connectivity.State `json:"effective"`
}

func (h handler) GetConnectivity(c echo.Context) error {
	return c.JSON(http.StatusOK, connectivityResponse{
		SignalOnline: h.monitor.SignalOnline(),
		Mode:         h.monitor.Mode(),
		Effective:    h.monitor.Effective(),
	})
}

type overrideRequest struct {
	Mode connectivity.Mode `json:"mode"`
}

func (h handler) SetConnectivityOverride(c echo.Context) error {
	var request overrideRequest
	if err := c.Bind(&request); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "failed to parse request",
			Internal: fmt.Errorf("failed to bind request: %w", err),
		}
	}

	if err := h.monitor.SetMode(request.Mode); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

type autoIssueRequest struct {
	Enabled bool `json:"enabled"`
}

func (h handler) SetAutoIssue(c echo.Context) error {
	var request autoIssueRequest
	if err := c.Bind(&request); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "failed to parse request",
			Internal: fmt.Errorf("failed to bind request: %w", err),
		}
	}

	h.bookings.SetAutoIssue(request.Enabled)

	return c.NoContent(http.StatusNoContent)
}

func (h handler) TriggerSync(c echo.Context) error {
	cmd := command.NewTriggerSyncDrain(uuid.NewString())
	if err := h.commandBus.Send(c.Request().Context(), cmd); err != nil {
		return &echo.HTTPError{
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("sending sync command: %w", err),
		}
	}

	return c.NoContent(http.StatusAccepted)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "booking reference not found")
	case db.IsCapacityExceeded(err):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrSeatUnavailable),
		errors.Is(err, ledger.ErrSeatNotHeld),
		errors.Is(err, db.ErrSeatTaken),
		errors.Is(err, db.ErrAlreadyCanceled),
		errors.Is(err, fiscal.ErrNotRetryable),
		errors.Is(err, fiscal.ErrOffline):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrUnknownSeat),
		errors.Is(err, connectivity.ErrUnknownMode),
		errors.Is(err, booking.ErrNoPassengers),
		errors.Is(err, booking.ErrSeatCountMismatch),
		errors.Is(err, booking.ErrDuplicateSeat),
		errors.Is(err, booking.ErrNoPaymentMethod):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: err,
		}
	}
}
