package event

import (
	"passagens/entity"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

type header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func newHeader(idempotencyKey string) header {
	return header{
		ID:             watermill.NewUUID(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type SaleCompleted struct {
	Header           header             `json:"header"`
	BookingReference string             `json:"booking_reference"`
	TripID           string             `json:"trip_id"`
	Passengers       []entity.Passenger `json:"passengers"`
	Total            entity.Money       `json:"total"`
	PaymentMethod    string             `json:"payment_method"`
	OfflineSale      bool               `json:"offline_sale"`
}

func NewSaleCompleted(idempotencyKey string, sale entity.Sale) SaleCompleted {
	return SaleCompleted{
		Header:           newHeader(idempotencyKey),
		BookingReference: sale.BookingReference,
		TripID:           sale.TripID,
		Passengers:       sale.Passengers,
		Total:            sale.Total,
		PaymentMethod:    sale.PaymentMethod,
		OfflineSale:      sale.OfflineSale,
	}
}

type SaleCanceled struct {
	Header           header   `json:"header"`
	BookingReference string   `json:"booking_reference"`
	TripID           string   `json:"trip_id"`
	SeatsReleased    []string `json:"seats_released"`
}

func NewSaleCanceled(idempotencyKey, bookingReference, tripID string, seatsReleased []string) SaleCanceled {
	return SaleCanceled{
		Header:           newHeader(idempotencyKey),
		BookingReference: bookingReference,
		TripID:           tripID,
		SeatsReleased:    seatsReleased,
	}
}

type FiscalDocumentIssued struct {
	Header                header    `json:"header"`
	BookingReference      string    `json:"booking_reference"`
	AuthorizationProtocol string    `json:"authorization_protocol"`
	EmittedAt             time.Time `json:"emitted_at"`
}

func NewFiscalDocumentIssued(idempotencyKey, bookingReference, protocol string, emittedAt time.Time) FiscalDocumentIssued {
	return FiscalDocumentIssued{
		Header:                newHeader(idempotencyKey),
		BookingReference:      bookingReference,
		AuthorizationProtocol: protocol,
		EmittedAt:             emittedAt,
	}
}

type BoardingPassGenerated struct {
	Header           header `json:"header"`
	BookingReference string `json:"booking_reference"`
	FileName         string `json:"file_name"`
}

func NewBoardingPassGenerated(idempotencyKey, bookingReference, fileName string) BoardingPassGenerated {
	return BoardingPassGenerated{
		Header:           newHeader(idempotencyKey),
		BookingReference: bookingReference,
		FileName:         fileName,
	}
}
