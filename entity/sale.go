package entity

import "time"

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentCanceled  = "canceled"
)

// Sale is one completed purchase covering one or more seats on a trip,
// keyed by the human-facing booking reference.
type Sale struct {
	BookingReference string      `json:"booking_reference" db:"booking_reference"`
	TripID           string      `json:"trip_id" db:"trip_id"`
	Passengers       []Passenger `json:"passengers"`
	Total            Money       `json:"total"`
	PaymentMethod    string      `json:"payment_method" db:"payment_method"`
	PaymentStatus    string      `json:"payment_status" db:"payment_status"`
	OfflineSale      bool        `json:"offline_sale" db:"offline_sale"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

func (s Sale) SeatCodes() []string {
	codes := make([]string, 0, len(s.Passengers))
	for _, p := range s.Passengers {
		codes = append(codes, p.SeatCode)
	}
	return codes
}

const (
	FiscalPending  = "pending"
	FiscalIssued   = "issued"
	FiscalFailed   = "failed"
	FiscalCanceled = "canceled"
)

// FiscalDocument is the BP-e issued for a completed sale. Issued and
// canceled are terminal; a sale canceled after issuance is recorded in
// Note, never by downgrading the status.
type FiscalDocument struct {
	BookingReference      string     `json:"booking_reference" db:"booking_reference"`
	Status                string     `json:"status" db:"status"`
	EmittedAt             *time.Time `json:"emitted_at,omitempty" db:"emitted_at"`
	AuthorizationProtocol string     `json:"authorization_protocol,omitempty" db:"authorization_protocol"`
	Payload               string     `json:"payload,omitempty" db:"payload"`
	Note                  string     `json:"note,omitempty" db:"note"`
}
