package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"passagens/entity"
	"passagens/fiscal"
	"passagens/logging"
)

// FiscalGatewayClient submits sale snapshots to the fiscal authority
// gateway for BP-e issuance.
type FiscalGatewayClient struct {
	baseURL string
	client  *http.Client
}

func NewFiscalGatewayClient(baseURL string) *FiscalGatewayClient {
	return &FiscalGatewayClient{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

type submitBPeRequest struct {
	BookingReference string             `json:"booking_reference"`
	TripID           string             `json:"trip_id"`
	Passengers       []entity.Passenger `json:"passengers"`
	Total            entity.Money       `json:"total"`
	PaymentMethod    string             `json:"payment_method"`
	SoldAt           time.Time          `json:"sold_at"`
	OfflineSale      bool               `json:"offline_sale"`
}

type submitBPeResponse struct {
	AuthorizationProtocol string `json:"authorization_protocol"`
	Payload               string `json:"payload"`
}

func (c *FiscalGatewayClient) SubmitBPe(ctx context.Context, sale entity.Sale) (fiscal.Authorization, error) {
	body, err := json.Marshal(submitBPeRequest{
		BookingReference: sale.BookingReference,
		TripID:           sale.TripID,
		Passengers:       sale.Passengers,
		Total:            sale.Total,
		PaymentMethod:    sale.PaymentMethod,
		SoldAt:           sale.CreatedAt,
		OfflineSale:      sale.OfflineSale,
	})
	if err != nil {
		return fiscal.Authorization{}, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bpe", bytes.NewReader(body))
	if err != nil {
		return fiscal.Authorization{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Correlation-ID", logging.CorrelationIDFromContext(ctx))

	res, err := c.client.Do(req)
	if err != nil {
		return fiscal.Authorization{}, fmt.Errorf("sending submit request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fiscal.Authorization{}, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var response submitBPeResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return fiscal.Authorization{}, fmt.Errorf("decoding response: %w", err)
	}

	return fiscal.Authorization{
		Protocol: response.AuthorizationProtocol,
		Payload:  response.Payload,
	}, nil
}
