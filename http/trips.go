package http

import (
	"fmt"
	"net/http"
	"time"

	"passagens/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type createTripRequest struct {
	Origin        string       `json:"origin"`
	Destination   string       `json:"destination"`
	DepartureTime string       `json:"departure_time"`
	ArrivalTime   string       `json:"arrival_time"`
	Date          time.Time    `json:"date"`
	Price         entity.Money `json:"price"`
	TransportMode string       `json:"transport_mode"`
	SeatCapacity  uint         `json:"seat_capacity"`
	Company       string       `json:"company"`
}

func (h handler) CreateTrip(c echo.Context) error {
	var request createTripRequest
	if err := c.Bind(&request); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "failed to parse request",
			Internal: fmt.Errorf("failed to bind request: %w", err),
		}
	}

	if request.TransportMode != entity.TransportBus && request.TransportMode != entity.TransportBoat {
		return echo.NewHTTPError(http.StatusBadRequest, "transport_mode must be bus or boat")
	}
	if request.Origin == "" || request.Destination == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "origin and destination are required")
	}
	if request.SeatCapacity == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "seat_capacity must be positive")
	}
	if request.SeatCapacity%uint(seatsPerRow(request.TransportMode)) != 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "seat_capacity must fill whole rows")
	}

	trip := entity.Trip{
		ID:            uuid.NewString(),
		Origin:        request.Origin,
		Destination:   request.Destination,
		DepartureTime: request.DepartureTime,
		ArrivalTime:   request.ArrivalTime,
		Date:          request.Date,
		Price:         request.Price,
		TransportMode: request.TransportMode,
		SeatCapacity:  request.SeatCapacity,
		Company:       request.Company,
	}

	if err := h.trips.Add(c.Request().Context(), trip); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, trip)
}

func seatsPerRow(transportMode string) int {
	return entity.Trip{TransportMode: transportMode}.SeatsPerRow()
}

func (h handler) ListTrips(c echo.Context) error {
	trips, err := h.trips.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, trips)
}

func (h handler) GetSeatMap(c echo.Context) error {
	seats, err := h.ledger.SeatMap(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, seats)
}
