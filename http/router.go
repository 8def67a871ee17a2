package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var ErrServerClosed = http.ErrServerClosed

type RouterDeps struct {
	Bookings   Bookings
	Trips      TripStore
	Ledger     SeatLedger
	Sales      SaleStore
	FiscalDocs FiscalDocs
	Retryer    FiscalRetryer
	Monitor    Monitor
	CommandBus CommandBus
	JWTSecret  string
}

func NewRouter(deps RouterDeps) *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	server.Use(middleware.Recover())
	server.Use(correlationID)
	server.Use(requestLogger)

	server.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	handler := handler{
		bookings:   deps.Bookings,
		trips:      deps.Trips,
		ledger:     deps.Ledger,
		sales:      deps.Sales,
		fiscalDocs: deps.FiscalDocs,
		retryer:    deps.Retryer,
		monitor:    deps.Monitor,
		commandBus: deps.CommandBus,
	}

	server.GET("/trips", handler.ListTrips)
	server.GET("/trips/:id/seats", handler.GetSeatMap)
	server.POST("/trips/:id/holds", handler.CreateHold)
	server.DELETE("/trips/:id/holds/:code", handler.ReleaseHold)

	server.POST("/sales", handler.CreateSale)
	server.GET("/sales", handler.ListSales)
	server.GET("/sales/:reference", handler.GetSale)
	server.GET("/sales/:reference/boarding-pass", handler.GetBoardingPass)

	server.GET("/connectivity", handler.GetConnectivity)

	operator := server.Group("", operatorAuth(deps.JWTSecret))
	operator.POST("/trips", handler.CreateTrip)
	operator.POST("/sales/:reference/cancel", handler.CancelSale)
	operator.POST("/sales/:reference/fiscal/retry", handler.RetryFiscalDocument)
	operator.PUT("/connectivity/override", handler.SetConnectivityOverride)
	operator.PUT("/settings/auto-issue", handler.SetAutoIssue)
	operator.POST("/sync", handler.TriggerSync)

	return server
}
