package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"passagens/booking"
	"passagens/clients"
	"passagens/command"
	"passagens/config"
	"passagens/connectivity"
	"passagens/db"
	"passagens/fiscal"
	"passagens/http"
	"passagens/ledger"
	"passagens/message"
	"passagens/pdfticket"
	"passagens/syncer"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	cfg        config.Config
	msgRouter  *message.Router
	httpRouter *echo.Echo
	forwarder  *message.Forwarder
	monitor    *connectivity.Monitor
	prober     connectivity.Prober
	seatLedger *ledger.Ledger
	syncEngine *syncer.Engine
}

func New(
	cfg config.Config,
	logger watermill.LoggerAdapter,
	redisClient *redis.Client,
	dbConn *sqlx.DB,
	monitor *connectivity.Monitor,
) (*Service, error) {
	trips := db.NewTripRepo(dbConn)
	seats := db.NewSeatRepo(dbConn)
	sales := db.NewSaleRepo(dbConn)
	fiscalDocs := db.NewFiscalRepo(dbConn)
	queue := db.NewQueueRepo(dbConn)

	seatLedger := ledger.New(trips, seats, cfg.HoldTTL)

	eventBus, err := message.NewEventBus(redisClient, logger)
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}

	gateway := clients.NewFiscalGatewayClient(cfg.FiscalGatewayAddr)
	issuer := fiscal.NewIssuer(gateway, fiscalDocs, sales, monitor, eventBus, cfg.FiscalTimeout)
	syncEngine := syncer.NewEngine(queue, sales, fiscalDocs, issuer, monitor)

	bookings := booking.NewService(
		trips,
		sales,
		seatLedger,
		queue,
		monitor,
		message.TxPublisher{Logger: logger},
		cfg.AutoIssue,
	)

	passGenerator := pdfticket.NewGenerator(trips, cfg.BoardingPassDir)

	msgRouter, err := message.NewRouter(message.RouterDeps{
		Logger:        logger,
		RedisClient:   redisClient,
		Issuer:        issuer,
		Queue:         queue,
		PassGenerator: passGenerator,
		Publisher:     eventBus,
		Syncer:        syncEngine,
	})
	if err != nil {
		return nil, fmt.Errorf("creating message router: %w", err)
	}

	forwarder, err := message.NewForwarder(dbConn, redisClient, logger)
	if err != nil {
		return nil, fmt.Errorf("creating forwarder: %w", err)
	}

	commandPublisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: redisClient,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating command publisher: %w", err)
	}

	commandBus, err := command.NewBus(commandPublisher, logger)
	if err != nil {
		return nil, fmt.Errorf("creating command bus: %w", err)
	}

	httpRouter := http.NewRouter(http.RouterDeps{
		Bookings:   bookings,
		Trips:      trips,
		Ledger:     seatLedger,
		Sales:      sales,
		FiscalDocs: fiscalDocs,
		Retryer:    issuer,
		Monitor:    monitor,
		CommandBus: commandBus,
		JWTSecret:  cfg.JWTSecret,
	})

	return &Service{
		cfg:        cfg,
		msgRouter:  msgRouter,
		httpRouter: httpRouter,
		forwarder:  forwarder,
		monitor:    monitor,
		prober:     clients.NewHealthProbe(cfg.FiscalGatewayAddr),
		seatLedger: seatLedger,
		syncEngine: syncEngine,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.msgRouter.Run(runCtx); err != nil {
			return fmt.Errorf("running messaging router: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		if err := s.forwarder.Run(runCtx); err != nil {
			return fmt.Errorf("running outbox forwarder: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return s.monitor.Run(runCtx, s.prober, s.cfg.ProbeInterval)
	})

	g.Go(func() error {
		return s.seatLedger.Run(runCtx, s.cfg.HoldTTL/2)
	})

	g.Go(func() error {
		return s.syncEngine.Run(runCtx)
	})

	g.Go(func() error {
		// Wait for message router
		<-s.msgRouter.Running()

		logrus.Info("Starting HTTP server...")
		err := s.httpRouter.Start(s.cfg.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logrus.Info("Shutting down HTTP server...")
		if err := s.httpRouter.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for shutdown: %w", err)
	}
	logrus.Info("Shutdown complete.")

	return nil
}
