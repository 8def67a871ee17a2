package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func InitialiseDB(ctx context.Context, db *sqlx.DB) error {
	if err := CreateTripsTable(ctx, db); err != nil {
		return fmt.Errorf("creating trips table: %w", err)
	}

	if err := CreateOccupiedSeatsTable(ctx, db); err != nil {
		return fmt.Errorf("creating occupied seats table: %w", err)
	}

	if err := CreateSalesTables(ctx, db); err != nil {
		return fmt.Errorf("creating sales tables: %w", err)
	}

	if err := CreateFiscalDocumentsTable(ctx, db); err != nil {
		return fmt.Errorf("creating fiscal documents table: %w", err)
	}

	if err := CreatePendingSyncQueueTable(ctx, db); err != nil {
		return fmt.Errorf("creating pending sync queue table: %w", err)
	}

	return nil
}
