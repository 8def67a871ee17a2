package pdfticket

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"passagens/entity"

	"github.com/phpdave11/gofpdf"
)

// Render produces the printable boarding pass for a sale.
func Render(sale entity.Sale, trip entity.Trip) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Boarding pass "+sale.BookingReference, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, trip.Company)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Booking %s", sale.BookingReference))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("%s -> %s", trip.Origin, trip.Destination))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("%s  %s - %s", trip.Date.Format("02/01/2006"), trip.DepartureTime, trip.ArrivalTime))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Passengers")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 10)
	for _, p := range sale.Passengers {
		pdf.Cell(0, 6, fmt.Sprintf("%s  (doc %s)  seat %s", p.FullName, p.DocumentID, p.SeatCode))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Total %s %s  paid by %s", sale.Total.Currency, sale.Total.Amount, sale.PaymentMethod))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}

	return buf.Bytes(), nil
}

type TripStore interface {
	Get(ctx context.Context, tripID string) (entity.Trip, error)
}

// Generator renders boarding passes into a local spool directory for the
// print queue.
type Generator struct {
	trips TripStore
	dir   string
}

func NewGenerator(trips TripStore, dir string) Generator {
	return Generator{
		trips: trips,
		dir:   dir,
	}
}

func (g Generator) Generate(ctx context.Context, sale entity.Sale) (string, error) {
	trip, err := g.trips.Get(ctx, sale.TripID)
	if err != nil {
		return "", fmt.Errorf("getting trip: %w", err)
	}

	pdf, err := Render(sale, trip)
	if err != nil {
		return "", err
	}

	fileName := sale.BookingReference + ".pdf"
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating spool dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(g.dir, fileName), pdf, 0o644); err != nil {
		return "", fmt.Errorf("writing boarding pass: %w", err)
	}

	return fileName, nil
}
