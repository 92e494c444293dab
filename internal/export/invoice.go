package export

import (
	"context"
	"sort"
	"time"
)

const invoiceFile = "invoice_reconciliation.csv"

// InvoiceCSV writes the vendor reconciliation file: pipe-delimited because
// that is what the accounting import expects, sorted by vendor, then date,
// then ticket number so it diffs cleanly against vendor statements.
func (e *Exporter) InvoiceCSV(ctx context.Context, jobCode string, from, to time.Time) (string, error) {
	job, err := e.loadJob(ctx, jobCode)
	if err != nil {
		return "", err
	}
	tickets, err := e.store.ExpandedTicketsByDateRange(ctx, job.ID, from, to)
	if err != nil {
		return "", err
	}

	sort.Slice(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if a.VendorName != b.VendorName {
			return a.VendorName < b.VendorName
		}
		if !a.TicketDate.Equal(b.TicketDate) {
			return a.TicketDate.Before(b.TicketDate)
		}
		return a.TicketNumber < b.TicketNumber
	})

	rows := [][]string{{
		"vendor", "ticket_date", "ticket_number", "material", "quantity",
		"unit", "truck", "manifest", "source", "destination",
	}}
	for _, t := range tickets {
		vendor := t.VendorName
		if vendor == "" {
			vendor = "UNKNOWN"
		}
		rows = append(rows, []string{
			vendor,
			fmtDate(t.TicketDate),
			t.TicketNumber,
			t.MaterialName,
			fmtQty(t.Quantity),
			t.QuantityUnit,
			t.TruckNumber,
			t.ManifestNumber,
			t.SourceName,
			t.DestinationName,
		})
	}
	return e.writeCSV(invoiceFile, '|', rows)
}
