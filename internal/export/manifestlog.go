package export

import (
	"context"
	"time"

	"ticketflow/internal/manifest"
	"ticketflow/internal/refdata"
	"ticketflow/internal/store"
)

const manifestFile = "manifest_log.csv"

// ManifestLog writes the regulatory log: every manifest-required ticket in
// chronological order, with a flag on manifest numbers that appear on more
// than one ticket. Missing numbers print as MISSING so the gap is visible
// on paper, not silently blank.
func (e *Exporter) ManifestLog(ctx context.Context, jobCode string, from, to time.Time) (string, error) {
	job, err := e.loadJob(ctx, jobCode)
	if err != nil {
		return "", err
	}
	tickets, err := e.store.ExpandedTicketsByDateRange(ctx, job.ID, from, to)
	if err != nil {
		return "", err
	}

	var required []store.ExpandedTicket
	uses := make(map[string]int)
	for _, t := range tickets {
		in := manifest.Input{
			MaterialName:    t.MaterialName,
			DestinationName: t.DestinationName,
			ManifestNumber:  t.ManifestNumber,
			Material: &refdata.Material{
				Name:             t.MaterialName,
				Class:            refdata.MaterialClass(t.MaterialClass),
				RequiresManifest: t.MaterialClass == "CONTAMINATED",
			},
		}
		if !manifest.Requires(in) {
			continue
		}
		required = append(required, t)
		if t.ManifestNumber != "" {
			uses[t.ManifestNumber]++
		}
	}

	rows := [][]string{{
		"ticket_date", "manifest_number", "ticket_number", "material",
		"quantity", "unit", "destination", "vendor", "flag",
	}}
	for _, t := range required {
		num := t.ManifestNumber
		flag := ""
		switch {
		case num == "":
			num = "MISSING"
			flag = "NO_MANIFEST"
		case uses[t.ManifestNumber] > 1:
			flag = "REUSED"
		}
		rows = append(rows, []string{
			fmtDate(t.TicketDate),
			num,
			t.TicketNumber,
			t.MaterialName,
			fmtQty(t.Quantity),
			t.QuantityUnit,
			t.DestinationName,
			t.VendorName,
			flag,
		})
	}
	return e.writeCSV(manifestFile, ',', rows)
}
