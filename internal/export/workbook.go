package export

import (
	"context"
	"sort"
	"strconv"
	"time"

	"ticketflow/internal/store"
)

// Workbook sheet filenames.
const (
	sheetDaily        = "daily_combined.csv"
	sheetContaminated = "contaminated_by_source.csv"
	sheetClean        = "clean_by_source.csv"
	sheetSpoils       = "spoils_by_source.csv"
	sheetImports      = "imports_by_material.csv"
)

// Workbook writes the tracking workbook: one combined daily sheet plus the
// per-class pivots the field office reads side by side. Returns the written
// file paths.
func (e *Exporter) Workbook(ctx context.Context, jobCode string, from, to time.Time) ([]string, error) {
	job, err := e.loadJob(ctx, jobCode)
	if err != nil {
		return nil, err
	}
	tickets, err := e.store.ExpandedTicketsByDateRange(ctx, job.ID, from, to)
	if err != nil {
		return nil, err
	}

	var paths []string
	p, err := e.writeCSV(sheetDaily, ',', dailySheet(job.StartDate, tickets))
	if err != nil {
		return nil, err
	}
	paths = append(paths, p)

	for _, sheet := range []struct {
		name  string
		class string
	}{
		{sheetContaminated, "CONTAMINATED"},
		{sheetClean, "CLEAN"},
		{sheetSpoils, "SPOILS"},
	} {
		rows := pivotSheet(tickets, sheet.class, func(t store.ExpandedTicket) string { return t.SourceName })
		p, err := e.writeCSV(sheet.name, ',', rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	rows := pivotSheet(tickets, "IMPORT", func(t store.ExpandedTicket) string { return t.MaterialName })
	p, err = e.writeCSV(sheetImports, ',', rows)
	if err != nil {
		return nil, err
	}
	paths = append(paths, p)
	return paths, nil
}

// dailySheet is one row per ticket date: job calendar position plus load
// and quantity totals per material class.
func dailySheet(jobStart time.Time, tickets []store.ExpandedTicket) [][]string {
	type totals struct {
		loads        int
		quantity     float64
		contaminated float64
		clean        float64
		spoils       float64
		imports      float64
		waste        float64
	}
	byDate := make(map[string]*totals)
	for _, t := range tickets {
		key := fmtDate(t.TicketDate)
		d, ok := byDate[key]
		if !ok {
			d = &totals{}
			byDate[key] = d
		}
		d.loads++
		d.quantity += t.Quantity
		switch t.MaterialClass {
		case "CONTAMINATED":
			d.contaminated += t.Quantity
		case "CLEAN":
			d.clean += t.Quantity
		case "SPOILS":
			d.spoils += t.Quantity
		case "IMPORT":
			d.imports += t.Quantity
		case "WASTE":
			d.waste += t.Quantity
		}
	}

	dates := make([]string, 0, len(byDate))
	for k := range byDate {
		dates = append(dates, k)
	}
	sort.Strings(dates)

	rows := [][]string{{
		"date", "job_week", "job_month", "loads", "total_qty",
		"contaminated", "clean", "spoils", "imports", "waste",
	}}
	for _, date := range dates {
		d := byDate[date]
		day, _ := time.Parse("2006-01-02", date)
		rows = append(rows, []string{
			date,
			WeekLabel(JobWeek(jobStart, day)),
			MonthLabel(JobMonth(jobStart, day)),
			strconv.Itoa(d.loads),
			fmtQty(d.quantity),
			fmtQty(d.contaminated),
			fmtQty(d.clean),
			fmtQty(d.spoils),
			fmtQty(d.imports),
			fmtQty(d.waste),
		})
	}
	return rows
}

// pivotSheet is dates down, one column per key (source or material), summed
// quantities in the cells. Tickets outside the class are ignored; tickets
// with no key land in an UNASSIGNED column.
func pivotSheet(tickets []store.ExpandedTicket, class string, keyOf func(store.ExpandedTicket) string) [][]string {
	cells := make(map[string]map[string]float64) // date -> key -> qty
	keys := make(map[string]bool)
	for _, t := range tickets {
		if t.MaterialClass != class {
			continue
		}
		key := keyOf(t)
		if key == "" {
			key = "UNASSIGNED"
		}
		keys[key] = true
		date := fmtDate(t.TicketDate)
		if cells[date] == nil {
			cells[date] = make(map[string]float64)
		}
		cells[date][key] += t.Quantity
	}

	cols := make([]string, 0, len(keys))
	for k := range keys {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	dates := make([]string, 0, len(cells))
	for d := range cells {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	header := append([]string{"date"}, cols...)
	header = append(header, "total")
	rows := [][]string{header}
	for _, date := range dates {
		row := []string{date}
		var total float64
		for _, col := range cols {
			q := cells[date][col]
			total += q
			row = append(row, fmtQty(q))
		}
		row = append(row, fmtQty(total))
		rows = append(rows, row)
	}
	return rows
}
