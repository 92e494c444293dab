// Package export renders persisted tickets into the deliverables the office
// actually files: the tracking workbook, vendor invoice reconciliation, the
// regulatory manifest log, and the review-queue worksheet.
package export

import (
	"fmt"
	"time"
)

// mondayOf returns the Monday of the week containing d.
func mondayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return time.Date(d.Year(), d.Month(), d.Day()-offset, 0, 0, 0, 0, d.Location())
}

// JobWeek numbers d's week relative to the job's start: week 1 is the week
// containing the start date, weeks begin on Monday.
func JobWeek(jobStart, d time.Time) int {
	anchor := mondayOf(jobStart)
	days := int(d.Sub(anchor).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days/7 + 1
}

// JobMonth numbers d's calendar month relative to the job's start month,
// starting at 1.
func JobMonth(jobStart, d time.Time) int {
	months := 12*(d.Year()-jobStart.Year()) + int(d.Month()) - int(jobStart.Month()) + 1
	if months < 1 {
		return 0
	}
	return months
}

// WeekLabel formats a job week as the workbook's WK### column key.
func WeekLabel(n int) string {
	return fmt.Sprintf("WK%03d", n)
}

// MonthLabel formats a job month as MO###.
func MonthLabel(n int) string {
	return fmt.Sprintf("MO%03d", n)
}
