// Package refdata defines the reference entities of the ticket dataset
// (jobs, materials, sources, destinations, vendors, ticket types), a
// per-session lookup cache, and the synonym normalizer that maps OCR surface
// forms to canonical names.
package refdata

import (
	"context"
	"time"
)

// MaterialClass categorizes what a load carries.
type MaterialClass string

const (
	MaterialContaminated MaterialClass = "CONTAMINATED"
	MaterialClean        MaterialClass = "CLEAN"
	MaterialWaste        MaterialClass = "WASTE"
	MaterialImport       MaterialClass = "IMPORT"
	MaterialSpoils       MaterialClass = "SPOILS"
)

// Job is a construction project.
type Job struct {
	ID        int64
	Code      string // unique, e.g. "24-105"
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Material is a controlled-vocabulary material type.
type Material struct {
	ID               int64
	Name             string // unique canonical name
	Class            MaterialClass
	RequiresManifest bool
}

// Source is an on-site location or originating sub-area.
type Source struct {
	ID          int64
	Name        string // unique canonical name
	JobID       *int64
	Description string
}

// Destination is a disposal or receiving facility.
type Destination struct {
	ID               int64
	Name             string // unique canonical name
	FacilityType     string
	Address          string
	RequiresManifest bool
}

// Vendor is a hauling company that issues tickets.
type Vendor struct {
	ID          int64
	Name        string // unique canonical name
	Code        string
	ContactInfo string
}

// TicketType is the direction of a load.
type TicketType struct {
	ID   int64
	Name string // EXPORT, IMPORT, TRANSFER
}

// Lookup resolves reference entities by canonical name. Implementations
// return (nil, nil) on a clean miss; errors are reserved for infrastructure
// failures. The store package provides the database-backed implementation;
// Cache wraps any Lookup with per-session memoization.
type Lookup interface {
	JobByName(ctx context.Context, name string) (*Job, error)
	JobByCode(ctx context.Context, code string) (*Job, error)
	MaterialByName(ctx context.Context, name string) (*Material, error)
	SourceByName(ctx context.Context, name string) (*Source, error)
	DestinationByName(ctx context.Context, name string) (*Destination, error)
	VendorByName(ctx context.Context, name string) (*Vendor, error)
	TicketTypeByName(ctx context.Context, name string) (*TicketType, error)
}

// Catalog extends Lookup with full-table enumeration, used to warm the
// cache and to drive reference listings.
type Catalog interface {
	Lookup

	AllJobs(ctx context.Context) ([]Job, error)
	AllMaterials(ctx context.Context) ([]Material, error)
	AllSources(ctx context.Context) ([]Source, error)
	AllDestinations(ctx context.Context) ([]Destination, error)
	AllVendors(ctx context.Context) ([]Vendor, error)
	AllTicketTypes(ctx context.Context) ([]TicketType, error)
}
