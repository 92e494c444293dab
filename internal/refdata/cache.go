package refdata

import (
	"context"

	"ticketflow/internal/logging"
)

// Cache memoizes reference lookups for the lifetime of one logical
// transaction/session. Lookups are exact-match and case-sensitive; a miss
// costs one round-trip and is then remembered (hits and misses both), so a
// batch of pages never repeats the same reference query.
//
// A Cache is scoped to a single session. Callers must not share one across
// concurrent workers; each worker owns its own Cache over its own store
// connection.
type Cache struct {
	src Catalog

	jobs         map[string]*Job
	jobCodes     map[string]*Job
	materials    map[string]*Material
	sources      map[string]*Source
	destinations map[string]*Destination
	vendors      map[string]*Vendor
	ticketTypes  map[string]*TicketType
}

// NewCache returns an empty cache over the given catalog source.
func NewCache(src Catalog) *Cache {
	c := &Cache{src: src}
	c.Clear()
	return c
}

var _ Lookup = (*Cache)(nil)

// Clear invalidates everything.
func (c *Cache) Clear() {
	c.jobs = make(map[string]*Job)
	c.jobCodes = make(map[string]*Job)
	c.materials = make(map[string]*Material)
	c.sources = make(map[string]*Source)
	c.destinations = make(map[string]*Destination)
	c.vendors = make(map[string]*Vendor)
	c.ticketTypes = make(map[string]*TicketType)
}

// JobByName returns the job with the given name, or nil.
func (c *Cache) JobByName(ctx context.Context, name string) (*Job, error) {
	if v, ok := c.jobs[name]; ok {
		return v, nil
	}
	v, err := c.src.JobByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.jobs[name] = v
	return v, nil
}

// JobByCode returns the job with the given code, or nil.
func (c *Cache) JobByCode(ctx context.Context, code string) (*Job, error) {
	if v, ok := c.jobCodes[code]; ok {
		return v, nil
	}
	v, err := c.src.JobByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	c.jobCodes[code] = v
	return v, nil
}

// MaterialByName returns the material with the given name, or nil.
func (c *Cache) MaterialByName(ctx context.Context, name string) (*Material, error) {
	if v, ok := c.materials[name]; ok {
		return v, nil
	}
	v, err := c.src.MaterialByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.materials[name] = v
	return v, nil
}

// SourceByName returns the source with the given name, or nil.
func (c *Cache) SourceByName(ctx context.Context, name string) (*Source, error) {
	if v, ok := c.sources[name]; ok {
		return v, nil
	}
	v, err := c.src.SourceByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.sources[name] = v
	return v, nil
}

// DestinationByName returns the destination with the given name, or nil.
func (c *Cache) DestinationByName(ctx context.Context, name string) (*Destination, error) {
	if v, ok := c.destinations[name]; ok {
		return v, nil
	}
	v, err := c.src.DestinationByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.destinations[name] = v
	return v, nil
}

// VendorByName returns the vendor with the given name, or nil.
func (c *Cache) VendorByName(ctx context.Context, name string) (*Vendor, error) {
	if v, ok := c.vendors[name]; ok {
		return v, nil
	}
	v, err := c.src.VendorByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.vendors[name] = v
	return v, nil
}

// TicketTypeByName returns the ticket type with the given name, or nil.
func (c *Cache) TicketTypeByName(ctx context.Context, name string) (*TicketType, error) {
	if v, ok := c.ticketTypes[name]; ok {
		return v, nil
	}
	v, err := c.src.TicketTypeByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.ticketTypes[name] = v
	return v, nil
}

// PreloadAll warms the cache with one query per reference table.
func (c *Cache) PreloadAll(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryStore, "Cache.PreloadAll")
	defer timer.Stop()

	jobs, err := c.src.AllJobs(ctx)
	if err != nil {
		return err
	}
	for i := range jobs {
		j := &jobs[i]
		c.jobs[j.Name] = j
		c.jobCodes[j.Code] = j
	}

	materials, err := c.src.AllMaterials(ctx)
	if err != nil {
		return err
	}
	for i := range materials {
		c.materials[materials[i].Name] = &materials[i]
	}

	sources, err := c.src.AllSources(ctx)
	if err != nil {
		return err
	}
	for i := range sources {
		c.sources[sources[i].Name] = &sources[i]
	}

	destinations, err := c.src.AllDestinations(ctx)
	if err != nil {
		return err
	}
	for i := range destinations {
		c.destinations[destinations[i].Name] = &destinations[i]
	}

	vendors, err := c.src.AllVendors(ctx)
	if err != nil {
		return err
	}
	for i := range vendors {
		c.vendors[vendors[i].Name] = &vendors[i]
	}

	ticketTypes, err := c.src.AllTicketTypes(ctx)
	if err != nil {
		return err
	}
	for i := range ticketTypes {
		c.ticketTypes[ticketTypes[i].Name] = &ticketTypes[i]
	}

	logging.StoreDebug("Cache preloaded: %d jobs, %d materials, %d sources, %d destinations, %d vendors, %d ticket types",
		len(jobs), len(materials), len(sources), len(destinations), len(vendors), len(ticketTypes))
	return nil
}
