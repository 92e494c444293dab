package refdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLookup records round-trips per entity name.
type countingLookup struct {
	calls     map[string]int
	materials map[string]*Material
	vendors   map[string]*Vendor
}

func newCountingLookup() *countingLookup {
	return &countingLookup{
		calls: make(map[string]int),
		materials: map[string]*Material{
			"CLASS_2_CONTAMINATED": {ID: 1, Name: "CLASS_2_CONTAMINATED", Class: MaterialContaminated, RequiresManifest: true},
		},
		vendors: map[string]*Vendor{
			"WASTE_MANAGEMENT": {ID: 7, Name: "WASTE_MANAGEMENT", Code: "WM"},
		},
	}
}

func (c *countingLookup) JobByName(ctx context.Context, name string) (*Job, error) {
	c.calls["job:"+name]++
	return nil, nil
}

func (c *countingLookup) JobByCode(ctx context.Context, code string) (*Job, error) {
	c.calls["jobcode:"+code]++
	if code == "24-105" {
		return &Job{ID: 1, Code: "24-105"}, nil
	}
	return nil, nil
}

func (c *countingLookup) MaterialByName(ctx context.Context, name string) (*Material, error) {
	c.calls["material:"+name]++
	return c.materials[name], nil
}

func (c *countingLookup) SourceByName(ctx context.Context, name string) (*Source, error) {
	c.calls["source:"+name]++
	return nil, nil
}

func (c *countingLookup) DestinationByName(ctx context.Context, name string) (*Destination, error) {
	c.calls["destination:"+name]++
	return nil, nil
}

func (c *countingLookup) VendorByName(ctx context.Context, name string) (*Vendor, error) {
	c.calls["vendor:"+name]++
	return c.vendors[name], nil
}

func (c *countingLookup) TicketTypeByName(ctx context.Context, name string) (*TicketType, error) {
	c.calls["tickettype:"+name]++
	return nil, nil
}

func (c *countingLookup) AllJobs(ctx context.Context) ([]Job, error) {
	c.calls["all:jobs"]++
	return []Job{{ID: 1, Code: "24-105", Name: "Southgate"}}, nil
}

func (c *countingLookup) AllMaterials(ctx context.Context) ([]Material, error) {
	c.calls["all:materials"]++
	out := make([]Material, 0, len(c.materials))
	for _, m := range c.materials {
		out = append(out, *m)
	}
	return out, nil
}

func (c *countingLookup) AllSources(ctx context.Context) ([]Source, error) {
	c.calls["all:sources"]++
	return nil, nil
}

func (c *countingLookup) AllDestinations(ctx context.Context) ([]Destination, error) {
	c.calls["all:destinations"]++
	return nil, nil
}

func (c *countingLookup) AllVendors(ctx context.Context) ([]Vendor, error) {
	c.calls["all:vendors"]++
	out := make([]Vendor, 0, len(c.vendors))
	for _, v := range c.vendors {
		out = append(out, *v)
	}
	return out, nil
}

func (c *countingLookup) AllTicketTypes(ctx context.Context) ([]TicketType, error) {
	c.calls["all:tickettypes"]++
	return []TicketType{{ID: 1, Name: "EXPORT"}}, nil
}

func TestCacheMemoizesHits(t *testing.T) {
	ctx := context.Background()
	src := newCountingLookup()
	cache := NewCache(src)

	for i := 0; i < 5; i++ {
		m, err := cache.MaterialByName(ctx, "CLASS_2_CONTAMINATED")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, m.RequiresManifest)
	}
	assert.Equal(t, 1, src.calls["material:CLASS_2_CONTAMINATED"])
}

func TestCacheMemoizesMisses(t *testing.T) {
	ctx := context.Background()
	src := newCountingLookup()
	cache := NewCache(src)

	for i := 0; i < 3; i++ {
		m, err := cache.MaterialByName(ctx, "UNOBTANIUM")
		require.NoError(t, err)
		assert.Nil(t, m)
	}
	assert.Equal(t, 1, src.calls["material:UNOBTANIUM"])
}

func TestCacheIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	src := newCountingLookup()
	cache := NewCache(src)

	_, err := cache.VendorByName(ctx, "WASTE_MANAGEMENT")
	require.NoError(t, err)
	_, err = cache.VendorByName(ctx, "waste_management")
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls["vendor:WASTE_MANAGEMENT"])
	assert.Equal(t, 1, src.calls["vendor:waste_management"])
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	src := newCountingLookup()
	cache := NewCache(src)

	_, err := cache.MaterialByName(ctx, "CLASS_2_CONTAMINATED")
	require.NoError(t, err)
	cache.Clear()
	_, err = cache.MaterialByName(ctx, "CLASS_2_CONTAMINATED")
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls["material:CLASS_2_CONTAMINATED"])
}

func TestCachePreloadAll(t *testing.T) {
	ctx := context.Background()
	src := newCountingLookup()
	cache := NewCache(src)

	require.NoError(t, cache.PreloadAll(ctx))

	job, err := cache.JobByCode(ctx, "24-105")
	require.NoError(t, err)
	require.NotNil(t, job)
	m, err := cache.MaterialByName(ctx, "CLASS_2_CONTAMINATED")
	require.NoError(t, err)
	require.NotNil(t, m)
	tt, err := cache.TicketTypeByName(ctx, "EXPORT")
	require.NoError(t, err)
	require.NotNil(t, tt)

	// Preload issued one query per table and nothing per name.
	assert.Equal(t, 1, src.calls["all:materials"])
	assert.Equal(t, 0, src.calls["material:CLASS_2_CONTAMINATED"])
	assert.Equal(t, 0, src.calls["jobcode:24-105"])
}
