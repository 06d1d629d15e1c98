package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogOrdering(t *testing.T) {
	c := NewCatalog([]Venue{
		{ID: "C", Name: "Third", Priority: 2},
		{ID: "A", Name: "First", Priority: 0},
		{ID: "B", Name: "Second", Priority: 1},
	})
	require.Equal(t, 3, c.Len())

	ids := func(vs []Venue) []string {
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = v.ID
		}
		return out
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids(c.Ordered()))

	// Mutating the returned slice must not reach into the catalog.
	got := c.Ordered()
	got[0] = Venue{ID: "Z"}
	assert.Equal(t, []string{"A", "B", "C"}, ids(c.Ordered()))
}

func TestCatalogStableTies(t *testing.T) {
	c := NewCatalog([]Venue{
		{ID: "first", Priority: 1},
		{ID: "second", Priority: 1},
	})
	got := c.Ordered()
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestParseVenueList(t *testing.T) {
	vs, err := ParseVenueList("NY_POOLSIDE=NY Poolside, DUMBO_POOL=Dumbo Pool")
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, Venue{ID: "NY_POOLSIDE", Name: "NY Poolside", Priority: 0}, vs[0])
	assert.Equal(t, Venue{ID: "DUMBO_POOL", Name: "Dumbo Pool", Priority: 1}, vs[1])

	// Name defaults to the ID when no "=" is present.
	vs, err = ParseVenueList("NY_POOLSIDE")
	require.NoError(t, err)
	assert.Equal(t, "NY_POOLSIDE", vs[0].Name)

	_, err = ParseVenueList("")
	assert.Error(t, err)
	_, err = ParseVenueList("=Nameless")
	assert.Error(t, err)
}
