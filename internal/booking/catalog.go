package booking

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog is the static ordered list of candidate venues, loaded at process
// start. Ordering is fixed for the life of the process; ties keep their
// configured position.
type Catalog struct {
	venues []Venue
}

func NewCatalog(venues []Venue) *Catalog {
	vs := make([]Venue, len(venues))
	copy(vs, venues)
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].Priority < vs[j].Priority })
	return &Catalog{venues: vs}
}

// Ordered returns the fallback chain, most preferred first. The returned
// slice is a copy; callers cannot disturb the catalog.
func (c *Catalog) Ordered() []Venue {
	out := make([]Venue, len(c.venues))
	copy(out, c.venues)
	return out
}

func (c *Catalog) Len() int { return len(c.venues) }

// ParseVenueList parses a comma-separated venue list, e.g.
// "NY_POOLSIDE=NY Poolside,DUMBO_POOL". Priority follows list position.
func ParseVenueList(s string) ([]Venue, error) {
	var out []Venue
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name := part, part
		if i := strings.IndexByte(part, '='); i >= 0 {
			id = strings.TrimSpace(part[:i])
			name = strings.TrimSpace(part[i+1:])
			if id == "" || name == "" {
				return nil, fmt.Errorf("invalid venue entry %q", part)
			}
		}
		out = append(out, Venue{ID: id, Name: name, Priority: len(out)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("venue list is empty")
	}
	return out, nil
}
