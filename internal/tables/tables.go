// Package tables lists the migration streams of every service.
package tables

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Limetric/simschema/internal/migration"
	"github.com/Limetric/simschema/internal/service/avatarname"
	"github.com/Limetric/simschema/internal/service/travelingdata"
	"github.com/Limetric/simschema/internal/service/useraccount"
)

// Stream is the migration of one service, named after its main table.
type Stream struct {
	Name     string
	Elements []migration.Element
}

var streams = []Stream{
	{Name: "avatarnames", Elements: avatarname.Migrations},
	{Name: "travelingdata", Elements: travelingdata.Migrations},
	{Name: "useraccounts", Elements: useraccount.Migrations},
}

// All returns every registered stream, sorted by name.
func All() []Stream {
	out := make([]Stream, len(streams))
	copy(out, streams)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Select returns the named streams in the given order, or all of them when
// names is empty.
func Select(names []string) ([]Stream, error) {
	if len(names) == 0 {
		return All(), nil
	}
	byName := make(map[string]Stream, len(streams))
	for _, s := range streams {
		byName[s.Name] = s
	}
	out := make([]Stream, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown table stream %q (available: %s)", n, strings.Join(Names(), ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

// Names returns the sorted stream names.
func Names() []string {
	names := make([]string, len(streams))
	for i, s := range streams {
		names[i] = s.Name
	}
	sort.Strings(names)
	return names
}
