package config

import (
	"sort"
	"strings"
)

// Roster is the fixed set of administrator ids, read once at startup.
type Roster struct {
	ids map[string]struct{}
}

func NewRoster(ids ...string) Roster {
	r := Roster{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			r.ids[id] = struct{}{}
		}
	}
	return r
}

// ParseRoster reads a comma separated id list.
func ParseRoster(s string) Roster { return NewRoster(strings.Split(s, ",")...) }

func (r Roster) IsAdmin(id string) bool {
	_, ok := r.ids[id]
	return ok
}

func (r Roster) Len() int { return len(r.ids) }

// IDs returns the administrators in a stable order.
func (r Roster) IDs() []string {
	out := make([]string, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
