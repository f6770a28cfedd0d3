package notify

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/ladder/internal/domain"
)

// Filter is the set of event kinds a channel accepts.
type Filter struct {
	all   bool
	kinds map[domain.EventKind]struct{}
}

// AllowAll admits every kind.
func AllowAll() Filter {
	return Filter{all: true}
}

// ParseFilter builds a filter from configured names. An empty list admits every kind when
// failOpen is set and nothing otherwise.
func ParseFilter(names []string, failOpen bool) (Filter, error) {
	if len(names) == 0 {
		return Filter{all: failOpen}, nil
	}

	f := Filter{kinds: make(map[domain.EventKind]struct{}, len(names))}
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), domain.AllEvents) {
			f.all = true
			continue
		}
		kind, err := domain.ParseEventKind(name)
		if err != nil {
			return Filter{}, errors.Wrap(err, "notification filter")
		}
		f.kinds[kind] = struct{}{}
	}
	return f, nil
}

// Allows reports whether kind passes the filter.
func (f Filter) Allows(kind domain.EventKind) bool {
	if f.all {
		return true
	}
	_, ok := f.kinds[kind]
	return ok
}

// Empty reports whether the filter admits nothing.
func (f Filter) Empty() bool {
	return !f.all && len(f.kinds) == 0
}
