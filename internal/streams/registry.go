// Package streams holds the static registry of configured video streams.
// The registry is built once at startup and never mutated afterwards, so it
// needs no synchronization.
package streams

import (
	"sort"

	"github.com/skyfence/detection-api/internal/model"
)

// Registry is a read-only name -> stream lookup.
type Registry struct {
	byName map[string]model.StreamInfo
	names  []string
}

// New builds a registry from configured streams. Later entries with a
// duplicate name win, matching config override order.
func New(infos []model.StreamInfo) *Registry {
	byName := make(map[string]model.StreamInfo, len(infos))
	for _, si := range infos {
		if si.Status == "" {
			si.Status = "active"
		}
		byName[si.Name] = si
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{byName: byName, names: names}
}

// Get returns the stream with the given name.
func (r *Registry) Get(name string) (model.StreamInfo, bool) {
	si, ok := r.byName[name]
	return si, ok
}

// List returns all streams in name order.
func (r *Registry) List() []model.StreamInfo {
	out := make([]model.StreamInfo, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered stream names in order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered streams.
func (r *Registry) Len() int {
	return len(r.byName)
}
