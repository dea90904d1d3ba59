// Package registry provides the department registry: the ordered mapping of
// department id to display name, contact address, and keyword set used by
// the classifier. The registry is read-mostly; Reload swaps in a fresh
// snapshot without restarting the process.
package registry

import (
	"fmt"
	"os"
	"sync/atomic"

	"complaints_backend/platform/apperr"

	"gopkg.in/yaml.v3"
)

// UnclassifiedID is the reserved department for complaints the classifier
// could not route. It is always present and carries no keywords.
const UnclassifiedID = "unclassified"

// Department describes a city department that handles complaints.
type Department struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	ContactEmail string   `yaml:"contact_email" json:"contactEmail,omitempty"`
	Keywords     []string `yaml:"keywords" json:"-"`
}

type snapshot struct {
	ordered []Department
	byID    map[string]Department
}

// Registry holds an atomically swappable department snapshot.
type Registry struct {
	current atomic.Pointer[snapshot]
	path    string
}

// New builds a registry from an ordered department list. The reserved
// unclassified department is appended when the list does not carry one.
func New(departments []Department) (*Registry, error) {
	snap, err := buildSnapshot(departments)
	if err != nil {
		return nil, err
	}

	r := &Registry{}
	r.current.Store(snap)
	return r, nil
}

// NewFromFile loads the registry from a YAML file and remembers the path
// for Reload.
func NewFromFile(path string) (*Registry, error) {
	departments, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	r, err := New(departments)
	if err != nil {
		return nil, err
	}
	r.path = path
	return r, nil
}

// LoadFile reads an ordered department list from a YAML file.
func LoadFile(path string) ([]Department, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read departments file: %w", err)
	}

	var doc struct {
		Departments []Department `yaml:"departments"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse departments file: %w", err)
	}
	if len(doc.Departments) == 0 {
		return nil, fmt.Errorf("departments file %s defines no departments", path)
	}
	return doc.Departments, nil
}

// Reload re-reads the backing file and swaps the snapshot. Classification
// calls that started before the swap finish against the old snapshot;
// new calls observe the update immediately.
func (r *Registry) Reload() error {
	if r.path == "" {
		return apperr.BadRequest("registry was not loaded from a file")
	}

	departments, err := LoadFile(r.path)
	if err != nil {
		return err
	}

	snap, err := buildSnapshot(departments)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	return nil
}

// Replace swaps in a new department list. Used by tests and admin tooling.
func (r *Registry) Replace(departments []Department) error {
	snap, err := buildSnapshot(departments)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	return nil
}

// All returns every department in registry order, including unclassified.
func (r *Registry) All() []Department {
	return r.current.Load().ordered
}

// Routable returns the departments a complaint may be routed to, in
// registry order, excluding the reserved unclassified department.
func (r *Registry) Routable() []Department {
	all := r.current.Load().ordered
	out := make([]Department, 0, len(all))
	for _, d := range all {
		if d.ID != UnclassifiedID {
			out = append(out, d)
		}
	}
	return out
}

// Get looks up a department by id.
func (r *Registry) Get(id string) (Department, bool) {
	d, ok := r.current.Load().byID[id]
	return d, ok
}

func buildSnapshot(departments []Department) (*snapshot, error) {
	ordered := make([]Department, 0, len(departments)+1)
	byID := make(map[string]Department, len(departments)+1)

	for _, d := range departments {
		if d.ID == "" {
			return nil, fmt.Errorf("department %q has no id", d.Name)
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate department id %q", d.ID)
		}
		ordered = append(ordered, d)
		byID[d.ID] = d
	}

	if _, ok := byID[UnclassifiedID]; !ok {
		fallback := Department{ID: UnclassifiedID, Name: "Другое"}
		ordered = append(ordered, fallback)
		byID[UnclassifiedID] = fallback
	}

	return &snapshot{ordered: ordered, byID: byID}, nil
}
