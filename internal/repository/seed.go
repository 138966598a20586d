package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/iliyamo/realty-inventory/internal/model"
)

// Seed is the JSON document loaded into a MemoryStore at startup.
type Seed struct {
	Tenants       []model.Tenant       `json:"tenants"`
	Projects      []model.Project      `json:"projects"`
	Towers        []model.Tower        `json:"towers"`
	Units         []model.Unit         `json:"units"`
	UnitTypeRules []model.UnitTypeRule `json:"unitTypeRules"`
}

// LoadSeed decodes a Seed from r and puts every entity into the store.
// A unit without a status starts available.  Nothing is stored when the
// document is invalid.
func (m *MemoryStore) LoadSeed(r io.Reader) error {
	var seed Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for i := range seed.Units {
		u := &seed.Units[i]
		if u.Status == "" {
			u.Status = model.UnitStatusAvailable
		}
		if !u.Status.Valid() {
			return fmt.Errorf("seed unit %d: unknown status %q", u.ID, u.Status)
		}
		if u.Status == model.UnitStatusLocked && (u.LockedBy == nil || u.LockedUntil == nil) {
			return fmt.Errorf("seed unit %d: locked without lockedBy and lockedUntil", u.ID)
		}
	}

	for _, t := range seed.Tenants {
		m.PutTenant(t)
	}
	for _, p := range seed.Projects {
		m.PutProject(p)
	}
	for _, t := range seed.Towers {
		m.PutTower(t)
	}
	for i := range seed.Units {
		m.PutUnit(&seed.Units[i])
	}
	for _, r := range seed.UnitTypeRules {
		m.PutUnitTypeRule(r)
	}
	return nil
}

// LoadSeedFile reads a seed document from path.
func (m *MemoryStore) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return m.LoadSeed(f)
}
