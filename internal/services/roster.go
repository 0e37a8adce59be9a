package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

// Roster is the configuration-driven replacement for hardcoded agent-name
// tables: a per-tenant list of agent names eligible for random routing,
// loaded once at startup into an immutable lookup. A tenant with no entry
// (or an empty file) leaves every agent eligible.
type Roster struct {
	byTenant map[string]map[string]bool
}

type rosterFile struct {
	Tenants []struct {
		Tenant string   `yaml:"tenant"`
		Agents []string `yaml:"agents"`
	} `yaml:"tenants"`
}

func LoadRoster(baseLog *logger.Logger, path string) (*Roster, error) {
	log := baseLog.With("service", "Roster")
	if path == "" {
		log.Info("No roster file configured; all agents eligible")
		return &Roster{byTenant: map[string]map[string]bool{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	r, err := ParseRoster(raw)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded agent roster", "tenants", len(r.byTenant))
	return r, nil
}

func ParseRoster(raw []byte) (*Roster, error) {
	var f rosterFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse roster yaml: %w", err)
	}
	byTenant := make(map[string]map[string]bool, len(f.Tenants))
	for _, t := range f.Tenants {
		if t.Tenant == "" {
			return nil, fmt.Errorf("roster entry missing tenant key")
		}
		names := make(map[string]bool, len(t.Agents))
		for _, a := range t.Agents {
			if a != "" {
				names[a] = true
			}
		}
		byTenant[t.Tenant] = names
	}
	return &Roster{byTenant: byTenant}, nil
}

// Eligible reports whether the named agent may receive randomly routed
// conversations for the tenant. Tenants without a roster entry accept all.
func (r *Roster) Eligible(tenantKey string, agentName string) bool {
	if r == nil {
		return true
	}
	names, ok := r.byTenant[tenantKey]
	if !ok || len(names) == 0 {
		return true
	}
	return names[agentName]
}
