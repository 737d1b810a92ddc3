// Package registry maps entity types to their registered workflow
// definitions.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BriefyHQ/docflow/pkg/workflow"
)

// Registry holds the workflow definition for each entity type. Definitions
// must be registered (frozen) before they are added.
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]*workflow.Definition
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		defs:   make(map[string]*workflow.Definition),
		logger: logger,
	}
}

// Register adds a definition under its entity type.
func (r *Registry) Register(def *workflow.Definition) error {
	if !def.Registered() {
		return fmt.Errorf("definition for %q is not registered", def.Entity())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Entity()]; exists {
		return fmt.Errorf("definition for %q already registered", def.Entity())
	}

	r.defs[def.Entity()] = def
	r.logger.Debug("Registered workflow definition", "entity", def.Entity())

	return nil
}

// Definition returns the definition for an entity type.
func (r *Registry) Definition(entity string) (*workflow.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[entity]
	if !ok {
		return nil, fmt.Errorf("no workflow definition for entity %q", entity)
	}

	return def, nil
}

// Entities returns the registered entity types, sorted.
func (r *Registry) Entities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]string, 0, len(r.defs))
	for entity := range r.defs {
		entities = append(entities, entity)
	}

	sort.Strings(entities)

	return entities
}
