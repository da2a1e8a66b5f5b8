package translator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sparrowhq/relay/internal/logger"
)

// Registry looks up a RequestTranslator by dialect name. relay only ever
// registers one ("anthropic"), but keeping the lookup indirect lets httpapi's
// handlers stay ignorant of which concrete dialect they're serving.
type Registry struct {
	translators map[string]RequestTranslator
	logger      logger.StyledLogger
	mu          sync.RWMutex
}

func NewRegistry(log logger.StyledLogger) *Registry {
	return &Registry{
		translators: make(map[string]RequestTranslator),
		logger:      log,
	}
}

// Register adds a translator under name, or under translator.Name() if name
// is empty.
func (r *Registry) Register(name string, t RequestTranslator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		name = t.Name()
	}

	if existing, exists := r.translators[name]; exists {
		r.logger.Warn("Overwriting existing translator",
			"name", name,
			"old", fmt.Sprintf("%T", existing),
			"new", fmt.Sprintf("%T", t))
	}

	r.translators[name] = t
	r.logger.Debug("Registered translator", "name", name, "type", fmt.Sprintf("%T", t))
}

// Get retrieves a translator by name, erroring (rather than returning nil)
// when it isn't registered.
func (r *Registry) Get(name string) (RequestTranslator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.translators[name]
	if !exists {
		return nil, fmt.Errorf("translator not found: %s (available: %v)", name, r.getAvailableNames())
	}
	return t, nil
}

// GetAvailableNames returns the sorted list of registered translator names.
func (r *Registry) GetAvailableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getAvailableNames()
}

func (r *Registry) getAvailableNames() []string {
	names := make([]string, 0, len(r.translators))
	for name := range r.translators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
