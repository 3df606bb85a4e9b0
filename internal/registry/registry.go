package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
)

type entry struct {
	capability domain.Capability
	schema     *jsonschema.Schema
}

func (e *entry) public() domain.Capability {
	c := e.capability
	c.InputSchema = domain.CloneSchema(c.InputSchema)
	return c
}

// Registry хранит набор вызываемых capability. Заполняется один раз при старте,
// после Seal() только читается. RWMutex оставлен на случай регистрации в рантайме:
// один писатель, много читателей.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	order    []string // Порядок регистрации (для discovery payload)
	sealed   bool
	compiler *jsonschema.Compiler
}

func New() *Registry {
	return &Registry{
		entries:  make(map[string]*entry),
		compiler: jsonschema.NewCompiler(),
	}
}

// Register добавляет capability и компилирует её input schema.
func (r *Registry) Register(c domain.Capability) error {
	if c.Name == "" {
		return fmt.Errorf("registry: capability name is required")
	}
	if c.Handler == nil {
		return fmt.Errorf("registry: capability %s has no handler", c.Name)
	}

	raw, err := json.Marshal(c.InputSchema)
	if err != nil {
		return fmt.Errorf("registry: marshal schema of %s: %w", c.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registry: register %s: %w", c.Name, domain.ErrRegistrySealed)
	}
	if _, ok := r.entries[c.Name]; ok {
		return fmt.Errorf("registry: register %s: %w", c.Name, domain.ErrDuplicateCapability)
	}

	// Compiler не потокобезопасен, поэтому компилируем под локом писателя
	schema, err := r.compiler.Compile(raw)
	if err != nil {
		return fmt.Errorf("registry: invalid schema for %s: %w", c.Name, err)
	}

	c.InputSchema = domain.CloneSchema(c.InputSchema)
	r.entries[c.Name] = &entry{capability: c, schema: schema}
	r.order = append(r.order, c.Name)
	return nil
}

// MustRegister: для статической регистрации при старте.
func (r *Registry) MustRegister(caps ...domain.Capability) {
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Seal замораживает таблицу: дальнейшие Register вернут ErrRegistrySealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Get возвращает capability по имени или ErrNotFound. InputSchema всегда копия:
// изменения у вызывающего не доходят до таблицы.
func (r *Registry) Get(name string) (domain.Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return domain.Capability{}, fmt.Errorf("registry: capability %q: %w", name, domain.ErrNotFound)
	}
	return e.public(), nil
}

// List возвращает все capability в порядке регистрации.
func (r *Registry) List() []domain.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Capability, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].public())
	}
	return out
}

// Descriptors строит discovery payload: {name, description, input_schema}.
func (r *Registry) Descriptors() []domain.CapabilityDescriptor {
	caps := r.List()
	out := make([]domain.CapabilityDescriptor, 0, len(caps))
	for _, c := range caps {
		out = append(out, domain.CapabilityDescriptor{
			Name:        c.Name,
			Description: c.Description,
			InputSchema: c.InputSchema,
		})
	}
	return out
}

// Validate проверяет аргументы против скомпилированной схемы capability.
func (r *Registry) Validate(name string, args domain.Arguments) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("registry: capability %q: %w", name, domain.ErrNotFound)
	}

	result := e.schema.Validate(map[string]any(args))
	if !result.IsValid() {
		return fmt.Errorf("registry: arguments for %s do not match schema: %s", name, result.Error())
	}
	return nil
}
