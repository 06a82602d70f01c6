// Package keymap maps keys to command IDs per focus context.
package keymap

import (
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Binding maps a key to a command within a context.
type Binding struct {
	Key     string
	Command string
	Context string
}

// Command is an action a binding can trigger. Handler is optional; commands
// without one are dispatched by whoever looked the key up.
type Command struct {
	ID      string
	Name    string
	Context string
	Handler func() tea.Cmd
}

// Registry holds bindings, commands and user overrides.
type Registry struct {
	mu        sync.RWMutex
	bindings  map[string][]Binding // by context
	commands  map[string]Command
	overrides map[string]string // key -> command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings:  make(map[string][]Binding),
		commands:  make(map[string]Command),
		overrides: make(map[string]string),
	}
}

// RegisterBinding adds a binding.
func (r *Registry) RegisterBinding(b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[b.Context] = append(r.bindings[b.Context], b)
}

// RegisterCommand adds or replaces a command.
func (r *Registry) RegisterCommand(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[c.ID] = c
}

// GetCommand returns a registered command.
func (r *Registry) GetCommand(id string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[id]
	return c, ok
}

// SetUserOverride binds key to commandID wherever that command is bound.
func (r *Registry) SetUserOverride(key, commandID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[key] = commandID
}

// ApplyOverrides replaces all user overrides.
func (r *Registry) ApplyOverrides(overrides map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = make(map[string]string, len(overrides))
	for k, v := range overrides {
		r.overrides[k] = v
	}
}

// Lookup resolves key in context. A user override wins when its command is
// bound in context. Keys bound to a command that an override moved
// elsewhere stay bound.
func (r *Registry) Lookup(key, context string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.overrides[key]; ok && r.hasCommandLocked(context, cmd) {
		return cmd, true
	}
	for _, b := range r.bindings[context] {
		if b.Key == key {
			return b.Command, true
		}
	}
	return "", false
}

// Handle looks key up in context, falling back to the global context, and
// returns the command's handler result. ok is false when nothing matched.
func (r *Registry) Handle(msg tea.KeyMsg, context string) (tea.Cmd, bool) {
	id, ok := r.Lookup(msg.String(), context)
	if !ok && context != ContextGlobal {
		id, ok = r.Lookup(msg.String(), ContextGlobal)
	}
	if !ok {
		return nil, false
	}
	c, found := r.GetCommand(id)
	if !found || c.Handler == nil {
		return nil, false
	}
	return c.Handler(), true
}

// BindingsForContext returns the effective bindings of context, overrides
// included, sorted by command then key.
func (r *Registry) BindingsForContext(context string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]Binding(nil), r.bindings[context]...)
	for key, cmd := range r.overrides {
		if r.hasCommandLocked(context, cmd) {
			out = append(out, Binding{Key: key, Command: cmd, Context: context})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Command != out[j].Command {
			return out[i].Command < out[j].Command
		}
		return out[i].Key < out[j].Key
	})
	// drop duplicate key+command pairs an override may have added
	deduped := out[:0]
	for i, b := range out {
		if i > 0 && b.Key == out[i-1].Key && b.Command == out[i-1].Command {
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

// KeysFor returns the keys bound to command in context, in display order.
func (r *Registry) KeysFor(context, command string) []string {
	var keys []string
	for _, b := range r.BindingsForContext(context) {
		if b.Command == command {
			keys = append(keys, b.Key)
		}
	}
	return keys
}

func (r *Registry) hasCommandLocked(context, cmd string) bool {
	for _, b := range r.bindings[context] {
		if b.Command == cmd {
			return true
		}
	}
	return false
}
