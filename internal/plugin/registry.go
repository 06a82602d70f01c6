package plugin

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Registry owns the plugins in tab order.
type Registry struct {
	ctx         *Context
	plugins     []Plugin
	unavailable map[string]string
}

// NewRegistry creates a registry whose plugins receive ctx.
func NewRegistry(ctx *Context) *Registry {
	return &Registry{ctx: ctx, unavailable: make(map[string]string)}
}

// Register initializes p. A plugin whose Init fails is recorded as
// unavailable and not shown.
func (r *Registry) Register(p Plugin) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin %s: init panic: %v", p.ID(), rec)
		}
		if err != nil {
			r.unavailable[p.ID()] = err.Error()
			if r.ctx != nil && r.ctx.Logger != nil {
				r.ctx.Logger.Warn("plugin unavailable", "plugin", p.ID(), "err", err)
			}
		}
	}()
	if err := p.Init(r.ctx); err != nil {
		return fmt.Errorf("plugin %s: %w", p.ID(), err)
	}
	r.plugins = append(r.plugins, p)
	return nil
}

// Plugins returns the available plugins. The slice is shared; callers may
// replace elements with the value returned from Update.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// Unavailable maps plugin IDs to the reason they failed to initialize.
func (r *Registry) Unavailable() map[string]string { return r.unavailable }

// Context returns the shared plugin context.
func (r *Registry) Context() *Context { return r.ctx }

// Start starts every plugin and returns their commands.
func (r *Registry) Start() []tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(r.plugins))
	for _, p := range r.plugins {
		if cmd := p.Start(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// Stop stops every plugin.
func (r *Registry) Stop() {
	for _, p := range r.plugins {
		p.Stop()
	}
}
