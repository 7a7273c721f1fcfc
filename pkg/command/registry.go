package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var ErrDuplicateCommand = errors.New("command already registered")

// Registry maps command names and aliases, case-insensitively, to commands.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	names    map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		names:    make(map[string]string),
	}
}

func (r *Registry) Register(cmds ...Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cmd := range cmds {
		name := strings.ToLower(strings.TrimSpace(cmd.Name))
		if name == "" {
			return errors.New("command name is required")
		}
		if cmd.Run == nil {
			return fmt.Errorf("command %q has no handler", name)
		}
		cmd.Name = name

		for _, alias := range cmd.Names() {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if owner, ok := r.names[alias]; ok {
				return fmt.Errorf("%w: %q (used by %q)", ErrDuplicateCommand, alias, owner)
			}
		}
		for _, alias := range cmd.Names() {
			r.names[strings.ToLower(strings.TrimSpace(alias))] = name
		}
		r.commands[name] = cmd
	}
	return nil
}

// Lookup resolves a command by name or alias.
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	canonical, ok := r.names[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Command{}, false
	}
	cmd, ok := r.commands[canonical]
	return cmd, ok
}

// List returns every command sorted by name.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	slices.SortFunc(out, func(a, b Command) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
