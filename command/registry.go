// Package command holds the explicit command registry owned by the
// composition root. Commands are registered under unique names and executed
// by name. ReplaceAll swaps the whole command set, disposing every previous
// registration.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/fabricsync/logging"
)

var (
	// ErrUnknownCommand is returned by Execute for unregistered names.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrDuplicateCommand is returned by Register for names already taken.
	ErrDuplicateCommand = errors.New("command already registered")
)

// Handler runs a command.
type Handler func(ctx context.Context, args []string) error

// Registration describes one command.
type Registration struct {
	Name    string
	Title   string
	Handler Handler
}

type entry struct {
	Registration
	gen uint64
}

// Options configures a Registry.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Registry maps command names to handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]entry
	gen      uint64
	logger   logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Registry{commands: make(map[string]entry), logger: opts.Logger}
}

// Register adds reg and returns a function that removes it again. The
// returned function is a no-op once the registration was replaced or
// disposed.
func (r *Registry) Register(reg Registration) (func(), error) {
	if err := validate(reg); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[reg.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCommand, reg.Name)
	}
	r.gen++
	gen := r.gen
	r.commands[reg.Name] = entry{Registration: reg, gen: gen}
	return func() { r.unregister(reg.Name, gen) }, nil
}

func (r *Registry) unregister(name string, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.commands[name]; ok && e.gen == gen {
		delete(r.commands, name)
	}
}

// ReplaceAll disposes every current registration and registers regs. The
// registry is left unchanged if regs is invalid.
func (r *Registry) ReplaceAll(regs []Registration) error {
	next := make(map[string]entry, len(regs))
	r.mu.Lock()
	defer r.mu.Unlock()
	gen := r.gen
	for _, reg := range regs {
		if err := validate(reg); err != nil {
			return err
		}
		if _, dup := next[reg.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCommand, reg.Name)
		}
		gen++
		next[reg.Name] = entry{Registration: reg, gen: gen}
	}
	r.logger.Debug("Replacing commands", "previous", len(r.commands), "next", len(next))
	r.gen = gen
	r.commands = next
	return nil
}

func validate(reg Registration) error {
	if reg.Name == "" {
		return errors.New("command name is required")
	}
	if reg.Handler == nil {
		return fmt.Errorf("command %s has no handler", reg.Name)
	}
	return nil
}

// Execute runs the command registered under name.
func (r *Registry) Execute(ctx context.Context, name string, args []string) error {
	r.mu.RLock()
	e, ok := r.commands[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	r.logger.Debug("Executing command", "command", name)
	return e.Handler(ctx, args)
}

// Commands returns the current registrations sorted by name.
func (r *Registry) Commands() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, 0, len(r.commands))
	for _, e := range r.commands {
		out = append(out, e.Registration)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispose removes all registrations.
func (r *Registry) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = make(map[string]entry)
}
