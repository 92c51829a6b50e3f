// Package command parses and dispatches the ":" commands typed into the
// search box.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/glance/internal/session"
)

// Prefix marks a line in the search box as a command rather than a query.
const Prefix = ":"

// ErrUnknown is returned when no command is registered under a name.
var ErrUnknown = errors.New("unknown command")

// Definition describes a command for help output.
type Definition struct {
	Name        string
	Usage       string
	Description string
}

// Call is one parsed command line.
type Call struct {
	Name string
	Args []string
	Raw  string // Everything after the name, untrimmed of inner spaces
}

// Result is what a command hands back to the screen.
type Result struct {
	Message string
	Detail  *session.Detail
}

// Executor runs a command.
type Executor func(ctx context.Context, call Call) (Result, error)

// Parse splits a ":name args..." line. It reports false for anything that is
// not a command, including a bare ":".
func Parse(line string) (Call, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, Prefix) {
		return Call{}, false
	}
	body := strings.TrimSpace(strings.TrimPrefix(line, Prefix))
	if body == "" {
		return Call{}, false
	}

	name, raw, _ := strings.Cut(body, " ")
	raw = strings.TrimSpace(raw)
	return Call{
		Name: strings.ToLower(name),
		Args: strings.Fields(raw),
		Raw:  raw,
	}, true
}

// Registry manages available commands and their execution.
type Registry struct {
	mu        sync.RWMutex
	defs      map[string]Definition
	executors map[string]Executor
}

func NewRegistry() *Registry {
	return &Registry{
		defs:      make(map[string]Definition),
		executors: make(map[string]Executor),
	}
}

// Register adds a command to the registry.
func (r *Registry) Register(def Definition, exec Executor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("command %q already registered", def.Name)
	}

	r.defs[def.Name] = def
	r.executors[def.Name] = exec
	return nil
}

// Unregister removes a command from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.defs, name)
	delete(r.executors, name)
}

func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	return def, ok
}

// List returns all definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs the command named by call.
func (r *Registry) Execute(ctx context.Context, call Call) (Result, error) {
	r.mu.RLock()
	exec, ok := r.executors[call.Name]
	r.mu.RUnlock()

	if !ok || exec == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknown, call.Name)
	}

	return exec(ctx, call)
}

// Run parses line and executes it.
func (r *Registry) Run(ctx context.Context, line string) (Result, error) {
	call, ok := Parse(line)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknown, line)
	}
	return r.Execute(ctx, call)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.defs)
}

// Help renders one usage line per command.
func (r *Registry) Help() string {
	var b strings.Builder
	for _, def := range r.List() {
		fmt.Fprintf(&b, "%-22s %s\n", def.Usage, def.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
