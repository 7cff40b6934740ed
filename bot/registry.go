package bot

import (
	"context"
	"fmt"
	"strings"
)

// Command is one entry of the command table.
type Command interface {
	Name() string
	Aliases() []string
	Description() string
	RequiresSubscription() bool
	Execute(ctx context.Context, call *Call) (string, error)
}

// Registry maps command names and aliases to commands, case-insensitively.
type Registry struct {
	byName  map[string]Command
	ordered []Command
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Command{}}
}

// Register adds cmd under its name and aliases.
func (r *Registry) Register(cmd Command) error {
	keys := append([]string{cmd.Name()}, cmd.Aliases()...)
	for _, k := range keys {
		if _, ok := r.byName[strings.ToLower(k)]; ok {
			return fmt.Errorf("command %q already registered", k)
		}
	}
	for _, k := range keys {
		r.byName[strings.ToLower(k)] = cmd
	}
	r.ordered = append(r.ordered, cmd)
	return nil
}

func (r *Registry) Lookup(name string) (Command, bool) {
	cmd, ok := r.byName[strings.ToLower(name)]
	return cmd, ok
}

// Commands in registration order.
func (r *Registry) Commands() []Command {
	return r.ordered
}

// DefaultRegistry holds every built-in command.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, cmd := range []Command{
		helpCommand{},
		subscribeCommand{},
		statusCommand{},
		trialCommand{},
		cancelCommand{},
		balanceCommand{},
		transactionsCommand{},
		searchStartCommand{},
		searchStopCommand{},
		listGroupsCommand{},
	} {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
	return r
}
