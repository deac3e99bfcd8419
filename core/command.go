package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"expboard/protocol"
)

// CommandHandler decodes its own arguments from data and acts on them.
type CommandHandler func(data *[]byte) error

// Command is one registered command or response
type Command struct {
	ID      uint16
	Name    string
	Format  string // argument format, e.g. "driver=%c no_poll=%c"
	Handler CommandHandler
}

// CommandRegistry assigns message IDs in registration order. The board and
// the host build identical registries so IDs agree without a handshake.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands []*Command
	nameToID map[string]uint16
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotACommand    = errors.New("response has no handler")
)

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{nameToID: make(map[string]uint16)}
}

// Register adds a command and returns its ID. Registering a name twice
// returns the first ID and keeps the first handler.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := uint16(len(r.commands))
	r.commands = append(r.commands, &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	})
	r.nameToID[name] = id
	return id
}

// RegisterResponse registers a message the board sends. Responses have no
// handler and cannot be dispatched.
func (r *CommandRegistry) RegisterResponse(name string, format string) uint16 {
	return r.Register(name, format, nil)
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.commands) {
		return nil, false
	}
	return r.commands[id], true
}

// GetCommandByName retrieves a command by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler of cmdID
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return fmt.Errorf("%w: ID %d", ErrUnknownCommand, cmdID)
	}
	if cmd.Handler == nil {
		return fmt.Errorf("%s: %w", cmd.Name, ErrNotACommand)
	}
	return cmd.Handler(data)
}

// DispatchFrame decodes and dispatches every command in a frame payload.
// Processing stops at the first malformed ID or handler error.
func (r *CommandRegistry) DispatchFrame(payload []byte) error {
	for len(payload) > 0 {
		cmdID, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return err
		}
		if err := r.Dispatch(uint16(cmdID), &payload); err != nil {
			return err
		}
	}
	return nil
}

// GetDictionary lists one "name format" line per message in ID order.
func (r *CommandRegistry) GetDictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, cmd := range r.commands {
		b.WriteString(cmd.Name)
		if cmd.Format != "" {
			b.WriteString(" " + cmd.Format)
		}
		b.WriteString("\n")
	}
	return b.String()
}
