package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCommand is returned for command payloads that are not a JSON
// object.
var ErrInvalidCommand = errors.New("invalid command payload")

// Command is an inbound device command.
type Command struct {
	Restart bool `json:"restart"`
}

// DecodeCommand parses a command message. Unknown keys are ignored and a
// non-boolean restart value counts as absent.
func DecodeCommand(payload []byte) (Command, error) {
	var raw map[string]any
	if err := json.NewDecoder(bytes.NewReader(payload)).Decode(&raw); err != nil || raw == nil {
		if err == nil {
			err = errors.New("null document")
		}
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	var cmd Command
	if v, ok := raw["restart"].(bool); ok {
		cmd.Restart = v
	}
	return cmd, nil
}

// Restarter restarts the device on request. The agent only asks; how the
// restart happens is up to the implementation.
type Restarter interface {
	Restart(reason string)
}

// RestartFunc adapts a function to the Restarter interface.
type RestartFunc func(reason string)

// Restart calls f.
func (f RestartFunc) Restart(reason string) { f(reason) }
