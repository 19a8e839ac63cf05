package jsonfile

import (
	"encoding/json"
	"fmt"
)

const defaultStateVersion = 1

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) applyDefaults() {
	if e.Version == 0 {
		e.Version = defaultStateVersion
	}
}

func (e envelope) validateVersion(name string, current int) error {
	if e.Version > current {
		return fmt.Errorf("unsupported %s state version %d (current %d)", name, e.Version, current)
	}

	return nil
}

// Versioned is implemented by state types that changed shape over time.
type Versioned interface {
	StateVersion() int
}

// Migrator upgrades a snapshot written by an older StateVersion in place.
type Migrator interface {
	Migrate(from int, raw json.RawMessage) error
}

func versionOf(v any) int {
	if versioned, ok := v.(Versioned); ok {
		return versioned.StateVersion()
	}

	return defaultStateVersion
}
