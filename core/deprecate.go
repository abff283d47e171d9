package core

import (
	"log/slog"
	"sync"
)

// DeprecationRegistry remembers which deprecated calls already warned.
// The first Warn for a key logs; later calls with the same key are silent
// until Reset. Share one registry between clients to warn once per process.
type DeprecationRegistry struct {
	warned sync.Map
	logger *slog.Logger
}

// NewDeprecationRegistry creates a registry that warns through logger.
// A nil logger falls back to slog.Default().
func NewDeprecationRegistry(logger *slog.Logger) *DeprecationRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeprecationRegistry{logger: logger}
}

// Warn logs message the first time key is seen and reports whether it did.
func (d *DeprecationRegistry) Warn(key, message string) bool {
	if _, loaded := d.warned.LoadOrStore(key, struct{}{}); loaded {
		return false
	}
	d.logger.Warn(message, "deprecation", key)
	return true
}

// Warned reports whether key already produced its warning.
func (d *DeprecationRegistry) Warned(key string) bool {
	_, ok := d.warned.Load(key)
	return ok
}

// Reset forgets every key.
func (d *DeprecationRegistry) Reset() {
	d.warned.Range(func(key, _ any) bool {
		d.warned.Delete(key)
		return true
	})
}
