// Package recovery restores application state after a restart. Components
// register themselves with the manager and are given store access to rebuild
// or clean up whatever they own.
package recovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EnigmaBots/EventPilot/internal/store"
)

// Recoverable defines the interface for components that recover state at boot.
type Recoverable interface {
	// RecoverState is called during application startup.
	RecoverState(ctx context.Context, registry *Registry) error
}

// Registry provides services that components can use during recovery.
type Registry struct {
	store store.Store
}

// NewRegistry creates a recovery registry around the store.
func NewRegistry(st store.Store) *Registry {
	return &Registry{store: st}
}

// GetStore provides access to the store for recovery operations.
func (r *Registry) GetStore() store.Store {
	return r.store
}

// Manager orchestrates recovery of all registered components.
type Manager struct {
	registry     *Registry
	recoverables []Recoverable
}

// NewManager creates a new recovery manager.
func NewManager(st store.Store) *Manager {
	return &Manager{
		registry:     NewRegistry(st),
		recoverables: make([]Recoverable, 0),
	}
}

// RegisterRecoverable adds a component that can be recovered.
func (m *Manager) RegisterRecoverable(r Recoverable) {
	m.recoverables = append(m.recoverables, r)
}

// RecoverAll performs recovery of all registered components.
func (m *Manager) RecoverAll(ctx context.Context) error {
	slog.Info("Starting application recovery", "components", len(m.recoverables))

	recoveredCount := 0
	errorCount := 0

	for _, recoverable := range m.recoverables {
		if err := recoverable.RecoverState(ctx, m.registry); err != nil {
			slog.Error("Component recovery failed", "error", err, "component", fmt.Sprintf("%T", recoverable))
			errorCount++
			continue
		}
		recoveredCount++
	}

	slog.Info("Application recovery completed", "recovered", recoveredCount, "errors", errorCount)

	if errorCount > 0 {
		return fmt.Errorf("recovery completed with %d errors out of %d components", errorCount, len(m.recoverables))
	}

	return nil
}

// GetRegistry provides access to the recovery registry.
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}
