package snapshot

import (
	"sync"

	"github.com/rs/zerolog"

	"livefolio/internal/domain"
)

// StateManager is the single owner of the externally visible "latest
// snapshot". The scheduler writes exactly once per cycle; readers get a value
// copy and must treat it as immutable. A reader can never observe a partially
// built snapshot.
type StateManager struct {
	mu     sync.RWMutex
	latest *domain.PortfolioSnapshot
	log    zerolog.Logger
}

// NewStateManager creates a new snapshot state manager
func NewStateManager(log zerolog.Logger) *StateManager {
	return &StateManager{
		log: log.With().Str("component", "snapshot_state").Logger(),
	}
}

// Publish atomically replaces the latest snapshot
func (sm *StateManager) Publish(s domain.PortfolioSnapshot) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.latest = &s

	sm.log.Debug().
		Str("snapshot_id", s.ID.String()).
		Int("equities", len(s.EquityRows)).
		Int("failures", len(s.PartialFailures)).
		Msg("Snapshot published")
}

// Latest returns the current snapshot value, ok=false before the first
// published cycle.
func (sm *StateManager) Latest() (domain.PortfolioSnapshot, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.latest == nil {
		return domain.PortfolioSnapshot{}, false
	}
	return *sm.latest, true
}
