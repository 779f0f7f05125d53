package plugins

// State records a plugin's lifecycle outcome in the registry. Transitions move
// forward only; a registered plugin swaps handles on reload without reverting.
type State int

const (
	StateDiscovered State = iota
	StateVersionRejected
	StatePolicyDisabled
	StateDependencyUnmet
	StateRegistered
	StateFailed
)

// String returns the display name used in logs and status tables.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "Discovered"
	case StateVersionRejected:
		return "VersionRejected"
	case StatePolicyDisabled:
		return "PolicyDisabled"
	case StateDependencyUnmet:
		return "DependencyUnmet"
	case StateRegistered:
		return "Registered"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ReloadPhase tracks a watched plugin through the hot-reload state machine.
type ReloadPhase int

const (
	PhaseIdle ReloadPhase = iota
	PhasePendingChange
	PhaseDebouncing
	PhaseReloading
	PhaseRolledBack
)

// String returns the display name of the reload phase.
func (p ReloadPhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhasePendingChange:
		return "PendingChange"
	case PhaseDebouncing:
		return "Debouncing"
	case PhaseReloading:
		return "Reloading"
	case PhaseRolledBack:
		return "RolledBack"
	default:
		return "Unknown"
	}
}
