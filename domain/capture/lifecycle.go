package capture

// LifecycleState is the camera session state bound to host visibility.
//
//	Created --Start(fg)--> Active
//	Created --Start(bg)--> Suspended
//	Active  --Background--> Suspended --Foreground--> Active
//	Active  --AcquireFailed--> Failed
//	any     --Shutdown--> Destroyed
type LifecycleState int

const (
	LifecycleCreated LifecycleState = iota
	LifecycleActive
	LifecycleSuspended
	LifecycleFailed
	LifecycleDestroyed
)

func (s LifecycleState) String() string {
	switch s {
	case LifecycleCreated:
		return "created"
	case LifecycleActive:
		return "active"
	case LifecycleSuspended:
		return "suspended"
	case LifecycleFailed:
		return "failed"
	case LifecycleDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// LifecycleEvent drives Transition.
type LifecycleEvent int

const (
	EventStart LifecycleEvent = iota
	EventForeground
	EventBackground
	EventAcquireFailed
	EventShutdown
)

func (e LifecycleEvent) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventForeground:
		return "foreground"
	case EventBackground:
		return "background"
	case EventAcquireFailed:
		return "acquire_failed"
	case EventShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// LifecycleAction is the side effect the caller must perform after a
// transition. Sensor acquisition and release happen only through actions.
type LifecycleAction int

const (
	ActionNone LifecycleAction = iota
	ActionAcquire
	ActionRelease
)

// Transition is the pure lifecycle transition function. foreground reports
// whether the host is currently visible and is only consulted on Start.
// Unknown or redundant events leave the state unchanged with ActionNone.
func Transition(s LifecycleState, foreground bool, ev LifecycleEvent) (LifecycleState, LifecycleAction) {
	if s == LifecycleDestroyed {
		return s, ActionNone
	}
	if ev == EventShutdown {
		if s == LifecycleActive {
			return LifecycleDestroyed, ActionRelease
		}
		return LifecycleDestroyed, ActionNone
	}
	switch s {
	case LifecycleCreated:
		if ev == EventStart {
			if foreground {
				return LifecycleActive, ActionAcquire
			}
			return LifecycleSuspended, ActionNone
		}
	case LifecycleActive:
		switch ev {
		case EventBackground:
			return LifecycleSuspended, ActionRelease
		case EventAcquireFailed:
			return LifecycleFailed, ActionNone
		}
	case LifecycleSuspended:
		if ev == EventForeground {
			return LifecycleActive, ActionAcquire
		}
	}
	return s, ActionNone
}
