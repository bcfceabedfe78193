package capture

import "testing"

func TestTransition_Table(t *testing.T) {
	cases := []struct {
		from   LifecycleState
		fg     bool
		ev     LifecycleEvent
		to     LifecycleState
		action LifecycleAction
	}{
		{LifecycleCreated, true, EventStart, LifecycleActive, ActionAcquire},
		{LifecycleCreated, false, EventStart, LifecycleSuspended, ActionNone},
		{LifecycleCreated, true, EventForeground, LifecycleCreated, ActionNone},
		{LifecycleActive, true, EventStart, LifecycleActive, ActionNone},
		{LifecycleActive, true, EventBackground, LifecycleSuspended, ActionRelease},
		{LifecycleActive, true, EventForeground, LifecycleActive, ActionNone},
		{LifecycleActive, true, EventAcquireFailed, LifecycleFailed, ActionNone},
		{LifecycleSuspended, true, EventForeground, LifecycleActive, ActionAcquire},
		{LifecycleSuspended, false, EventBackground, LifecycleSuspended, ActionNone},
		{LifecycleFailed, true, EventForeground, LifecycleFailed, ActionNone},
		{LifecycleActive, true, EventShutdown, LifecycleDestroyed, ActionRelease},
		{LifecycleSuspended, false, EventShutdown, LifecycleDestroyed, ActionNone},
		{LifecycleFailed, true, EventShutdown, LifecycleDestroyed, ActionNone},
		{LifecycleDestroyed, true, EventForeground, LifecycleDestroyed, ActionNone},
		{LifecycleDestroyed, true, EventStart, LifecycleDestroyed, ActionNone},
	}
	for _, tc := range cases {
		to, action := Transition(tc.from, tc.fg, tc.ev)
		if to != tc.to || action != tc.action {
			t.Fatalf("%s --%s--> got (%s,%d) want (%s,%d)", tc.from, tc.ev, to, action, tc.to, tc.action)
		}
	}
}
