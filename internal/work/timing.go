package work

import "time"

// TimingChecker decides whether a work type's timing allows execution now.
// WhenIdle work defers to the busy func (typically "are experiments
// pending"); MaintenanceWindow work runs only inside [startHour, endHour) in
// local time. A window wrapping midnight (start > end) is supported.
type TimingChecker struct {
	startHour int
	endHour   int
	busy      func() bool
	now       func() time.Time
}

// NewTimingChecker creates a timing checker for the given maintenance window.
// busy may be nil, in which case WhenIdle work is always eligible.
func NewTimingChecker(startHour, endHour int, busy func() bool) *TimingChecker {
	return &TimingChecker{
		startHour: startHour,
		endHour:   endHour,
		busy:      busy,
		now:       time.Now,
	}
}

// CanExecute returns true if work with the given timing may run now.
func (c *TimingChecker) CanExecute(t Timing) bool {
	switch t {
	case AnyTime:
		return true
	case WhenIdle:
		return c.busy == nil || !c.busy()
	case MaintenanceWindow:
		return c.inWindow(c.now().Hour())
	default:
		return false
	}
}

func (c *TimingChecker) inWindow(hour int) bool {
	if c.startHour == c.endHour {
		// Degenerate window: always open.
		return true
	}
	if c.startHour < c.endHour {
		return hour >= c.startHour && hour < c.endHour
	}
	// Window wraps midnight.
	return hour >= c.startHour || hour < c.endHour
}
