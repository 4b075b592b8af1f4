package reload

import "time"

// GraceWindow is how long a facility may stay absent from collected
// data before it is moved to the graveyard.
const GraceWindow = 24 * time.Hour

// Decision is the outcome of applying the graveyard policy to a
// missing facility.
type Decision int

const (
	// StayMissing keeps the record live with its missing timestamp set.
	StayMissing Decision = iota
	// Purge moves the record to the graveyard.
	Purge
)

// GraveyardPolicy decides when a missing facility is removed from the
// live registry. The zero value uses the default grace window.
type GraveyardPolicy struct {
	// Window overrides GraceWindow when non-zero.
	Window time.Duration
}

// Decide classifies a facility that was absent from the current
// collection. A facility exactly at the window boundary stays missing.
func (p GraveyardPolicy) Decide(missingSince, now time.Time) Decision {
	window := p.Window
	if window == 0 {
		window = GraceWindow
	}
	if now.Sub(missingSince) <= window {
		return StayMissing
	}
	return Purge
}
