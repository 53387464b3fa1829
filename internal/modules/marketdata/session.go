package marketdata

import (
	"time"

	"livefolio/internal/domain"
)

// sessionWindow is one phase of the US trading day, in exchange-local minutes
type sessionWindow struct {
	openMinutes  int
	closeMinutes int
	session      domain.Session
}

// SessionClock resolves the current US equity market session. Session windows
// are exchange-local (New York); the app-level timezone only affects display.
type SessionClock struct {
	exchangeTZ *time.Location
	windows    []sessionWindow
}

// NewSessionClock creates a session clock for US equity hours:
// pre-market 04:00-09:30, regular 09:30-16:00, after-hours 16:00-20:00 ET.
func NewSessionClock() (*SessionClock, error) {
	nyLoc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, err
	}

	return &SessionClock{
		exchangeTZ: nyLoc,
		windows: []sessionWindow{
			{openMinutes: 4 * 60, closeMinutes: 9*60 + 30, session: domain.SessionPreMarket},
			{openMinutes: 9*60 + 30, closeMinutes: 16 * 60, session: domain.SessionRegular},
			{openMinutes: 16 * 60, closeMinutes: 20 * 60, session: domain.SessionAfterHours},
		},
	}, nil
}

// SessionAt returns the equity market session in effect at a given instant
func (c *SessionClock) SessionAt(t time.Time) domain.Session {
	local := t.In(c.exchangeTZ)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return domain.SessionClosed
	}

	currentMinutes := local.Hour()*60 + local.Minute()
	for _, w := range c.windows {
		if currentMinutes >= w.openMinutes && currentMinutes < w.closeMinutes {
			return w.session
		}
	}

	return domain.SessionClosed
}

// Now returns the session in effect right now
func (c *SessionClock) Now() domain.Session {
	return c.SessionAt(time.Now())
}
