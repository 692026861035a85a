package relay

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SessionLimiter enforces the per-IP hourly session rate and the global
// daily session cap. The daily counter resets on calendar-day rollover.
type SessionLimiter struct {
	perIPPerHour int
	dailyMax     int
	now          func() time.Time

	mu         sync.Mutex
	perIP      map[string]*rate.Limiter
	dailyCount int
	day        time.Time
}

func NewSessionLimiter(perIPPerHour, dailyMax int) *SessionLimiter {
	if perIPPerHour <= 0 {
		perIPPerHour = 5
	}
	if dailyMax <= 0 {
		dailyMax = 200
	}
	return &SessionLimiter{
		perIPPerHour: perIPPerHour,
		dailyMax:     dailyMax,
		now:          time.Now,
		perIP:        make(map[string]*rate.Limiter),
	}
}

// AllowSession reports whether one more session may start for ip; the
// returned reason is user-facing when denied.
func (l *SessionLimiter) AllowSession(ip string) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	day := now.Truncate(24 * time.Hour)
	if !day.Equal(l.day) {
		l.day = day
		l.dailyCount = 0
	}

	if l.dailyCount >= l.dailyMax {
		return false, "Daily session limit reached. Please try again tomorrow."
	}

	limiter, ok := l.perIP[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(l.perIPPerHour)), l.perIPPerHour)
		l.perIP[ip] = limiter
	}
	if !limiter.AllowN(now, 1) {
		return false, "Too many sessions. Please wait an hour before starting a new session."
	}

	l.dailyCount++
	return true, ""
}
