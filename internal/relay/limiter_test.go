package relay

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestSessionLimiterPerIPBurst(t *testing.T) {
	t.Parallel()

	limiter := NewSessionLimiter(3, 100)

	for i := 0; i < 3; i++ {
		if ok, reason := limiter.AllowSession("10.0.0.1"); !ok {
			t.Fatalf("session %d unexpectedly denied: %s", i, reason)
		}
	}
	ok, reason := limiter.AllowSession("10.0.0.1")
	if ok {
		t.Fatalf("fourth session within the hour must be denied")
	}
	if !strings.Contains(reason, "Too many sessions") {
		t.Fatalf("unexpected denial reason: %s", reason)
	}

	// Another IP is unaffected.
	if ok, _ := limiter.AllowSession("10.0.0.2"); !ok {
		t.Fatalf("other IPs must not share the budget")
	}
}

func TestSessionLimiterDailyCap(t *testing.T) {
	t.Parallel()

	limiter := NewSessionLimiter(100, 5)

	for i := 0; i < 5; i++ {
		ip := fmt.Sprintf("10.0.1.%d", i)
		if ok, _ := limiter.AllowSession(ip); !ok {
			t.Fatalf("session %d unexpectedly denied", i)
		}
	}
	ok, reason := limiter.AllowSession("10.0.2.1")
	if ok {
		t.Fatalf("daily cap must deny the sixth session")
	}
	if !strings.Contains(reason, "Daily session limit") {
		t.Fatalf("unexpected denial reason: %s", reason)
	}
}

func TestSessionLimiterDailyCapResetsNextDay(t *testing.T) {
	t.Parallel()

	limiter := NewSessionLimiter(100, 1)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	if ok, _ := limiter.AllowSession("10.0.0.1"); !ok {
		t.Fatalf("first session denied")
	}
	if ok, _ := limiter.AllowSession("10.0.0.2"); ok {
		t.Fatalf("cap must hold for the rest of the day")
	}

	current = current.Add(24 * time.Hour)
	if ok, _ := limiter.AllowSession("10.0.0.3"); !ok {
		t.Fatalf("cap must reset on day rollover")
	}
}
