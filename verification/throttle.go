package verification

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ResendThrottle limits how often a code can be re-sent for the same email
// and verification type.
type ResendThrottle struct {
	interval time.Duration
	nowTime  func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewResendThrottle allows one resend per interval per email and type.
// A zero interval disables throttling.
func NewResendThrottle(interval time.Duration, nowTime func() time.Time) *ResendThrottle {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &ResendThrottle{
		interval: interval,
		nowTime:  nowTime,
		limiters: make(map[string]*rate.Limiter),
	}
}

func throttleKey(c Challenge) string {
	return string(c.Type()) + ":" + c.Email
}

// Sent records that a code was just sent for c, restarting its cooldown.
func (t *ResendThrottle) Sent(c Challenge) {
	if t.interval <= 0 {
		return
	}
	l := rate.NewLimiter(rate.Every(t.interval), 1)
	l.AllowN(t.nowTime(), 1)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.limiters[throttleKey(c)] = l
}

// Allow reports whether the cooldown for c has elapsed, and the remaining wait
// when it has not. It does not start a new cooldown; call Sent once the code
// has actually gone out.
func (t *ResendThrottle) Allow(c Challenge) (bool, time.Duration) {
	if t.interval <= 0 {
		return true, 0
	}
	tokens := t.limiter(c).TokensAt(t.nowTime())
	if tokens >= 1 {
		return true, 0
	}
	return false, time.Duration((1 - tokens) * float64(t.interval))
}

func (t *ResendThrottle) limiter(c Challenge) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := throttleKey(c)
	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[key] = l
	}
	return l
}
