package realtime

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// throttle limits how often an error of the same kind is logged
type throttle struct {
	lock       sync.Mutex
	coolDown   time.Duration
	limits     map[string]*rate.Sometimes
	suppressed map[string]int
}

func newThrottle(coolDown time.Duration) *throttle {
	return &throttle{
		coolDown:   coolDown,
		limits:     make(map[string]*rate.Sometimes),
		suppressed: make(map[string]int),
	}
}

func (t *throttle) limit(key string) *rate.Sometimes {
	if s, ok := t.limits[key]; ok {
		return s
	}

	s := &rate.Sometimes{Interval: t.coolDown}
	if t.coolDown <= 0 {
		s = &rate.Sometimes{Every: 1}
	}

	t.limits[key] = s
	return s
}

// allow returns true if key may be logged now, and how many were suppressed since the last time
func (t *throttle) allow(key string) (ok bool, suppressed int) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.limit(key).Do(func() {
		ok = true
		suppressed = t.suppressed[key]
		delete(t.suppressed, key)
	})

	if !ok {
		t.suppressed[key]++
	}

	return ok, suppressed
}

func (t *throttle) logError(key string, err error, msg string) {
	ok, suppressed := t.allow(key)
	if !ok {
		return
	}

	log := logrus.WithError(err).WithField("kind", key)
	if suppressed > 0 {
		log = log.WithField("suppressed", suppressed)
	}

	log.Error(msg)
}
