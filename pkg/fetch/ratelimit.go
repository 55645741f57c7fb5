package fetch

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Pacer enforces a minimum gap between successive page visits so the harvest
// does not hammer the source site. A small jitter desynchronizes runs.
type Pacer struct {
	mu        sync.Mutex
	lastVisit time.Time
	minGap    time.Duration
	log       *logrus.Logger
}

// NewPacer creates a Pacer with the given minimum gap between visits.
func NewPacer(minGap time.Duration, log *logrus.Logger) *Pacer {
	return &Pacer{minGap: minGap, log: log}
}

// Wait sleeps until at least the configured gap has elapsed since the last
// recorded visit. The first call returns immediately.
func (p *Pacer) Wait() {
	if p.minGap <= 0 {
		return
	}

	p.mu.Lock()
	last := p.lastVisit
	p.mu.Unlock()

	if last.IsZero() {
		return
	}
	elapsed := time.Since(last)
	if elapsed >= p.minGap {
		return
	}
	sleep := p.minGap - elapsed

	// Add jitter: +/- 10% of the remaining sleep
	jitterRange := int64(sleep) / 5
	if jitterRange > 0 {
		sleep += time.Duration(rand.Int63n(jitterRange)) - sleep/10
	}
	if sleep <= 0 {
		return
	}

	p.log.WithFields(logrus.Fields{
		"sleep": sleep, "required_gap": p.minGap, "elapsed": elapsed,
	}).Debug("Politeness pacer sleeping")
	time.Sleep(sleep)
}

// Mark records the current time as the last visit. Call after each page visit.
func (p *Pacer) Mark() {
	p.mu.Lock()
	p.lastVisit = time.Now()
	p.mu.Unlock()
}
