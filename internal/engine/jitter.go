package engine

import (
	"math/rand"
	"sync"
	"time"
)

// Jitter draws the randomized spacing between successive sends. Pluggable
// so delay sequences are deterministic under test.
type Jitter interface {
	// Between returns a duration drawn uniformly from [min, max] seconds.
	Between(minSeconds, maxSeconds int) time.Duration
}

type randJitter struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewJitter creates a jitter source seeded from the given value
func NewJitter(seed int64) Jitter {
	return &randJitter{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// NewDefaultJitter creates a time-seeded jitter source
func NewDefaultJitter() Jitter {
	return NewJitter(time.Now().UnixNano())
}

func (j *randJitter) Between(minSeconds, maxSeconds int) time.Duration {
	if minSeconds < 0 {
		minSeconds = 0
	}
	if maxSeconds <= minSeconds {
		return time.Duration(minSeconds) * time.Second
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	seconds := minSeconds + j.rand.Intn(maxSeconds-minSeconds+1)
	return time.Duration(seconds) * time.Second
}
