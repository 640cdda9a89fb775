package converter

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks how far a run has got and estimates the rest.
type ProgressTracker struct {
	Total     int
	Current   int
	Failed    int
	StartTime time.Time
	mu        sync.Mutex
	now       func() time.Time
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{Total: total, StartTime: time.Now(), now: time.Now}
}

// Increment counts one processed row.
func (p *ProgressTracker) Increment(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Current++
	if failed {
		p.Failed++
	}
}

// Percentage is the processed share in [0, 100].
func (p *ProgressTracker) Percentage() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Total == 0 {
		return 100
	}
	return float64(p.Current) / float64(p.Total) * 100
}

// GetETA calculates the estimated time remaining
func (p *ProgressTracker) GetETA() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Current == 0 || p.Total == 0 {
		return "calculating..."
	}

	elapsed := p.now().Sub(p.StartTime)
	rate := float64(p.Current) / elapsed.Seconds()
	if rate == 0 {
		return "calculating..."
	}

	return formatSeconds(float64(p.Total-p.Current) / rate)
}

// IsComplete returns true if every row has been processed
func (p *ProgressTracker) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.Current >= p.Total
}

func formatSeconds(s float64) string {
	switch {
	case s < 60:
		return fmt.Sprintf("%.0f seconds", s)
	case s < 3600:
		return fmt.Sprintf("%.1f minutes", s/60)
	default:
		return fmt.Sprintf("%.1f hours", s/3600)
	}
}
