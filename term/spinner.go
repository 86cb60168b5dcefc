package term

import "time"

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates the status line while a rewrite is in flight.
type Spinner struct {
	frame    int
	lastTick time.Time
	interval time.Duration
}

// NewSpinner creates a braille spinner.
func NewSpinner() *Spinner {
	return &Spinner{lastTick: time.Now(), interval: 80 * time.Millisecond}
}

// Tick advances the animation if enough time has passed.
// Returns true if the frame changed.
func (s *Spinner) Tick() bool {
	now := time.Now()
	if now.Sub(s.lastTick) >= s.interval {
		s.frame++
		s.lastTick = now
		return true
	}
	return false
}

// Reset rewinds to the first frame.
func (s *Spinner) Reset() {
	s.frame = 0
	s.lastTick = time.Now()
}

// Frame returns the current animation frame.
func (s *Spinner) Frame() string {
	return spinnerFrames[s.frame%len(spinnerFrames)]
}
