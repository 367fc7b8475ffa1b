package timelog

import "time"

// Stats is derived from a Log and never edited by hand.
type Stats struct {
	Effective            time.Duration   `json:"effective_time"`
	Total                time.Duration   `json:"total_time"`
	PauseCount           int             `json:"pause_count"`
	PauseDurations       []time.Duration `json:"pause_durations"`
	AveragePauseDuration time.Duration   `json:"average_pause_duration"`
	StartTime            time.Time       `json:"start_time"`
	EndTime              time.Time       `json:"end_time"`
}

// PauseTotal returns the sum of all resolved pauses.
func (s Stats) PauseTotal() time.Duration {
	var sum time.Duration
	for _, d := range s.PauseDurations {
		sum += d
	}
	return sum
}

// Compute derives statistics from log in a single pass.
//
// A Pause arriving while a pause is already open is ignored, so the first
// pause keeps its start and running time is not counted twice. Events after
// the first Stop are ignored. Negative spans from out-of-order timestamps
// count as zero.
func Compute(log Log) Stats {
	var s Stats
	if len(log) == 0 {
		return s
	}

	first := log[0].At
	var (
		lastRunStart time.Time
		pauseStart   time.Time
		running      bool
		paused       bool
	)

loop:
	for _, e := range log {
		switch e.Action {
		case Start:
			if s.StartTime.IsZero() {
				s.StartTime = e.At
			}
			lastRunStart = e.At
			running = true

		case Pause:
			if paused {
				continue
			}
			if running {
				s.Effective += span(lastRunStart, e.At)
			}
			pauseStart = e.At
			paused = true
			s.PauseCount++

		case Resume:
			if paused {
				s.PauseDurations = append(s.PauseDurations, span(pauseStart, e.At))
				paused = false
			}
			lastRunStart = e.At
			running = true

		case Stop:
			if paused {
				s.PauseDurations = append(s.PauseDurations, span(pauseStart, e.At))
				paused = false
			} else if running {
				s.Effective += span(lastRunStart, e.At)
			}
			s.EndTime = e.At
			s.Total = span(first, e.At)
			break loop
		}
	}

	if n := len(s.PauseDurations); n > 0 {
		s.AveragePauseDuration = s.PauseTotal() / time.Duration(n)
	}
	return s
}

// Live computes statistics for a timer that may still be open, as if it
// were stopped at now. EndTime stays zero unless the log really ended.
func Live(log Log, now time.Time) Stats {
	last, ok := log.Last()
	if !ok || log.Phase() == Stopped || log.Phase() == Idle {
		return Compute(log)
	}
	if now.Before(last.At) {
		now = last.At
	}
	s := Compute(append(log.Clone(), Event{Action: Stop, At: now}))
	s.EndTime = time.Time{}
	return s
}

func span(from, to time.Time) time.Duration {
	if to.Before(from) {
		return 0
	}
	return to.Sub(from)
}
