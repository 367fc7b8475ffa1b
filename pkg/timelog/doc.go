// Package timelog holds the append-only timer history of a work order and
// the pure function that derives time-accounting statistics from it.
//
// A Log is an ordered list of Events (Start, Pause, Resume, Stop). Compute
// walks the log once and produces Stats: effective (running) time, total
// wall-clock span, the individual pause durations and their mean. Compute is
// total: malformed logs degrade to partial statistics instead of failing.
//
//	log := timelog.Log{
//	    {Action: timelog.Start, At: t0},
//	    {Action: timelog.Pause, At: t0.Add(10 * time.Second)},
//	    {Action: timelog.Resume, At: t0.Add(15 * time.Second)},
//	    {Action: timelog.Stop, At: t0.Add(25 * time.Second)},
//	}
//	stats := timelog.Compute(log) // Effective 20s, Total 25s, one 5s pause
//
// For a well-formed log (Start first, alternating Pause/Resume, Stop last)
// Effective plus the sum of PauseDurations equals Total.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package timelog
