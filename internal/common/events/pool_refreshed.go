package events

import "time"

// PoolRefreshedEvent is published after every refresh cycle that swapped the pool.
type PoolRefreshedEvent struct {
	CycleID    string        `json:"cycle_id"`
	Candidates int           `json:"candidates"`
	Alive      int           `json:"alive"`
	Persisted  bool          `json:"persisted"`
	Duration   time.Duration `json:"duration_ns"`
	FinishedAt time.Time     `json:"finished_at"`
}
