package domain

import "time"

// RunResult classifies a finished batch.
type RunResult string

const (
	RunSuccess RunResult = "success"
	RunPartial RunResult = "partial"
	RunFailed  RunResult = "failed"
)

// Caps keeping the observability trail bounded.
const (
	RunHistoryCap = 20
	RunLogCap     = 50
)

// RunRecord is the audit entry for one batch execution.
type RunRecord struct {
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	Result     RunResult  `json:"result"`
	Error      *string    `json:"error"`
	Log        []string   `json:"log"`
}

// AppendLog adds a status line, dropping the oldest once RunLogCap is reached.
func (r *RunRecord) AppendLog(line string) {
	r.Log = append(r.Log, line)
	if len(r.Log) > RunLogCap {
		r.Log = r.Log[len(r.Log)-RunLogCap:]
	}
}

// ScheduleState is the process-wide scheduling singleton.
type ScheduleState struct {
	Enabled         bool        `json:"enabled"`
	IntervalMinutes int         `json:"intervalMinutes"`
	NextRunAt       time.Time   `json:"nextRunAt"`
	ScheduledRuns   []time.Time `json:"scheduledRuns"`
	RunHistory      []RunRecord `json:"runHistory"`
}

// Interval returns the configured interval as a duration.
func (s ScheduleState) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// PushRun prepends a record, truncating history at RunHistoryCap (newest first).
func (s *ScheduleState) PushRun(rec RunRecord) {
	s.RunHistory = append([]RunRecord{rec}, s.RunHistory...)
	if len(s.RunHistory) > RunHistoryCap {
		s.RunHistory = s.RunHistory[:RunHistoryCap]
	}
}
