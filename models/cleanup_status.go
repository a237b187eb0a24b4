package models

import "time"

// CleanupStatus running totals of the reconciliation job
type CleanupStatus struct {
	Runs         int64     `json:"runs"`
	TotalRemoved int64     `json:"total_removed"`
	LastRunAt    time.Time `json:"last_run_at"`
	LastChecked  int       `json:"last_checked"`
	LastKept     int       `json:"last_kept"`
	LastRemoved  int       `json:"last_removed"`
	LastErrors   []string  `json:"last_errors,omitempty"`
}

// Record folds one pass into the totals
func (s *CleanupStatus) Record(at time.Time, checked, kept, removed int, errs []string) {
	s.Runs++
	s.TotalRemoved += int64(removed)
	s.LastRunAt = at
	s.LastChecked = checked
	s.LastKept = kept
	s.LastRemoved = removed
	s.LastErrors = errs
}
