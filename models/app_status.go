package models

import "fmt"

// AppStatus sandbox lifecycle status
type AppStatus string

const (
	AppStatusCreated    AppStatus = "created"    // provisioning requested, not yet reachable
	AppStatusReady      AppStatus = "ready"      // heartbeat answered, no edit yet
	AppStatusActive     AppStatus = "active"     // at least one edit delivered
	AppStatusTerminated AppStatus = "terminated" // destroyed or unreachable, absorbing
)

// appTransitions legal status transitions; TERMINATED has none
var appTransitions = map[AppStatus][]AppStatus{
	AppStatusCreated: {AppStatusReady, AppStatusTerminated},
	AppStatusReady:   {AppStatusActive, AppStatusTerminated},
	AppStatusActive:  {AppStatusActive, AppStatusTerminated},
}

// Valid reports whether s is one of the known statuses
func (s AppStatus) Valid() bool {
	switch s {
	case AppStatusCreated, AppStatusReady, AppStatusActive, AppStatusTerminated:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is legal
func (s AppStatus) CanTransition(next AppStatus) bool {
	for _, to := range appTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Editable reports whether edits are accepted in this status
func (s AppStatus) Editable() bool {
	return s == AppStatusReady || s == AppStatusActive
}

// IsTerminal reports whether s is absorbing
func (s AppStatus) IsTerminal() bool {
	return s == AppStatusTerminated
}

// ParseAppStatus parses a persisted status string
func ParseAppStatus(v string) (AppStatus, error) {
	s := AppStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown app status %q", v)
	}
	return s, nil
}
