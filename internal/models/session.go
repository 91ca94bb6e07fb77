// Package models defines session state structures for EventPilot conversations.
package models

import "time"

// SessionState identifies where a user is in the planning conversation.
type SessionState string

const (
	// StateAwaitingCategory means the user has been shown the category choices.
	StateAwaitingCategory SessionState = "AWAITING_CATEGORY"
	// StateAwaitingDescription means a category is set and free text is expected.
	StateAwaitingDescription SessionState = "AWAITING_DESCRIPTION"
	// StateAwaitingFollowUp means a plan was delivered and a follow-up choice is expected.
	StateAwaitingFollowUp SessionState = "AWAITING_FOLLOWUP"
	// StateTerminated is absorbing; only a fresh start re-enters the flow.
	StateTerminated SessionState = "TERMINATED"
)

// Session represents one user's conversational state tracked across turns.
//
// Invariant: State == StateAwaitingDescription implies Category is set.
type Session struct {
	UserID          string        `json:"user_id"`
	State           SessionState  `json:"state"`
	Category        EventCategory `json:"category,omitempty"`
	LastDescription string        `json:"last_description,omitempty"`
	LastFollowUp    string        `json:"last_followup,omitempty"`
	// Turn increments whenever the session restarts or changes category, so
	// a generation result that raced a restart can be detected and dropped.
	Turn      int64     `json:"turn"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// validTransitions enumerates the allowed state transitions. A fresh start
// may leave any state, so it is not listed here.
var validTransitions = map[SessionState][]SessionState{
	StateAwaitingCategory:    {StateAwaitingDescription},
	StateAwaitingDescription: {StateAwaitingFollowUp},
	StateAwaitingFollowUp:    {StateAwaitingDescription, StateTerminated},
	StateTerminated:          {},
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to SessionState) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
