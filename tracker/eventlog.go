// eventlog.go records settlement-affecting occurrences: submissions,
// distributions, settlements and the withdrawal lifecycle. The log
// accumulates for the life of the process and serializes as
// {"start": utime, "events": [[utime, event], ...]}.
package tracker

import (
	"encoding/json"
	"sync"

	"github.com/shopspring/decimal"
)

// Event is one log entry. Exactly one field is set; the zero fields
// are omitted so the JSON form is externally tagged.
type Event struct {
	Submission        *SubmissionEvent        `json:"submission,omitempty"`
	Distribution      *DistributionEvent      `json:"distribution,omitempty"`
	Settlement        *SettlementEvent        `json:"settlement,omitempty"`
	WithdrawalPending *WithdrawalPendingEvent `json:"withdrawal_pending,omitempty"`
	WithdrawalFinal   *WithdrawalFinalEvent   `json:"withdrawal_final,omitempty"`
}

// SubmissionEvent marks a sharetoken accepted for settlement.
type SubmissionEvent struct {
	Servicekey string `json:"servicekey"`
	Relay      string `json:"relay"`
}

// DistributionEvent marks a share credit to a relay's balance.
type DistributionEvent struct {
	Servicekey string          `json:"servicekey"`
	Relay      string          `json:"relay"`
	Delta      decimal.Decimal `json:"delta"`
}

// SettlementEvent marks a servicekey fully settled.
type SettlementEvent struct {
	Servicekey string `json:"servicekey"`
}

// WithdrawalPendingEvent marks a drafted withdrawal.
type WithdrawalPendingEvent struct {
	Relay string          `json:"relay"`
	Delta decimal.Decimal `json:"delta"`
}

// WithdrawalFinalEvent marks the terminal commit of a withdrawal.
type WithdrawalFinalEvent struct {
	Relay  string       `json:"relay"`
	Action CommitAction `json:"action"`
}

// timedEvent renders as the two-element array [utime, event].
type timedEvent struct {
	at int64
	ev Event
}

func (te timedEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{te.at, te.ev})
}

// EventLog is the mutex-protected event sink. The tracker task records
// most events; the withdrawal pipeline records pending withdrawals from
// request goroutines.
type EventLog struct {
	mu     sync.Mutex
	start  int64
	events []timedEvent
}

// NewEventLog creates a log anchored at the given start time.
func NewEventLog(start int64) *EventLog {
	return &EventLog{start: start}
}

// Record appends one event stamped at.
func (el *EventLog) Record(at int64, ev Event) {
	el.mu.Lock()
	el.events = append(el.events, timedEvent{at: at, ev: ev})
	el.mu.Unlock()
}

// Start returns the log's anchor time, which names the on-disk file.
func (el *EventLog) Start() int64 { return el.start }

// Len returns the number of recorded events.
func (el *EventLog) Len() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.events)
}

func (el *EventLog) MarshalJSON() ([]byte, error) {
	el.mu.Lock()
	defer el.mu.Unlock()
	events := el.events
	if events == nil {
		events = []timedEvent{}
	}
	return json.Marshal(struct {
		Start  int64        `json:"start"`
		Events []timedEvent `json:"events"`
	}{el.start, events})
}
