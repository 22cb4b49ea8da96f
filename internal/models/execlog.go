package models

import (
	"strings"
	"time"
)

// ExecResult is the tri-state outcome of one booking attempt.
type ExecResult int

const (
	// ResultRetry means a transient condition; the scheduler should try
	// again on a later tick.
	ResultRetry ExecResult = iota
	// ResultDone means the booking was secured.
	ResultDone
	// ResultAbort means the condition is permanent for this attempt window
	// and the task should stop retrying.
	ResultAbort
)

func (r ExecResult) String() string {
	switch r {
	case ResultRetry:
		return "retry"
	case ResultDone:
		return "done"
	case ResultAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// LogField is one entry of an execution log, shaped for direct rendering as
// a notification field.
type LogField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ExecLog accumulates entries during one backend operation. It is reset at
// the start of each public operation and consumed right after the call.
type ExecLog struct {
	fields []LogField
	now    func() time.Time
}

func NewExecLog() *ExecLog {
	return &ExecLog{now: time.Now}
}

func (l *ExecLog) Reset() {
	l.fields = l.fields[:0]
}

func (l *ExecLog) Add(level, message string) {
	if l.now == nil {
		l.now = time.Now
	}
	l.fields = append(l.fields, LogField{
		Name:  l.now().UTC().Format("15:04:05") + " - " + strings.ToUpper(level),
		Value: message,
	})
}

// Fields returns a copy of the accumulated entries.
func (l *ExecLog) Fields() []LogField {
	out := make([]LogField, len(l.fields))
	copy(out, l.fields)
	return out
}
