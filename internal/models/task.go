package models

const (
	TaskTypeBook = "book"
)

const (
	TaskPending   = "pending"
	TaskTrying    = "trying"
	TaskDone      = "done"
	TaskAbandoned = "abandoned"
)

// Task is a single booking intent tracked by the scheduler.
// Date is always normalized to YYYY-MM-DD and Time must belong to the
// configured allowed-times sequence.
type Task struct {
	Type     string `json:"type"`
	Club     string `json:"club"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
	Tries    int    `json:"tries"`
	Status   string `json:"status"`
	Result   string `json:"result,omitempty"`
}

// Terminal reports whether the task can no longer transition.
func (t *Task) Terminal() bool {
	return t.Status == TaskDone || t.Status == TaskAbandoned
}
