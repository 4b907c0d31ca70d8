package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity is the task type for the nightly ledger scan.
	TaskLedgerIntegrity = "ledger:integrity"
)

// NewLedgerIntegrityTask constructs the ledger integrity task. The scan
// covers every organization, so it carries no payload.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}
