package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	TypeTicketAssignment = "ticket_assignment"
	TypeResponseKpi      = "response_kpi"
	TypeResponseAlert    = "response_alert"
	TypeFlagReconcile    = "flag_reconcile"
)

// ScheduledJob is a durable unit of deferred work. The scheduler arms an
// in-process timer for ExecuteAt and the (status, execute_at) index backs the
// periodic sweep. Terminal rows are never reopened; a failed job is only
// alerted on, never retried.
type ScheduledJob struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobName string    `gorm:"column:job_name;not null" json:"job_name"`
	JobType string    `gorm:"column:job_type;not null;index" json:"job_type"`

	// JobData must contain every key the executor requires; a missing key is a
	// fatal, non-retried failure.
	JobData datatypes.JSON `gorm:"column:job_data;type:jsonb;not null;default:'{}'" json:"job_data"`

	ExecuteAt time.Time `gorm:"column:execute_at;not null;index:idx_scheduled_job_due,priority:2" json:"execute_at"`
	Status    string    `gorm:"column:status;not null;index:idx_scheduled_job_due,priority:1" json:"status"`

	CreatedAt    time.Time  `gorm:"not null;default:now();index" json:"created_at"`
	ExecutedAt   *time.Time `gorm:"column:executed_at" json:"executed_at,omitempty"`
	ErrorMessage string     `gorm:"column:error_message;type:text;not null;default:''" json:"error_message,omitempty"`
}

func (ScheduledJob) TableName() string { return "scheduled_job" }
