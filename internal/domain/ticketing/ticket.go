package ticketing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

const (
	CloseTypeAgent = "agent"
	CloseTypeAuto  = "auto"
)

// Ticket is a bounded conversation session between exactly one standard user
// and one agent. At most one open ticket may exist per (user, agent) pair.
// Tickets are never deleted, only closed.
type Ticket struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	UserID  uuid.UUID `gorm:"type:uuid;not null;index:idx_ticket_pair,priority:1" json:"user_id"`
	AgentID uuid.UUID `gorm:"type:uuid;not null;index:idx_ticket_pair,priority:2" json:"agent_id"`

	Status  string `gorm:"column:status;not null;index" json:"status"`
	Subject string `gorm:"column:subject;not null;default:''" json:"subject"`

	CloseType string     `gorm:"column:close_type;not null;default:''" json:"close_type,omitempty"`
	ClosedAt  *time.Time `gorm:"column:closed_at" json:"closed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Ticket) TableName() string { return "ticket" }
