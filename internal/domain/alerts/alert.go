package alerts

import (
	"time"

	"github.com/google/uuid"
)

const (
	KindNoResponse = "no_response"
)

// Alert is raised when a response window elapsed without a reply. It attaches
// to the ticket when one exists, otherwise it is a freestanding per-message
// alert.
type Alert struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	AgentID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"agent_id"`
	TicketID  *uuid.UUID `gorm:"type:uuid;column:ticket_id;index" json:"ticket_id,omitempty"`
	MessageID *uuid.UUID `gorm:"type:uuid;column:message_id;index" json:"message_id,omitempty"`

	Kind string `gorm:"column:kind;not null;index" json:"kind"`
	Body string `gorm:"column:body;type:text;not null;default:''" json:"body"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Alert) TableName() string { return "alert" }
