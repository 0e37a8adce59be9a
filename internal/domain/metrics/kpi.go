package metrics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	KpiNewTicket         = "new_ticket"
	KpiRequireResponse   = "require_response"
	KpiFirstResponseTime = "first_response_time"
	KpiRespondedToClient = "responded_to_client"
)

// Kpi is an append-only metric fact. CreatedAt is copied from the triggering
// message, not from the wall clock, so reports stay chronologically correct
// under delayed job execution.
type Kpi struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Type  string  `gorm:"column:type;not null;index" json:"type"`
	Value float64 `gorm:"column:value;not null;default:0" json:"value"`

	UserID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	TicketID *uuid.UUID     `gorm:"type:uuid;column:ticket_id;index" json:"ticket_id,omitempty"`
	Data     datatypes.JSON `gorm:"column:data;type:jsonb;not null;default:'{}'" json:"data,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Kpi) TableName() string { return "kpi" }
