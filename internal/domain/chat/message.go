package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

const (
	DeliveryPending   = "pending"
	DeliverySent      = "sent"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// Message is an immutable-after-creation chat event. Only ticket_id,
// processed and delivery_status change after insert; everything else is a
// fact about the webhook delivery.
type Message struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	SenderID    uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Direction   string    `gorm:"column:direction;not null;index" json:"direction"`
	Content     string    `gorm:"column:content;type:text;not null;default:''" json:"content"`

	// SentAt may be backdated by the webhook layer to preserve the original
	// ordering of out-of-order deliveries.
	SentAt time.Time `gorm:"column:sent_at;not null;index" json:"sent_at"`

	TicketID  *uuid.UUID `gorm:"type:uuid;column:ticket_id;index" json:"ticket_id,omitempty"`
	Processed bool       `gorm:"column:processed;not null;default:false" json:"processed"`

	// IsProspect opts the message out of ticket and KPI processing entirely.
	IsProspect bool `gorm:"column:is_prospect;not null;default:false" json:"is_prospect"`

	// WhatsappRouted records that the random-agent fallback picked the
	// recipient; OriginalRecipientID keeps the shared inbox it was addressed to.
	WhatsappRouted      bool       `gorm:"column:whatsapp_routed;not null;default:false" json:"whatsapp_routed"`
	OriginalRecipientID *uuid.UUID `gorm:"type:uuid;column:original_recipient_id" json:"original_recipient_id,omitempty"`

	DeliveryStatus string `gorm:"column:delivery_status;not null;default:'pending'" json:"delivery_status"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Message) TableName() string { return "message" }
