package directory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// RoleStandard is a customer-role participant; only standard users get tickets.
	RoleStandard = "standard"
	// RoleAgent is an internal participant who owns customers and tickets.
	RoleAgent = "agent"
	// RoleWhatsapp is the shared WhatsApp-Business inbox. Messages addressed to
	// it are rerouted to a concrete agent by the message router.
	RoleWhatsapp = "whatsapp"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Role  string `gorm:"column:role;not null;index" json:"role"`
	Name  string `gorm:"column:name;not null" json:"name"`
	Phone string `gorm:"column:phone;index" json:"phone,omitempty"`

	// ManagerID doubles as the sticky-agent assignment for standard users and
	// as the reporting edge for agents. May form chains; traversals must guard
	// against accidental cycles.
	ManagerID *uuid.UUID `gorm:"type:uuid;column:manager_id;index" json:"manager_id,omitempty"`

	// RequireResponse means the chronologically last message in this user's
	// relationship is unanswered. LastMessageAt anchors "since when".
	RequireResponse bool       `gorm:"column:require_response;not null;default:false;index" json:"require_response"`
	LastMessageAt   *time.Time `gorm:"column:last_message_at" json:"last_message_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "app_user" }
