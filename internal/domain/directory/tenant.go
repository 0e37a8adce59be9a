package directory

import (
	"time"

	"github.com/google/uuid"
)

// Tenant holds the per-workspace knobs the staged pipeline reads:
// the response-alert delay, the ticket auto-close window, and the
// working-hours window used for response-time KPIs.
type Tenant struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Key  string    `gorm:"column:key;not null;uniqueIndex" json:"key"`
	Name string    `gorm:"column:name;not null" json:"name"`

	AlertDelayMinutes int `gorm:"column:alert_delay_minutes;not null;default:30" json:"alert_delay_minutes"`
	AutoCloseHours    int `gorm:"column:auto_close_hours;not null;default:24" json:"auto_close_hours"`
	WorkdayStartHour  int `gorm:"column:workday_start_hour;not null;default:9" json:"workday_start_hour"`
	WorkdayEndHour    int `gorm:"column:workday_end_hour;not null;default:18" json:"workday_end_hour"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenant" }
