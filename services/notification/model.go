package notification

import "time"

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Notification is the persisted delivery record. The row outlives the queue
// job so an exhausted delivery is still inspectable as FAILED.
type Notification struct {
	ID        string     `gorm:"column:id;primaryKey;type:char(26)" json:"id"`
	UserID    string     `gorm:"column:user_id;index;not null" json:"user_id"`
	Type      string     `gorm:"column:type;type:varchar(50);not null" json:"type"`
	Title     string     `gorm:"column:title;type:varchar(255)" json:"title"`
	Message   string     `gorm:"column:message;type:text" json:"message"`
	Link      string     `gorm:"column:link;type:varchar(255)" json:"link,omitempty"`
	Status    Status     `gorm:"column:status;type:varchar(20);default:'PENDING'" json:"status"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	SentAt    *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
