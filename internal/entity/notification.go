package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationProjectApproved  = "project_approved"
	NotificationProjectRejected  = "project_rejected"
	NotificationProjectFeedback  = "project_feedback"
	NotificationInvestment       = "investment_received"
	NotificationCommentReply     = "comment_reply"
	NotificationEntityProject    = "project"
	NotificationEntityComment    = "comment"
	NotificationEntityInvestment = "investment"
)

type Notification struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ActorID    *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	Actor      *User      `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL" json:"actor,omitempty"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null" json:"entity_id"`
	EntityType string     `gorm:"size:50;not null" json:"entity_type"`
	Type       string     `gorm:"size:50;not null" json:"type"`
	Message    string     `gorm:"type:text" json:"message"`
	IsRead     bool       `gorm:"default:false;index" json:"is_read"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
