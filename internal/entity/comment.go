package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	UserID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	Author    *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	ProjectID uuid.UUID     `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project      `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	ParentID  *uuid.UUID    `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Parent    *Comment      `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	Likes     []CommentLike `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

// CommentLike is unique per (user, comment).
type CommentLike struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_likes_unique,priority:1" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CommentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_likes_unique,priority:2;index" json:"comment_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (l *CommentLike) TableName() string {
	return "comment_likes"
}

func (l *CommentLike) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewV7()
	}
	return
}
