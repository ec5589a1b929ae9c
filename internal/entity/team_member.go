package entity

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTeamMemberIdentity = errors.New("team member needs either a user id or a name, not both")

// TeamMember links a project to a registered user or to a free-text collaborator.
type TeamMember struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID          *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User            *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Name            string     `gorm:"size:100" json:"name,omitempty"`
	Role            string     `gorm:"size:100" json:"role,omitempty"`
	LinkedinProfile string     `gorm:"size:200" json:"linkedin_profile,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (m *TeamMember) Validate() error {
	hasUser := m.UserID != nil && *m.UserID != uuid.Nil
	hasName := strings.TrimSpace(m.Name) != ""
	if hasUser == hasName {
		return ErrTeamMemberIdentity
	}
	return nil
}

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return m.Validate()
}
