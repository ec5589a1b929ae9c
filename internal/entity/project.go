package entity

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectPending  ProjectStatus = "pending"
	ProjectApproved ProjectStatus = "approved"
	ProjectRejected ProjectStatus = "rejected"
)

type ReturnType string

const (
	ReturnReward ReturnType = "reward"
	ReturnStake  ReturnType = "stake"
)

type Project struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Title             string                      `gorm:"size:100;not null" json:"title"`
	ShortDescription  string                      `gorm:"size:200" json:"short_description"`
	Description       string                      `gorm:"type:text;not null" json:"description"`
	Category          string                      `gorm:"size:50;index" json:"category"`
	Goal              float64                     `gorm:"not null;check:goal > 0" json:"goal"`
	CurrentAmount     float64                     `gorm:"not null;default:0" json:"current_amount"`
	StartDate         time.Time                   `gorm:"not null" json:"start_date"`
	EndDate           time.Time                   `gorm:"not null;index" json:"end_date"`
	Status            ProjectStatus               `gorm:"size:20;not null;default:pending;index" json:"status"`
	AdminFeedback     string                      `gorm:"type:text" json:"admin_feedback,omitempty"`
	ImageURL          string                      `gorm:"type:text" json:"image_url,omitempty"`
	AdditionalImages  datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"additional_images"`
	VideoURL          string                      `gorm:"type:text" json:"video_url,omitempty"`
	ResearchReportURL string                      `gorm:"type:text" json:"research_report_url,omitempty"`
	MarketOpportunity string                      `gorm:"type:text" json:"market_opportunity"`
	UseOfFunds        string                      `gorm:"type:text" json:"use_of_funds"`
	ReturnType        ReturnType                  `gorm:"size:20;not null;default:reward" json:"return_type"`
	StakeTerms        string                      `gorm:"type:text" json:"stake_terms,omitempty"`
	UserID            uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	Owner             *User                       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	TeamMembers       []TeamMember                `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"team_members,omitempty"`
	CreatedAt         time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProgressPercentage is the funded share of the goal truncated to an integer
// and clamped to [0, 100].
func (p *Project) ProgressPercentage() int {
	if p.Goal <= 0 {
		return 0
	}
	pct := int(p.CurrentAmount / p.Goal * 100)
	return max(0, min(pct, 100))
}

func (p *Project) IsFunded() bool {
	return p.CurrentAmount >= p.Goal
}

// DaysRemaining counts whole days until EndDate, never negative.
func (p *Project) DaysRemaining(now time.Time) int {
	if p.EndDate.Before(now) {
		return 0
	}
	return int(math.Floor(p.EndDate.Sub(now).Hours() / 24))
}

func (p *Project) IsStake() bool {
	return p.ReturnType == ReturnStake
}

// VisibleTo reports whether viewer may open the project page.
func (p *Project) VisibleTo(viewer *User) bool {
	if p.Status == ProjectApproved {
		return true
	}
	if viewer == nil {
		return false
	}
	return viewer.ID == p.UserID || viewer.Role == RoleAdmin
}
