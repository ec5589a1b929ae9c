package dto

import (
	"time"

	"anoa.com/sparkvest/internal/entity"
	commonDto "anoa.com/sparkvest/pkg/dto"
	"github.com/google/uuid"
)

// SubmitProjectInput is bound from a multipart form; files travel separately in SubmitFiles.
type SubmitProjectInput struct {
	Title             string  `form:"title" binding:"required,max=100"`
	ShortDescription  string  `form:"short_description" binding:"max=200"`
	Description       string  `form:"description" binding:"required"`
	Category          string  `form:"category" binding:"max=50"`
	Goal              float64 `form:"goal" binding:"required,gt=0"`
	DurationDays      int     `form:"duration" binding:"required,gt=0,max=365"`
	MarketOpportunity string  `form:"market_opportunity" binding:"required"`
	UseOfFunds        string  `form:"use_of_funds" binding:"required"`
	ReturnType        string  `form:"return_type" binding:"omitempty,oneof=reward stake"`
	StakeTerms        string  `form:"stake_terms"`
	VideoURL          string  `form:"video_url" binding:"omitempty,url"`

	TeamMemberIDs   []string `form:"team_members[]"`
	TeamMemberRoles []string `form:"team_member_roles[]"`
	ExternalNames   []string `form:"external_member_names[]"`
	ExternalRoles   []string `form:"external_member_roles[]"`
	ExternalLinks   []string `form:"external_member_linkedin[]"`
}

type SubmitFiles struct {
	Image            *commonDto.UploadFile
	AdditionalImages []commonDto.UploadFile
	ResearchReport   *commonDto.UploadFile
}

type ProjectFilter struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	SortBy   string `form:"sort" binding:"omitempty,oneof=newest popular ending_soon most_funded least_funded"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=12" binding:"min=1,max=100"`
}

type SearchProjectsQuery struct {
	Query string `form:"q" binding:"required,min=2"`
	Page  int    `form:"page,default=1" binding:"min=1"`
	Limit int    `form:"limit,default=12" binding:"min=1,max=100"`
}

type ProjectListResponse struct {
	Data []commonDto.ProjectSummary `json:"data"`
	Meta commonDto.PaginationMeta   `json:"meta"`
}

type TeamMemberResponse struct {
	ID              uuid.UUID              `json:"id"`
	User            *commonDto.UserSummary `json:"user,omitempty"`
	Name            string                 `json:"name,omitempty"`
	Role            string                 `json:"role,omitempty"`
	LinkedinProfile string                 `json:"linkedin_profile,omitempty"`
}

type ProjectDetailResponse struct {
	ID                 uuid.UUID              `json:"id"`
	Title              string                 `json:"title"`
	ShortDescription   string                 `json:"short_description"`
	Description        string                 `json:"description"`
	Category           string                 `json:"category"`
	Goal               float64                `json:"goal"`
	CurrentAmount      float64                `json:"current_amount"`
	ProgressPercentage int                    `json:"progress_percentage"`
	IsFunded           bool                   `json:"is_funded"`
	DaysRemaining      int                    `json:"days_remaining"`
	StartDate          time.Time              `json:"start_date"`
	EndDate            time.Time              `json:"end_date"`
	Status             entity.ProjectStatus   `json:"status"`
	AdminFeedback      string                 `json:"admin_feedback,omitempty"`
	ImageURL           string                 `json:"image_url,omitempty"`
	AdditionalImages   []string               `json:"additional_images"`
	VideoURL           string                 `json:"video_url,omitempty"`
	ResearchReportURL  string                 `json:"research_report_url,omitempty"`
	MarketOpportunity  string                 `json:"market_opportunity"`
	UseOfFunds         string                 `json:"use_of_funds"`
	ReturnType         entity.ReturnType      `json:"return_type"`
	StakeTerms         string                 `json:"stake_terms,omitempty"`
	Owner              *commonDto.UserSummary `json:"owner,omitempty"`
	TeamMembers        []TeamMemberResponse   `json:"team_members"`
	IsOwner            bool                   `json:"is_owner"`
	CanInvest          bool                   `json:"can_invest"`
	CreatedAt          time.Time              `json:"created_at"`
}

// FundingUpdate is pushed to live subscribers after each confirmed investment.
type FundingUpdate struct {
	ProjectID          uuid.UUID `json:"project_id"`
	CurrentAmount      float64   `json:"current_amount"`
	ProgressPercentage int       `json:"progress_percentage"`
	IsFunded           bool      `json:"is_funded"`
}
