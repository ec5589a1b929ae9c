package dto

import (
	projectDto "anoa.com/sparkvest/internal/modules/project/dto"
	userDto "anoa.com/sparkvest/internal/modules/user/dto"
	commonDto "anoa.com/sparkvest/pkg/dto"
)

type StatsResponse struct {
	TotalUsers       int64   `json:"total_users"`
	PendingProjects  int64   `json:"pending_projects"`
	ApprovedProjects int64   `json:"approved_projects"`
	TotalInvestments int64   `json:"total_investments"`
	TotalInvested    float64 `json:"total_invested"`
}

type ProjectFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	Search   string `form:"search"`
	Category string `form:"category"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=20" binding:"min=1,max=100"`
}

type AdminProjectItem struct {
	commonDto.ProjectSummary
	Owner         *commonDto.UserSummary `json:"owner,omitempty"`
	AdminFeedback string                 `json:"admin_feedback,omitempty"`
}

type ProjectListResponse struct {
	Data []AdminProjectItem       `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type FeedbackInput struct {
	Feedback string `json:"feedback" binding:"required,max=2000"`
}

type ModerationResponse struct {
	Message string                           `json:"message"`
	Project projectDto.ProjectDetailResponse `json:"project"`
}

type UserListResponse struct {
	Data []userDto.UserResponse   `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

// EditUserInput leaves fields that are nil untouched.
type EditUserInput struct {
	Username    *string `json:"username" binding:"omitempty,min=3,max=80"`
	Email       *string `json:"email" binding:"omitempty,email,max=120"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=20"`
	Role        *string `json:"role" binding:"omitempty,oneof=investor idea_owner admin"`
	IsVerified  *bool   `json:"is_verified"`
}
