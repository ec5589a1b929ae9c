package dto

import (
	adminDto "anoa.com/sparkvest/internal/modules/admin/dto"
	investmentDto "anoa.com/sparkvest/internal/modules/investment/dto"
	userDto "anoa.com/sparkvest/internal/modules/user/dto"
	commonDto "anoa.com/sparkvest/pkg/dto"
)

// DashboardResponse carries only the sections relevant to the caller's role.
type DashboardResponse struct {
	User        userDto.UserResponse               `json:"user"`
	Featured    []commonDto.ProjectSummary         `json:"featured_projects,omitempty"`
	Trending    []commonDto.ProjectSummary         `json:"trending_projects,omitempty"`
	Investments []investmentDto.InvestmentResponse `json:"investments,omitempty"`
	MyProjects  []commonDto.ProjectSummary         `json:"my_projects,omitempty"`
	Received    []investmentDto.InvestmentResponse `json:"received_investments,omitempty"`
	Stats       *adminDto.StatsResponse            `json:"stats,omitempty"`
}
