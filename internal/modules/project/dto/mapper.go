package dto

import (
	"time"

	"anoa.com/sparkvest/internal/entity"
	commonDto "anoa.com/sparkvest/pkg/dto"
)

func ToSummary(p *entity.Project, now time.Time) commonDto.ProjectSummary {
	return commonDto.ProjectSummary{
		ID:                 p.ID,
		Title:              p.Title,
		ShortDescription:   p.ShortDescription,
		Category:           p.Category,
		ImageURL:           p.ImageURL,
		Goal:               p.Goal,
		CurrentAmount:      p.CurrentAmount,
		ProgressPercentage: p.ProgressPercentage(),
		IsFunded:           p.IsFunded(),
		DaysRemaining:      p.DaysRemaining(now),
		Status:             string(p.Status),
		ReturnType:         string(p.ReturnType),
		EndDate:            p.EndDate,
		CreatedAt:          p.CreatedAt,
	}
}

func ToSummaries(projects []entity.Project, now time.Time) []commonDto.ProjectSummary {
	out := make([]commonDto.ProjectSummary, 0, len(projects))
	for i := range projects {
		out = append(out, ToSummary(&projects[i], now))
	}
	return out
}

func userSummary(u *entity.User) *commonDto.UserSummary {
	if u == nil {
		return nil
	}
	return &commonDto.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// ToDetail maps a project with its preloaded owner and team for viewer.
func ToDetail(p *entity.Project, viewer *entity.User, now time.Time) ProjectDetailResponse {
	res := ProjectDetailResponse{
		ID:                 p.ID,
		Title:              p.Title,
		ShortDescription:   p.ShortDescription,
		Description:        p.Description,
		Category:           p.Category,
		Goal:               p.Goal,
		CurrentAmount:      p.CurrentAmount,
		ProgressPercentage: p.ProgressPercentage(),
		IsFunded:           p.IsFunded(),
		DaysRemaining:      p.DaysRemaining(now),
		StartDate:          p.StartDate,
		EndDate:            p.EndDate,
		Status:             p.Status,
		AdminFeedback:      p.AdminFeedback,
		ImageURL:           p.ImageURL,
		AdditionalImages:   []string(p.AdditionalImages),
		VideoURL:           p.VideoURL,
		ResearchReportURL:  p.ResearchReportURL,
		MarketOpportunity:  p.MarketOpportunity,
		UseOfFunds:         p.UseOfFunds,
		ReturnType:         p.ReturnType,
		StakeTerms:         p.StakeTerms,
		Owner:              userSummary(p.Owner),
		TeamMembers:        make([]TeamMemberResponse, 0, len(p.TeamMembers)),
		CreatedAt:          p.CreatedAt,
	}
	if res.AdditionalImages == nil {
		res.AdditionalImages = []string{}
	}

	for _, m := range p.TeamMembers {
		res.TeamMembers = append(res.TeamMembers, TeamMemberResponse{
			ID:              m.ID,
			User:            userSummary(m.User),
			Name:            m.Name,
			Role:            m.Role,
			LinkedinProfile: m.LinkedinProfile,
		})
	}

	if viewer != nil {
		res.IsOwner = viewer.ID == p.UserID
		res.CanInvest = viewer.Role == entity.RoleInvestor && p.Status == entity.ProjectApproved && !res.IsOwner
	}
	return res
}
