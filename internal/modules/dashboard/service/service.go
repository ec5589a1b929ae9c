package service

import (
	"context"

	"anoa.com/sparkvest/internal/entity"
	adminDto "anoa.com/sparkvest/internal/modules/admin/dto"
	"anoa.com/sparkvest/internal/modules/dashboard/dto"
	investmentDto "anoa.com/sparkvest/internal/modules/investment/dto"
	userDto "anoa.com/sparkvest/internal/modules/user/dto"
	commonDto "anoa.com/sparkvest/pkg/dto"
	"github.com/google/uuid"
)

const (
	featuredCount = 3
	trendingCount = 4
	receivedCount = 20
)

type ProjectLister interface {
	Featured(ctx context.Context, excludeOwner uuid.UUID, sortBy string, limit int) ([]commonDto.ProjectSummary, error)
	MyProjects(ctx context.Context, ownerID uuid.UUID) ([]commonDto.ProjectSummary, error)
}

type InvestmentLister interface {
	MyInvestments(ctx context.Context, userID uuid.UUID) ([]investmentDto.InvestmentResponse, error)
	ReceivedInvestments(ctx context.Context, ownerID uuid.UUID, limit int) ([]investmentDto.InvestmentResponse, error)
}

type StatsProvider interface {
	Stats(ctx context.Context) (*adminDto.StatsResponse, error)
}

type DashboardService interface {
	Dashboard(ctx context.Context, user *entity.User) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	projects    ProjectLister
	investments InvestmentLister
	stats       StatsProvider
}

func NewDashboardService(projects ProjectLister, investments InvestmentLister, stats StatsProvider) DashboardService {
	return &dashboardService{
		projects:    projects,
		investments: investments,
		stats:       stats,
	}
}

func (s *dashboardService) Dashboard(ctx context.Context, user *entity.User) (*dto.DashboardResponse, error) {
	res := &dto.DashboardResponse{User: userDto.ToUserResponse(user)}
	var err error

	switch user.Role {
	case entity.RoleAdmin:
		if res.Stats, err = s.stats.Stats(ctx); err != nil {
			return nil, err
		}
	case entity.RoleIdeaOwner:
		if res.MyProjects, err = s.projects.MyProjects(ctx, user.ID); err != nil {
			return nil, err
		}
		if res.Received, err = s.investments.ReceivedInvestments(ctx, user.ID, receivedCount); err != nil {
			return nil, err
		}
	default:
		if res.Featured, err = s.projects.Featured(ctx, user.ID, "popular", featuredCount); err != nil {
			return nil, err
		}
		if res.Trending, err = s.projects.Featured(ctx, user.ID, "newest", trendingCount); err != nil {
			return nil, err
		}
		if res.Investments, err = s.investments.MyInvestments(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	return res, nil
}
