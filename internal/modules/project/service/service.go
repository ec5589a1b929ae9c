package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/modules/project/dto"
	"anoa.com/sparkvest/internal/modules/project/repository"
	searchService "anoa.com/sparkvest/internal/modules/search/service"
	"anoa.com/sparkvest/pkg/apperror"
	commonDto "anoa.com/sparkvest/pkg/dto"
	"anoa.com/sparkvest/pkg/logger"
	"anoa.com/sparkvest/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	imageFolder  = "projects/images"
	reportFolder = "projects/reports"

	featuredLimit = 4
)

var ErrProjectHidden = apperror.Forbidden("You do not have permission to view this project.")

type ProjectService interface {
	Submit(ctx context.Context, owner *entity.User, input dto.SubmitProjectInput, files dto.SubmitFiles) (*dto.ProjectDetailResponse, error)
	Browse(ctx context.Context, viewer uuid.UUID, filter dto.ProjectFilter) (*dto.ProjectListResponse, error)
	Explore(ctx context.Context, filter dto.ProjectFilter) (*dto.ProjectListResponse, error)
	Featured(ctx context.Context, excludeOwner uuid.UUID, sortBy string, limit int) ([]commonDto.ProjectSummary, error)
	Search(ctx context.Context, viewer uuid.UUID, query dto.SearchProjectsQuery) (*dto.ProjectListResponse, error)
	Detail(ctx context.Context, viewer *entity.User, id uuid.UUID) (*dto.ProjectDetailResponse, error)
	MyProjects(ctx context.Context, ownerID uuid.UUID) ([]commonDto.ProjectSummary, error)
}

type projectService struct {
	repo     repository.ProjectRepository
	storage  storage.FileStorage
	index    searchService.ProjectIndex
	richText *bluemonday.Policy
	plain    *bluemonday.Policy
	now      func() time.Time
}

func NewProjectService(repo repository.ProjectRepository, fileStorage storage.FileStorage, index searchService.ProjectIndex) ProjectService {
	return &projectService{
		repo:     repo,
		storage:  fileStorage,
		index:    index,
		richText: bluemonday.UGCPolicy(),
		plain:    bluemonday.StrictPolicy(),
		now:      time.Now,
	}
}

func (s *projectService) Submit(ctx context.Context, owner *entity.User, input dto.SubmitProjectInput, files dto.SubmitFiles) (*dto.ProjectDetailResponse, error) {
	if owner == nil || owner.Role != entity.RoleIdeaOwner {
		return nil, apperror.Forbidden("Only idea owners can submit projects.")
	}

	returnType := entity.ReturnType(input.ReturnType)
	if returnType == "" {
		returnType = entity.ReturnReward
	}
	stakeTerms := strings.TrimSpace(input.StakeTerms)
	if returnType == entity.ReturnStake && stakeTerms == "" {
		return nil, apperror.Validation("stake terms are required for stake projects")
	}
	if input.Goal <= 0 {
		return nil, apperror.Validation("funding goal must be greater than zero")
	}
	if input.DurationDays <= 0 {
		return nil, apperror.Validation("duration must be greater than zero")
	}

	if files.ResearchReport == nil {
		return nil, apperror.Validation("research report is required")
	}
	if !storage.Allowed(files.ResearchReport.FileName) {
		return nil, apperror.Validation("research report must be one of: png, jpg, jpeg, gif, pdf, doc, docx")
	}

	members, err := s.buildTeam(ctx, input)
	if err != nil {
		return nil, err
	}

	reportURL, err := s.storage.Upload(ctx, files.ResearchReport.Reader, reportFolder, files.ResearchReport.FileName)
	if err != nil {
		return nil, fmt.Errorf("upload research report: %w", err)
	}

	var imageURL string
	if files.Image != nil && storage.Allowed(files.Image.FileName) {
		imageURL, err = s.storage.Upload(ctx, files.Image.Reader, imageFolder, files.Image.FileName)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
	}

	additional := make([]string, 0, len(files.AdditionalImages))
	for _, f := range files.AdditionalImages {
		if !storage.Allowed(f.FileName) {
			continue
		}
		url, err := s.storage.Upload(ctx, f.Reader, imageFolder, f.FileName)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		additional = append(additional, url)
	}

	now := s.now()
	project := &entity.Project{
		Title:             s.plain.Sanitize(strings.TrimSpace(input.Title)),
		ShortDescription:  s.plain.Sanitize(strings.TrimSpace(input.ShortDescription)),
		Description:       s.richText.Sanitize(input.Description),
		Category:          strings.TrimSpace(input.Category),
		Goal:              input.Goal,
		CurrentAmount:     0,
		StartDate:         now,
		EndDate:           now.AddDate(0, 0, input.DurationDays),
		Status:            entity.ProjectPending,
		ImageURL:          imageURL,
		AdditionalImages:  datatypes.JSONSlice[string](additional),
		VideoURL:          strings.TrimSpace(input.VideoURL),
		ResearchReportURL: reportURL,
		MarketOpportunity: s.richText.Sanitize(input.MarketOpportunity),
		UseOfFunds:        s.richText.Sanitize(input.UseOfFunds),
		ReturnType:        returnType,
		UserID:            owner.ID,
		TeamMembers:       members,
	}
	if returnType == entity.ReturnStake {
		project.StakeTerms = s.richText.Sanitize(stakeTerms)
	}

	if err := s.repo.Create(ctx, project); err != nil {
		s.discardUploads(ctx, append([]string{reportURL, imageURL}, additional...))
		if errors.Is(err, entity.ErrTeamMemberIdentity) {
			return nil, apperror.Validation(err.Error())
		}
		return nil, apperror.Persistence(err)
	}

	logger.L().Info().
		Str("project_id", project.ID.String()).
		Str("owner_id", owner.ID.String()).
		Msg("project submitted for review")

	project.Owner = owner
	res := dto.ToDetail(project, owner, now)
	return &res, nil
}

// buildTeam turns the parallel form lists into team member rows.
func (s *projectService) buildTeam(ctx context.Context, input dto.SubmitProjectInput) ([]entity.TeamMember, error) {
	var members []entity.TeamMember

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for i, raw := range input.TeamMemberIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.Validation("invalid team member id")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)

		userID := id
		members = append(members, entity.TeamMember{
			UserID: &userID,
			Role:   s.plain.Sanitize(strings.TrimSpace(at(input.TeamMemberRoles, i))),
		})
	}

	if len(ids) > 0 {
		found, err := s.repo.ExistingUserIDs(ctx, ids)
		if err != nil {
			return nil, apperror.Persistence(err)
		}
		if len(found) != len(ids) {
			return nil, apperror.Validation("team member not found")
		}
	}

	for i, name := range input.ExternalNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		members = append(members, entity.TeamMember{
			Name:            s.plain.Sanitize(name),
			Role:            s.plain.Sanitize(strings.TrimSpace(at(input.ExternalRoles, i))),
			LinkedinProfile: strings.TrimSpace(at(input.ExternalLinks, i)),
		})
	}

	return members, nil
}

func (s *projectService) discardUploads(ctx context.Context, urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.storage.Delete(ctx, url); err != nil {
			logger.L().Warn().Err(err).Str("url", url).Msg("failed to remove orphaned upload")
		}
	}
}

func (s *projectService) Browse(ctx context.Context, viewer uuid.UUID, filter dto.ProjectFilter) (*dto.ProjectListResponse, error) {
	projects, total, err := s.repo.Browse(ctx, viewer, filter)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	return &dto.ProjectListResponse{
		Data: dto.ToSummaries(projects, s.now()),
		Meta: commonDto.NewPaginationMeta(filter.Page, filter.Limit, total),
	}, nil
}

func (s *projectService) Explore(ctx context.Context, filter dto.ProjectFilter) (*dto.ProjectListResponse, error) {
	return s.Browse(ctx, uuid.Nil, filter)
}

func (s *projectService) Featured(ctx context.Context, excludeOwner uuid.UUID, sortBy string, limit int) ([]commonDto.ProjectSummary, error) {
	if limit <= 0 {
		limit = featuredLimit
	}
	projects, err := s.repo.Featured(ctx, excludeOwner, sortBy, limit)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return dto.ToSummaries(projects, s.now()), nil
}

// Search asks the search index first and falls back to the Browse query.
func (s *projectService) Search(ctx context.Context, viewer uuid.UUID, query dto.SearchProjectsQuery) (*dto.ProjectListResponse, error) {
	offset := (query.Page - 1) * query.Limit

	ids, total, err := s.index.Search(ctx, query.Query, query.Limit, offset)
	if err != nil {
		if !errors.Is(err, searchService.ErrUnavailable) {
			logger.L().Warn().Err(err).Msg("search index query failed, falling back to database")
		}
		return s.Browse(ctx, viewer, dto.ProjectFilter{
			Search: query.Query,
			Page:   query.Page,
			Limit:  query.Limit,
		})
	}

	projects, err := s.repo.FindApprovedByIDs(ctx, ids, viewer)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	return &dto.ProjectListResponse{
		Data: dto.ToSummaries(projects, s.now()),
		Meta: commonDto.NewPaginationMeta(query.Page, query.Limit, total),
	}, nil
}

func (s *projectService) Detail(ctx context.Context, viewer *entity.User, id uuid.UUID) (*dto.ProjectDetailResponse, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}

	if !project.VisibleTo(viewer) {
		return nil, ErrProjectHidden
	}

	res := dto.ToDetail(project, viewer, s.now())
	return &res, nil
}

func (s *projectService) MyProjects(ctx context.Context, ownerID uuid.UUID) ([]commonDto.ProjectSummary, error) {
	projects, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return dto.ToSummaries(projects, s.now()), nil
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}
