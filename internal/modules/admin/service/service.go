package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/modules/admin/dto"
	notifService "anoa.com/sparkvest/internal/modules/notification/service"
	projectDto "anoa.com/sparkvest/internal/modules/project/dto"
	projectRepo "anoa.com/sparkvest/internal/modules/project/repository"
	searchService "anoa.com/sparkvest/internal/modules/search/service"
	userDto "anoa.com/sparkvest/internal/modules/user/dto"
	"anoa.com/sparkvest/pkg/apperror"
	commonDto "anoa.com/sparkvest/pkg/dto"
	"anoa.com/sparkvest/pkg/logger"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// ProjectStore is the part of the project repository moderation needs.
type ProjectStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Project, error)
	ListForAdmin(ctx context.Context, filter projectRepo.AdminFilter) ([]entity.Project, int64, error)
	CountByStatus(ctx context.Context, status entity.ProjectStatus) (int64, error)
	Decide(ctx context.Context, id uuid.UUID, status entity.ProjectStatus) (bool, error)
	UpdateFeedback(ctx context.Context, id uuid.UUID, feedback string) error
}

type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	List(ctx context.Context, filter userDto.UserFilter) ([]entity.User, int64, error)
	Count(ctx context.Context) (int64, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID uuid.UUID) (bool, error)
	Update(ctx context.Context, user *entity.User) error
	DeleteWithData(ctx context.Context, id uuid.UUID) error
}

type LedgerTotals interface {
	Totals(ctx context.Context) (count int64, sum float64, err error)
}

type AdminService interface {
	Stats(ctx context.Context) (*dto.StatsResponse, error)
	ListProjects(ctx context.Context, filter dto.ProjectFilter) (*dto.ProjectListResponse, error)
	ProjectDetail(ctx context.Context, admin *entity.User, id uuid.UUID) (*projectDto.ProjectDetailResponse, error)
	Approve(ctx context.Context, admin *entity.User, id uuid.UUID) (*dto.ModerationResponse, error)
	Reject(ctx context.Context, admin *entity.User, id uuid.UUID) (*dto.ModerationResponse, error)
	Feedback(ctx context.Context, admin *entity.User, id uuid.UUID, input dto.FeedbackInput) (*dto.ModerationResponse, error)
	ListUsers(ctx context.Context, filter userDto.UserFilter) (*dto.UserListResponse, error)
	EditUser(ctx context.Context, id uuid.UUID, input dto.EditUserInput) (*userDto.UserResponse, error)
	DeleteUser(ctx context.Context, admin *entity.User, id uuid.UUID) error
}

type adminService struct {
	projects ProjectStore
	users    UserStore
	ledger   LedgerTotals
	index    searchService.ProjectIndex
	notifier notifService.Notifier
	policy   *bluemonday.Policy
	now      func() time.Time
}

func NewAdminService(projects ProjectStore, users UserStore, ledger LedgerTotals, index searchService.ProjectIndex, notifier notifService.Notifier) AdminService {
	return &adminService{
		projects: projects,
		users:    users,
		ledger:   ledger,
		index:    index,
		notifier: notifier,
		policy:   bluemonday.StrictPolicy(),
		now:      time.Now,
	}
}

func (s *adminService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	var res dto.StatsResponse
	var err error

	if res.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, apperror.Persistence(err)
	}
	if res.PendingProjects, err = s.projects.CountByStatus(ctx, entity.ProjectPending); err != nil {
		return nil, apperror.Persistence(err)
	}
	if res.ApprovedProjects, err = s.projects.CountByStatus(ctx, entity.ProjectApproved); err != nil {
		return nil, apperror.Persistence(err)
	}
	if res.TotalInvestments, res.TotalInvested, err = s.ledger.Totals(ctx); err != nil {
		return nil, apperror.Persistence(err)
	}
	return &res, nil
}

func (s *adminService) ListProjects(ctx context.Context, filter dto.ProjectFilter) (*dto.ProjectListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	projects, total, err := s.projects.ListForAdmin(ctx, projectRepo.AdminFilter{
		Status:   filter.Status,
		Search:   filter.Search,
		Category: filter.Category,
		Offset:   (filter.Page - 1) * filter.Limit,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	now := s.now()
	items := make([]dto.AdminProjectItem, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		item := dto.AdminProjectItem{
			ProjectSummary: projectDto.ToSummary(p, now),
			AdminFeedback:  p.AdminFeedback,
		}
		if p.Owner != nil {
			item.Owner = &commonDto.UserSummary{ID: p.Owner.ID, Username: p.Owner.Username, Email: p.Owner.Email}
		}
		items = append(items, item)
	}

	return &dto.ProjectListResponse{
		Data: items,
		Meta: commonDto.NewPaginationMeta(filter.Page, filter.Limit, total),
	}, nil
}

func (s *adminService) findProject(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}
	return project, nil
}

func (s *adminService) ProjectDetail(ctx context.Context, admin *entity.User, id uuid.UUID) (*projectDto.ProjectDetailResponse, error) {
	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}
	res := projectDto.ToDetail(project, admin, s.now())
	return &res, nil
}

func (s *adminService) Approve(ctx context.Context, admin *entity.User, id uuid.UUID) (*dto.ModerationResponse, error) {
	return s.decide(ctx, admin, id, entity.ProjectApproved)
}

func (s *adminService) Reject(ctx context.Context, admin *entity.User, id uuid.UUID) (*dto.ModerationResponse, error) {
	return s.decide(ctx, admin, id, entity.ProjectRejected)
}

// decide applies a terminal status. Repeating the same decision is a no-op;
// reversing a decision is refused.
func (s *adminService) decide(ctx context.Context, admin *entity.User, id uuid.UUID, status entity.ProjectStatus) (*dto.ModerationResponse, error) {
	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if project.Status == status {
		return s.moderation(project, admin, fmt.Sprintf("Project is already %s.", status)), nil
	}
	if project.Status != entity.ProjectPending {
		return nil, conflict(project.Status)
	}

	decided, err := s.projects.Decide(ctx, id, status)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if !decided {
		// Lost a race with another moderator.
		if project, err = s.findProject(ctx, id); err != nil {
			return nil, err
		}
		if project.Status == status {
			return s.moderation(project, admin, fmt.Sprintf("Project is already %s.", status)), nil
		}
		return nil, conflict(project.Status)
	}
	project.Status = status

	logger.L().Info().
		Str("project_id", project.ID.String()).
		Str("admin_id", admin.ID.String()).
		Str("status", string(status)).
		Msg("project moderated")

	if s.index != nil {
		if err := s.index.IndexProjects(ctx, []entity.Project{*project}); err != nil && !errors.Is(err, searchService.ErrUnavailable) {
			logger.L().Warn().Err(err).Str("project_id", project.ID.String()).Msg("failed to update search index")
		}
	}

	notifType, verb := entity.NotificationProjectApproved, "approved"
	if status == entity.ProjectRejected {
		notifType, verb = entity.NotificationProjectRejected, "rejected"
	}
	actorID := admin.ID
	notifService.Notify(ctx, s.notifier, &entity.Notification{
		UserID:     project.UserID,
		ActorID:    &actorID,
		EntityID:   project.ID,
		EntityType: entity.NotificationEntityProject,
		Type:       notifType,
		Message:    fmt.Sprintf("Your project %s has been %s.", project.Title, verb),
	})

	return s.moderation(project, admin, fmt.Sprintf("Project %s successfully.", verb)), nil
}

func conflict(current entity.ProjectStatus) error {
	return apperror.New(http.StatusConflict, fmt.Sprintf("Project has already been %s.", current), apperror.ErrConflict)
}

func (s *adminService) moderation(project *entity.Project, admin *entity.User, message string) *dto.ModerationResponse {
	return &dto.ModerationResponse{
		Message: message,
		Project: projectDto.ToDetail(project, admin, s.now()),
	}
}

func (s *adminService) Feedback(ctx context.Context, admin *entity.User, id uuid.UUID, input dto.FeedbackInput) (*dto.ModerationResponse, error) {
	feedback := strings.TrimSpace(s.policy.Sanitize(input.Feedback))
	if feedback == "" {
		return nil, apperror.Validation("Feedback cannot be empty.")
	}

	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.projects.UpdateFeedback(ctx, id, feedback); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}
	project.AdminFeedback = feedback

	actorID := admin.ID
	notifService.Notify(ctx, s.notifier, &entity.Notification{
		UserID:     project.UserID,
		ActorID:    &actorID,
		EntityID:   project.ID,
		EntityType: entity.NotificationEntityProject,
		Type:       entity.NotificationProjectFeedback,
		Message:    fmt.Sprintf("An admin left feedback on %s.", project.Title),
	})

	return s.moderation(project, admin, "Feedback saved successfully."), nil
}

func (s *adminService) ListUsers(ctx context.Context, filter userDto.UserFilter) (*dto.UserListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	data := make([]userDto.UserResponse, 0, len(users))
	for i := range users {
		data = append(data, userDto.ToUserResponse(&users[i]))
	}

	return &dto.UserListResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(filter.Page, filter.Limit, total),
	}, nil
}

func (s *adminService) findUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}
	return user, nil
}

func (s *adminService) EditUser(ctx context.Context, id uuid.UUID, input dto.EditUserInput) (*userDto.UserResponse, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		user.Username = strings.TrimSpace(*input.Username)
	}
	if input.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.PhoneNumber != nil {
		if phone := strings.TrimSpace(*input.PhoneNumber); phone != "" {
			user.PhoneNumber = &phone
		} else {
			user.PhoneNumber = nil
		}
	}
	if input.Role != nil {
		role := entity.Role(*input.Role)
		if !role.Valid() {
			return nil, apperror.Validation("invalid role")
		}
		user.Role = role
	}
	if input.IsVerified != nil {
		user.IsVerified = *input.IsVerified
	}

	if user.Username == "" || user.Email == "" {
		return nil, apperror.Validation("username and email are required")
	}

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, user.Username, user.Email, user.ID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if taken {
		return nil, apperror.ErrConflict
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.ErrConflict
		}
		return nil, apperror.Persistence(err)
	}

	res := userDto.ToUserResponse(user)
	return &res, nil
}

func (s *adminService) DeleteUser(ctx context.Context, admin *entity.User, id uuid.UUID) error {
	if admin.ID == id {
		return apperror.Validation("You cannot delete your own account.")
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}

	owned, err := s.projects.FindByOwner(ctx, id)
	if err != nil {
		return apperror.Persistence(err)
	}

	if err := s.users.DeleteWithData(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return apperror.Persistence(err)
	}

	logger.L().Info().
		Str("user_id", id.String()).
		Str("admin_id", admin.ID.String()).
		Int("projects", len(owned)).
		Msg("user deleted")

	if s.index != nil {
		for _, p := range owned {
			if p.Status != entity.ProjectApproved {
				continue
			}
			if err := s.index.DeleteProject(ctx, p.ID); err != nil && !errors.Is(err, searchService.ErrUnavailable) {
				logger.L().Warn().Err(err).Str("project_id", p.ID.String()).Str("user", user.Username).Msg("failed to remove project from search index")
			}
		}
	}
	return nil
}
