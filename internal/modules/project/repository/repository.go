package repository

import (
	"context"
	"strings"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/modules/project/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminFilter narrows the moderation listing.
type AdminFilter struct {
	Status   string
	Search   string
	Category string
	Offset   int
	Limit    int
}

type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	Browse(ctx context.Context, excludeOwner uuid.UUID, filter dto.ProjectFilter) ([]entity.Project, int64, error)
	FindApprovedByIDs(ctx context.Context, ids []uuid.UUID, excludeOwner uuid.UUID) ([]entity.Project, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Project, error)
	Featured(ctx context.Context, excludeOwner uuid.UUID, sortBy string, limit int) ([]entity.Project, error)
	ListApproved(ctx context.Context, offset, limit int) ([]entity.Project, error)
	ListForAdmin(ctx context.Context, filter AdminFilter) ([]entity.Project, int64, error)
	CountByStatus(ctx context.Context, status entity.ProjectStatus) (int64, error)
	// Decide moves a pending project to status; it reports false when the project was not pending.
	Decide(ctx context.Context, id uuid.UUID, status entity.ProjectStatus) (bool, error)
	UpdateFeedback(ctx context.Context, id uuid.UUID, feedback string) error
	ExistingUserIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// Create inserts the project and its team members in one transaction.
func (r *projectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := project.TeamMembers
		project.TeamMembers = nil
		if err := tx.Omit("Owner").Create(project).Error; err != nil {
			return err
		}

		for i := range members {
			members[i].ProjectID = project.ID
		}
		if len(members) > 0 {
			if err := tx.Omit("User").Create(&members).Error; err != nil {
				return err
			}
		}
		project.TeamMembers = members
		return nil
	})
}

func (r *projectRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	var project entity.Project
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("TeamMembers", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("TeamMembers.User").
		Where("id = ?", id).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func applySort(query *gorm.DB, sortBy string) *gorm.DB {
	switch sortBy {
	case "popular":
		return query.Order("current_amount DESC").Order("created_at DESC")
	case "ending_soon":
		return query.Order("end_date ASC")
	case "most_funded":
		return query.Order("current_amount / NULLIF(goal, 0) DESC").Order("created_at DESC")
	case "least_funded":
		return query.Order("current_amount / NULLIF(goal, 0) ASC").Order("created_at DESC")
	default:
		return query.Order("created_at DESC")
	}
}

func (r *projectRepository) Browse(ctx context.Context, excludeOwner uuid.UUID, filter dto.ProjectFilter) ([]entity.Project, int64, error) {
	var projects []entity.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Project{}).
		Where("status = ?", entity.ProjectApproved)

	if excludeOwner != uuid.Nil {
		query = query.Where("user_id <> ?", excludeOwner)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := applySort(query, filter.SortBy).Offset(offset).Limit(filter.Limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// FindApprovedByIDs keeps the order of ids.
func (r *projectRepository) FindApprovedByIDs(ctx context.Context, ids []uuid.UUID, excludeOwner uuid.UUID) ([]entity.Project, error) {
	if len(ids) == 0 {
		return []entity.Project{}, nil
	}

	var projects []entity.Project
	query := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("status = ?", entity.ProjectApproved)
	if excludeOwner != uuid.Nil {
		query = query.Where("user_id <> ?", excludeOwner)
	}
	if err := query.Find(&projects).Error; err != nil {
		return nil, err
	}

	projectMap := make(map[uuid.UUID]entity.Project, len(projects))
	for _, p := range projects {
		projectMap[p.ID] = p
	}

	ordered := make([]entity.Project, 0, len(ids))
	for _, id := range ids {
		if p, ok := projectMap[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (r *projectRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Project, error) {
	var projects []entity.Project
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) Featured(ctx context.Context, excludeOwner uuid.UUID, sortBy string, limit int) ([]entity.Project, error) {
	var projects []entity.Project
	query := r.db.WithContext(ctx).Where("status = ?", entity.ProjectApproved)
	if excludeOwner != uuid.Nil {
		query = query.Where("user_id <> ?", excludeOwner)
	}
	err := applySort(query, sortBy).Limit(limit).Find(&projects).Error
	return projects, err
}

func (r *projectRepository) ListApproved(ctx context.Context, offset, limit int) ([]entity.Project, error) {
	var projects []entity.Project
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("status = ?", entity.ProjectApproved).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) ListForAdmin(ctx context.Context, filter AdminFilter) ([]entity.Project, int64, error) {
	var projects []entity.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Project{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Owner").
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *projectRepository) CountByStatus(ctx context.Context, status entity.ProjectStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Project{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *projectRepository) Decide(ctx context.Context, id uuid.UUID, status entity.ProjectStatus) (bool, error) {
	var decided bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Project{}).
			Where("id = ? AND status = ?", id, entity.ProjectPending).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		decided = res.RowsAffected == 1
		return nil
	})
	return decided, err
}

func (r *projectRepository) UpdateFeedback(ctx context.Context, id uuid.UUID, feedback string) error {
	res := r.db.WithContext(ctx).Model(&entity.Project{}).
		Where("id = ?", id).
		Update("admin_feedback", feedback)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *projectRepository) ExistingUserIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	if len(ids) == 0 {
		return found, nil
	}
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
