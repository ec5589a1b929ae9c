package repository

import (
	"context"
	"strings"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/modules/user/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID uuid.UUID) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *entity.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]entity.User, error)
	List(ctx context.Context, filter dto.UserFilter) ([]entity.User, int64, error)
	Count(ctx context.Context) (int64, error)
	CountByEmail(ctx context.Context, email string) (int64, error)
	DeleteWithData(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error) {
	var users []entity.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("username = ? OR LOWER(email) = LOWER(?)", username, email)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Model(user).Select("username", "email", "phone_number", "role", "is_verified").Updates(user).Error
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func (r *userRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Update("is_verified", true).Error
}

func (r *userRepository) Search(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]entity.User, error) {
	var users []entity.User
	pattern := "%" + escapeLike(query) + "%"
	err := r.db.WithContext(ctx).
		Select("id", "username", "email").
		Where("(username ILIKE ? OR email ILIKE ?) AND id <> ?", pattern, pattern, excludeID).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *userRepository) List(ctx context.Context, filter dto.UserFilter) ([]entity.User, int64, error) {
	var (
		users []entity.User
		total int64
	)

	query := r.db.WithContext(ctx).Model(&entity.User{})
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ?", pattern, pattern)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.SortBy {
	case "oldest":
		query = query.Order("created_at ASC")
	case "username":
		query = query.Order("username ASC")
	default:
		query = query.Order("created_at DESC")
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Offset(offset).Limit(filter.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&count).Error
	return count, err
}

func (r *userRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error
	return count, err
}

// DeleteWithData removes the user together with everything that references
// them, including projects they own and the rows hanging off those projects.
func (r *userRepository) DeleteWithData(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownedProjects := func() *gorm.DB {
			return tx.Model(&entity.Project{}).Select("id").Where("user_id = ?", id)
		}

		steps := []func() error{
			func() error {
				return tx.Where("user_id = ?", id).Delete(&entity.CommentLike{}).Error
			},
			func() error {
				// Replies by other users to this user's comments go too.
				return tx.Exec(`WITH RECURSIVE tree AS (
					SELECT id FROM comments WHERE user_id = ? OR project_id IN (SELECT id FROM projects WHERE user_id = ?)
					UNION
					SELECT c.id FROM comments c JOIN tree t ON c.parent_id = t.id
				)
				DELETE FROM comment_likes WHERE comment_id IN (SELECT id FROM tree)`, id, id).Error
			},
			func() error {
				return tx.Exec(`WITH RECURSIVE tree AS (
					SELECT id FROM comments WHERE user_id = ? OR project_id IN (SELECT id FROM projects WHERE user_id = ?)
					UNION
					SELECT c.id FROM comments c JOIN tree t ON c.parent_id = t.id
				)
				DELETE FROM comments WHERE id IN (SELECT id FROM tree)`, id, id).Error
			},
			func() error {
				return tx.Where("user_id = ? OR project_id IN (?)", id, ownedProjects()).Delete(&entity.Investment{}).Error
			},
			func() error {
				return tx.Where("user_id = ? OR project_id IN (?)", id, ownedProjects()).Delete(&entity.TeamMember{}).Error
			},
			func() error {
				return tx.Where("user_id = ?", id).Delete(&entity.Notification{}).Error
			},
			func() error {
				return tx.Where("user_id = ?", id).Delete(&entity.Project{}).Error
			},
			func() error {
				res := tx.Delete(&entity.User{}, "id = ?", id)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return gorm.ErrRecordNotFound
				}
				return nil
			},
		}

		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
