package repository

import (
	"context"

	"anoa.com/sparkvest/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subtreeQuery selects a comment and every reply below it.
const subtreeQuery = `WITH RECURSIVE subtree AS (
	SELECT id FROM comments WHERE id = ?
	UNION ALL
	SELECT c.id FROM comments c JOIN subtree s ON c.parent_id = s.id
) SELECT id FROM subtree`

type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]entity.Comment, error)
	LikeCounts(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	LikedBy(ctx context.Context, userID uuid.UUID, commentIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	// ToggleLike flips the like of userID on commentID and returns the resulting state.
	ToggleLike(ctx context.Context, userID, commentID uuid.UUID) (bool, int64, error)
	// DeleteTree removes the comment, all its replies and their likes.
	DeleteTree(ctx context.Context, id uuid.UUID) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return err
	}
	var author entity.User
	if err := r.db.WithContext(ctx).
		Select("id", "username", "email", "role").
		Where("id = ?", comment.UserID).
		First(&author).Error; err != nil {
		return err
	}
	comment.Author = &author
	return nil
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	var comment entity.Comment
	if err := r.db.WithContext(ctx).
		Preload("Author", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "email", "role")
		}).
		Where("id = ?", id).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]entity.Comment, error) {
	var comments []entity.Comment
	err := r.db.WithContext(ctx).
		Preload("Author", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "email", "role")
		}).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) LikeCounts(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	type result struct {
		CommentID uuid.UUID
		Count     int64
	}
	counts := make(map[uuid.UUID]int64)
	if len(commentIDs) == 0 {
		return counts, nil
	}

	var results []result
	err := r.db.WithContext(ctx).
		Model(&entity.CommentLike{}).
		Select("comment_id, count(*) as count").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		counts[res.CommentID] = res.Count
	}
	return counts, nil
}

func (r *commentRepository) LikedBy(ctx context.Context, userID uuid.UUID, commentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool)
	if len(commentIDs) == 0 {
		return liked, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *commentRepository) ToggleLike(ctx context.Context, userID, commentID uuid.UUID) (bool, int64, error) {
	var liked bool
	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&entity.CommentLike{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			// A concurrent duplicate insert hits the unique index and becomes a no-op.
			like := &entity.CommentLike{UserID: userID, CommentID: commentID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error; err != nil {
				return err
			}
			liked = true
		}

		return tx.Model(&entity.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

func (r *commentRepository) DeleteTree(ctx context.Context, id uuid.UUID) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Raw(subtreeQuery, id).Scan(&ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("comment_id IN ?", ids).Delete(&entity.CommentLike{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&entity.Comment{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}
