package repository

import (
	"context"

	"anoa.com/sparkvest/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvestmentRepository interface {
	// Settle records the investment and credits the project under a row lock.
	Settle(ctx context.Context, investment *entity.Investment) (*entity.Project, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]entity.Investment, error)
	FindByProjectOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]entity.Investment, error)
	Totals(ctx context.Context) (count int64, sum float64, err error)
}

type investmentRepository struct {
	db *gorm.DB
}

func NewInvestmentRepository(db *gorm.DB) InvestmentRepository {
	return &investmentRepository{db: db}
}

func (r *investmentRepository) Settle(ctx context.Context, investment *entity.Investment) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", investment.ProjectID).
			First(&project).Error; err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(investment).Error; err != nil {
			return err
		}

		if err := tx.Model(&project).
			UpdateColumn("current_amount", gorm.Expr("current_amount + ?", investment.Amount)).Error; err != nil {
			return err
		}

		return tx.Select("current_amount").Where("id = ?", project.ID).First(&project).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *investmentRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]entity.Investment, error) {
	var investments []entity.Investment
	err := r.db.WithContext(ctx).
		Preload("Project").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&investments).Error
	return investments, err
}

func (r *investmentRepository) FindByProjectOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]entity.Investment, error) {
	var investments []entity.Investment
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Investor").
		Joins("JOIN projects ON projects.id = investments.project_id").
		Where("projects.user_id = ?", ownerID).
		Order("investments.created_at DESC").
		Limit(limit).
		Find(&investments).Error
	return investments, err
}

func (r *investmentRepository) Totals(ctx context.Context) (int64, float64, error) {
	var row struct {
		Count int64
		Sum   float64
	}
	err := r.db.WithContext(ctx).Model(&entity.Investment{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Scan(&row).Error
	return row.Count, row.Sum, err
}
