package repository

import (
	"context"
	"testing"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/testutil/pgtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countWhere(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestDeleteWithDataRemovesOwnedRecords(t *testing.T) {
	db := pgtest.Open(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	owner := pgtest.CreateUser(t, db, entity.RoleIdeaOwner)
	investor := pgtest.CreateUser(t, db, entity.RoleInvestor)
	other := pgtest.CreateUser(t, db, entity.RoleIdeaOwner)

	ownProject := pgtest.CreateProject(t, db, owner, 1000)
	otherProject := pgtest.CreateProject(t, db, other, 2000)

	require.NoError(t, db.Omit("Investor", "Project").Create(&entity.Investment{
		Amount: 100, UserID: investor.ID, ProjectID: ownProject.ID, OrderID: "order_1", PaymentID: "pay_1",
	}).Error)
	require.NoError(t, db.Omit("Investor", "Project").Create(&entity.Investment{
		Amount: 50, UserID: investor.ID, ProjectID: otherProject.ID, OrderID: "order_2", PaymentID: "pay_2",
	}).Error)

	onOwnProject := pgtest.CreateComment(t, db, investor, ownProject, nil)
	question := pgtest.CreateComment(t, db, investor, otherProject, nil)
	ownerReply := pgtest.CreateComment(t, db, owner, otherProject, question)
	followUp := pgtest.CreateComment(t, db, investor, otherProject, ownerReply)
	pgtest.Like(t, db, investor, ownerReply)
	pgtest.Like(t, db, owner, question)

	require.NoError(t, repo.DeleteWithData(ctx, owner.ID))

	assert.Zero(t, countWhere(t, db, &entity.User{}, "id = ?", owner.ID))
	assert.Zero(t, countWhere(t, db, &entity.Project{}, "id = ?", ownProject.ID))
	assert.Zero(t, countWhere(t, db, &entity.Investment{}, "project_id = ?", ownProject.ID))
	assert.Zero(t, countWhere(t, db, &entity.Comment{}, "id IN ?", []uuid.UUID{onOwnProject.ID, ownerReply.ID, followUp.ID}))
	assert.Zero(t, countWhere(t, db, &entity.CommentLike{}, "user_id = ? OR comment_id = ?", owner.ID, ownerReply.ID))

	assert.Equal(t, int64(1), countWhere(t, db, &entity.User{}, "id = ?", investor.ID))
	assert.Equal(t, int64(1), countWhere(t, db, &entity.Project{}, "id = ?", otherProject.ID))
	assert.Equal(t, int64(1), countWhere(t, db, &entity.Investment{}, "project_id = ?", otherProject.ID))
	assert.Equal(t, int64(1), countWhere(t, db, &entity.Comment{}, "id = ?", question.ID))
}

func TestDeleteWithDataMissingUser(t *testing.T) {
	db := pgtest.Open(t)
	repo := NewUserRepository(db)

	err := repo.DeleteWithData(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
