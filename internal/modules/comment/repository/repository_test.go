package repository

import (
	"context"
	"sync"
	"testing"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/testutil/pgtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func likeRows(t *testing.T, db *gorm.DB, userID, commentID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&entity.CommentLike{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Count(&n).Error)
	return n
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	db := pgtest.Open(t)
	repo := NewCommentRepository(db)
	owner := pgtest.CreateUser(t, db, entity.RoleIdeaOwner)
	fan := pgtest.CreateUser(t, db, entity.RoleInvestor)
	project := pgtest.CreateProject(t, db, owner, 1000)
	comment := pgtest.CreateComment(t, db, owner, project, nil)
	ctx := context.Background()

	liked, count, err := repo.ToggleLike(ctx, fan.ID, comment.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	liked, count, err = repo.ToggleLike(ctx, fan.ID, comment.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, int64(0), likeRows(t, db, fan.ID, comment.ID))
}

func TestToggleLikeConcurrentDuplicatesKeepOneRow(t *testing.T) {
	db := pgtest.Open(t)
	repo := NewCommentRepository(db)
	owner := pgtest.CreateUser(t, db, entity.RoleIdeaOwner)
	fan := pgtest.CreateUser(t, db, entity.RoleInvestor)
	project := pgtest.CreateProject(t, db, owner, 1000)
	comment := pgtest.CreateComment(t, db, owner, project, nil)

	const workers = 8

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := repo.ToggleLike(context.Background(), fan.ID, comment.ID)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, likeRows(t, db, fan.ID, comment.ID), int64(1))
}

func TestDeleteTreeRemovesRepliesAndLikes(t *testing.T) {
	db := pgtest.Open(t)
	repo := NewCommentRepository(db)
	owner := pgtest.CreateUser(t, db, entity.RoleIdeaOwner)
	fan := pgtest.CreateUser(t, db, entity.RoleInvestor)
	project := pgtest.CreateProject(t, db, owner, 1000)

	root := pgtest.CreateComment(t, db, fan, project, nil)
	reply := pgtest.CreateComment(t, db, owner, project, root)
	nested := pgtest.CreateComment(t, db, fan, project, reply)
	sibling := pgtest.CreateComment(t, db, fan, project, nil)
	for _, c := range []*entity.Comment{root, reply, nested, sibling} {
		pgtest.Like(t, db, owner, c)
	}

	deleted, err := repo.DeleteTree(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	var remaining []uuid.UUID
	require.NoError(t, db.Model(&entity.Comment{}).Pluck("id", &remaining).Error)
	assert.Equal(t, []uuid.UUID{sibling.ID}, remaining)

	var likes []uuid.UUID
	require.NoError(t, db.Model(&entity.CommentLike{}).Pluck("comment_id", &likes).Error)
	assert.Equal(t, []uuid.UUID{sibling.ID}, likes)
}

func TestDeleteTreeMissingComment(t *testing.T) {
	db := pgtest.Open(t)
	repo := NewCommentRepository(db)

	_, err := repo.DeleteTree(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
