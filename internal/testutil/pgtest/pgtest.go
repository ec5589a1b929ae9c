// Package pgtest opens a throwaway Postgres schema for repository tests.
// Tests are skipped unless TEST_DATABASE_DSN points at a reachable server.
package pgtest

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"anoa.com/sparkvest/internal/bootstrap"
	"anoa.com/sparkvest/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const dsnEnv = "TEST_DATABASE_DSN"

// Open returns a connection whose search_path is a fresh, migrated schema.
// The schema is dropped when the test ends.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	admin, err := open(dsn)
	require.NoError(t, err)

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	require.NoError(t, admin.Exec(fmt.Sprintf(`CREATE SCHEMA "%s"`, schema)).Error)

	db, err := open(withSearchPath(dsn, schema))
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		admin.Exec(fmt.Sprintf(`DROP SCHEMA "%s" CASCADE`, schema))
		if sqlDB, err := admin.DB(); err == nil {
			sqlDB.Close()
		}
	})

	require.NoError(t, bootstrap.Migrate(db))
	return db
}

func open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}

func CreateUser(t *testing.T, db *gorm.DB, role entity.Role) *entity.User {
	t.Helper()
	name := "u" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	user := &entity.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
		IsVerified:   true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateProject(t *testing.T, db *gorm.DB, owner *entity.User, goal float64) *entity.Project {
	t.Helper()
	now := time.Now()
	project := &entity.Project{
		Title:       "Solar kiosk",
		Description: "Pay-as-you-go solar charging",
		Goal:        goal,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, 30),
		Status:      entity.ProjectApproved,
		ReturnType:  entity.ReturnReward,
		UserID:      owner.ID,
	}
	require.NoError(t, db.Omit("Owner", "TeamMembers").Create(project).Error)
	return project
}

func CreateComment(t *testing.T, db *gorm.DB, author *entity.User, project *entity.Project, parent *entity.Comment) *entity.Comment {
	t.Helper()
	comment := &entity.Comment{
		Content:   "question about the payback period",
		UserID:    author.ID,
		ProjectID: project.ID,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}
	require.NoError(t, db.Omit("Author", "Project", "Parent", "Likes").Create(comment).Error)
	return comment
}

func Like(t *testing.T, db *gorm.DB, user *entity.User, comment *entity.Comment) {
	t.Helper()
	require.NoError(t, db.Omit("User").Create(&entity.CommentLike{UserID: user.ID, CommentID: comment.ID}).Error)
}
