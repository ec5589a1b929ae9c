package service

import (
	"context"
	"net/http"
	"testing"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/modules/admin/dto"
	projectRepo "anoa.com/sparkvest/internal/modules/project/repository"
	userDto "anoa.com/sparkvest/internal/modules/user/dto"
	"anoa.com/sparkvest/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeProjects struct {
	byID      map[uuid.UUID]*entity.Project
	decideErr error
}

func (f *fakeProjects) FindByID(_ context.Context, id uuid.UUID) (*entity.Project, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) FindByOwner(_ context.Context, ownerID uuid.UUID) ([]entity.Project, error) {
	var out []entity.Project
	for _, p := range f.byID {
		if p.UserID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjects) ListForAdmin(_ context.Context, filter projectRepo.AdminFilter) ([]entity.Project, int64, error) {
	var out []entity.Project
	for _, p := range f.byID {
		if filter.Status == "" || string(p.Status) == filter.Status {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeProjects) CountByStatus(_ context.Context, status entity.ProjectStatus) (int64, error) {
	var n int64
	for _, p := range f.byID {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeProjects) Decide(_ context.Context, id uuid.UUID, status entity.ProjectStatus) (bool, error) {
	if f.decideErr != nil {
		return false, f.decideErr
	}
	p := f.byID[id]
	if p.Status != entity.ProjectPending {
		return false, nil
	}
	p.Status = status
	return true, nil
}

func (f *fakeProjects) UpdateFeedback(_ context.Context, id uuid.UUID, feedback string) error {
	p, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.AdminFeedback = feedback
	return nil
}

type fakeUsers struct {
	byID    map[uuid.UUID]*entity.User
	deleted []uuid.UUID
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) List(_ context.Context, _ userDto.UserFilter) ([]entity.User, int64, error) {
	var out []entity.User
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUsers) Count(context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

func (f *fakeUsers) ExistsByUsernameOrEmail(_ context.Context, username, email string, excludeID uuid.UUID) (bool, error) {
	for _, u := range f.byID {
		if u.ID != excludeID && (u.Username == username || u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) Update(_ context.Context, user *entity.User) error {
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) DeleteWithData(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fixedTotals struct{}

func (fixedTotals) Totals(context.Context) (int64, float64, error) { return 3, 1250.5, nil }

type recordingIndex struct {
	indexed []entity.Project
	removed []uuid.UUID
}

func (r *recordingIndex) IndexProjects(_ context.Context, projects []entity.Project) error {
	r.indexed = append(r.indexed, projects...)
	return nil
}

func (r *recordingIndex) DeleteProject(_ context.Context, id uuid.UUID) error {
	r.removed = append(r.removed, id)
	return nil
}

func (r *recordingIndex) Search(context.Context, string, int, int) ([]uuid.UUID, int64, error) {
	return nil, 0, nil
}

type recordingNotifier struct {
	sent []*entity.Notification
}

func (r *recordingNotifier) CreateNotification(_ context.Context, n *entity.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type adminFixture struct {
	svc      AdminService
	projects *fakeProjects
	users    *fakeUsers
	index    *recordingIndex
	notifier *recordingNotifier
	admin    *entity.User
	owner    *entity.User
	pending  *entity.Project
}

func newAdminFixture() *adminFixture {
	admin := &entity.User{ID: uuid.New(), Username: "admin", Email: "admin@gmail.com", Role: entity.RoleAdmin}
	owner := &entity.User{ID: uuid.New(), Username: "olive", Email: "olive@example.com", Role: entity.RoleIdeaOwner}
	pending := &entity.Project{ID: uuid.New(), Title: "Solar Schools", Goal: 1000, Status: entity.ProjectPending, UserID: owner.ID}
	approved := &entity.Project{ID: uuid.New(), Title: "Clean Water", Goal: 500, Status: entity.ProjectApproved, UserID: owner.ID}

	projects := &fakeProjects{byID: map[uuid.UUID]*entity.Project{pending.ID: pending, approved.ID: approved}}
	users := &fakeUsers{byID: map[uuid.UUID]*entity.User{admin.ID: admin, owner.ID: owner}}
	index := &recordingIndex{}
	notifier := &recordingNotifier{}

	return &adminFixture{
		svc:      NewAdminService(projects, users, fixedTotals{}, index, notifier),
		projects: projects,
		users:    users,
		index:    index,
		notifier: notifier,
		admin:    admin,
		owner:    owner,
		pending:  pending,
	}
}

func TestStats(t *testing.T) {
	f := newAdminFixture()

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &dto.StatsResponse{
		TotalUsers:       2,
		PendingProjects:  1,
		ApprovedProjects: 1,
		TotalInvestments: 3,
		TotalInvested:    1250.5,
	}, stats)
}

func TestApproveIndexesAndNotifies(t *testing.T) {
	f := newAdminFixture()

	res, err := f.svc.Approve(context.Background(), f.admin, f.pending.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectApproved, res.Project.Status)
	assert.Equal(t, entity.ProjectApproved, f.projects.byID[f.pending.ID].Status)

	require.Len(t, f.index.indexed, 1)
	assert.Equal(t, f.pending.ID, f.index.indexed[0].ID)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, f.owner.ID, f.notifier.sent[0].UserID)
	assert.Equal(t, entity.NotificationProjectApproved, f.notifier.sent[0].Type)
}

func TestApproveTwiceIsNoop(t *testing.T) {
	f := newAdminFixture()

	_, err := f.svc.Approve(context.Background(), f.admin, f.pending.ID)
	require.NoError(t, err)

	res, err := f.svc.Approve(context.Background(), f.admin, f.pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "Project is already approved.", res.Message)
	assert.Len(t, f.notifier.sent, 1)
	assert.Len(t, f.index.indexed, 1)
}

func TestRejectAfterApproveConflicts(t *testing.T) {
	f := newAdminFixture()

	_, err := f.svc.Approve(context.Background(), f.admin, f.pending.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), f.admin, f.pending.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, http.StatusConflict, apperror.MapErrorToStatus(err))
	assert.Equal(t, entity.ProjectApproved, f.projects.byID[f.pending.ID].Status)
}

func TestDecidePersistenceFailureKeepsState(t *testing.T) {
	f := newAdminFixture()
	f.projects.decideErr = assert.AnError

	_, err := f.svc.Reject(context.Background(), f.admin, f.pending.ID)
	assert.ErrorIs(t, err, apperror.ErrPersistence)
	assert.Equal(t, entity.ProjectPending, f.projects.byID[f.pending.ID].Status)
	assert.Empty(t, f.notifier.sent)
}

func TestFeedbackIsSanitized(t *testing.T) {
	f := newAdminFixture()

	res, err := f.svc.Feedback(context.Background(), f.admin, f.pending.ID, dto.FeedbackInput{Feedback: "<b>Add</b> a budget"})
	require.NoError(t, err)
	assert.Equal(t, "Add a budget", res.Project.AdminFeedback)
	assert.Equal(t, entity.ProjectPending, res.Project.Status)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, entity.NotificationProjectFeedback, f.notifier.sent[0].Type)
}

func TestModerateMissingProject(t *testing.T) {
	f := newAdminFixture()

	_, err := f.svc.Approve(context.Background(), f.admin, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestEditUser(t *testing.T) {
	f := newAdminFixture()
	role := "investor"
	verified := true

	res, err := f.svc.EditUser(context.Background(), f.owner.ID, dto.EditUserInput{Role: &role, IsVerified: &verified})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleInvestor, res.Role)
	assert.True(t, res.IsVerified)

	taken := "ADMIN@gmail.com"
	_, err = f.svc.EditUser(context.Background(), f.owner.ID, dto.EditUserInput{Email: &taken})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestDeleteUser(t *testing.T) {
	f := newAdminFixture()

	err := f.svc.DeleteUser(context.Background(), f.admin, f.admin.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	require.NoError(t, f.svc.DeleteUser(context.Background(), f.admin, f.owner.ID))
	assert.Equal(t, []uuid.UUID{f.owner.ID}, f.users.deleted)
	// Only the approved project was ever indexed.
	assert.Len(t, f.index.removed, 1)

	err = f.svc.DeleteUser(context.Background(), f.admin, f.owner.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
