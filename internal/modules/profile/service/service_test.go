package profile

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"anoa.com/sparkvest/internal/entity"
	profileDto "anoa.com/sparkvest/internal/modules/profile/dto"
	"anoa.com/sparkvest/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type memoryUsers struct {
	byID map[uuid.UUID]*entity.User
}

func (m *memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) ExistsByUsernameOrEmail(_ context.Context, username, email string, excludeID uuid.UUID) (bool, error) {
	for _, u := range m.byID {
		if u.ID != excludeID && (u.Username == username || u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUsers) Update(_ context.Context, user *entity.User) error {
	stored := m.byID[user.ID]
	stored.Username, stored.Email, stored.PhoneNumber = user.Username, user.Email, user.PhoneNumber
	return nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.byID[id].PasswordHash = hash
	return nil
}

func newProfileFixture(t *testing.T) (ProfileService, *memoryUsers, *entity.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	me := &entity.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com", PasswordHash: string(hash)}
	other := &entity.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com"}
	repo := &memoryUsers{byID: map[uuid.UUID]*entity.User{me.ID: me, other.ID: other}}
	return NewProfileService(repo), repo, me
}

func ptr(s string) *string { return &s }

func TestUpdateProfileFields(t *testing.T) {
	svc, repo, me := newProfileFixture(t)

	res, err := svc.UpdateProfile(context.Background(), me.ID, profileDto.UpdateProfileInput{
		Username:    ptr("alice_w"),
		Email:       ptr(" Alice.W@Example.com "),
		PhoneNumber: ptr("+911234"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice_w", res.Username)
	assert.Equal(t, "alice.w@example.com", repo.byID[me.ID].Email)
	require.NotNil(t, repo.byID[me.ID].PhoneNumber)
	assert.Equal(t, "+911234", *repo.byID[me.ID].PhoneNumber)
}

func TestUpdateProfileRejectsTakenUsername(t *testing.T) {
	svc, repo, me := newProfileFixture(t)

	_, err := svc.UpdateProfile(context.Background(), me.ID, profileDto.UpdateProfileInput{Username: ptr("bob")})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "alice", repo.byID[me.ID].Username)
}

func TestChangePassword(t *testing.T) {
	svc, repo, me := newProfileFixture(t)
	before := repo.byID[me.ID].PasswordHash

	_, err := svc.UpdateProfile(context.Background(), me.ID, profileDto.UpdateProfileInput{
		CurrentPassword: "wrong",
		NewPassword:     "another1",
		ConfirmPassword: "another1",
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, before, repo.byID[me.ID].PasswordHash)

	_, err = svc.UpdateProfile(context.Background(), me.ID, profileDto.UpdateProfileInput{
		CurrentPassword: "secret1",
		NewPassword:     "another1",
		ConfirmPassword: "another2",
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.UpdateProfile(context.Background(), me.ID, profileDto.UpdateProfileInput{
		CurrentPassword: "secret1",
		NewPassword:     "another1",
		ConfirmPassword: "another1",
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.byID[me.ID].PasswordHash), []byte("another1")))
}

func TestChangePasswordOverBcryptLimit(t *testing.T) {
	svc, repo, me := newProfileFixture(t)
	before := repo.byID[me.ID].PasswordHash

	long := strings.Repeat("p", 80)
	_, err := svc.UpdateProfile(context.Background(), me.ID, profileDto.UpdateProfileInput{
		CurrentPassword: "secret1",
		NewPassword:     long,
		ConfirmPassword: long,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))
	assert.Equal(t, before, repo.byID[me.ID].PasswordHash)
}

func TestGetCurrentProfileMissing(t *testing.T) {
	svc, _, _ := newProfileFixture(t)

	_, err := svc.GetCurrentProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
