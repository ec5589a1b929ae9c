package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/flow"
	"anoa.com/sparkvest/internal/modules/user/dto"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/mailer"
	"anoa.com/sparkvest/pkg/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = entity.RoleInvestor
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]entity.User, error) {
	var out []entity.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string, excludeID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].IsVerified = true
	return nil
}

func (r *fakeUserRepo) Search(_ context.Context, query string, excludeID uuid.UUID, limit int) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.User
	q := strings.ToLower(query)
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, *u)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeUserRepo) List(context.Context, dto.UserFilter) ([]entity.User, int64, error) {
	return nil, 0, nil
}

func (r *fakeUserRepo) Count(context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) CountByEmail(_ context.Context, email string) (int64, error) {
	_, err := r.FindByEmail(context.Background(), email)
	if err != nil {
		return 0, nil
	}
	return 1, nil
}

func (r *fakeUserRepo) DeleteWithData(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type sentCode struct {
	to      string
	purpose mailer.Purpose
	code    string
}

type recordingSender struct {
	sent []sentCode
}

func (s *recordingSender) SendOTP(_ context.Context, to string, purpose mailer.Purpose, code string) error {
	s.sent = append(s.sent, sentCode{to: to, purpose: purpose, code: code})
	return nil
}

func (s *recordingSender) last() sentCode {
	return s.sent[len(s.sent)-1]
}

type fakeIdentityProvider struct {
	identity *ExternalIdentity
	err      error
}

func (p *fakeIdentityProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p *fakeIdentityProvider) Exchange(context.Context, string) (*ExternalIdentity, error) {
	return p.identity, p.err
}

type authFixture struct {
	svc    AuthService
	repo   *fakeUserRepo
	sender *recordingSender
	idp    *fakeIdentityProvider
	tokens *token.Manager
}

func newAuthFixture() *authFixture {
	repo := newFakeUserRepo()
	sender := &recordingSender{}
	idp := &fakeIdentityProvider{}
	tokens := token.NewManager("test-secret", time.Hour)
	svc := NewAuthService(repo, flow.NewMemoryStore(10*time.Minute), sender, tokens, token.NewMemoryRevoker(), idp, 5)
	return &authFixture{svc: svc, repo: repo, sender: sender, idp: idp, tokens: tokens}
}

func (f *authFixture) register(t *testing.T, username, email string) *dto.FlowResponse {
	t.Helper()
	res, err := f.svc.Register(context.Background(), dto.RegisterInput{
		Username: username,
		Email:    email,
		Password: "secret123",
		Role:     "idea_owner",
	})
	require.NoError(t, err)
	return res
}

func TestRegisterStartsVerificationFlow(t *testing.T) {
	f := newAuthFixture()

	res := f.register(t, "alice", "Alice@Example.com")
	assert.Equal(t, string(flow.KindRegistration), res.Kind)
	assert.NotEmpty(t, res.FlowToken)

	user, err := f.repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	assert.Equal(t, entity.RoleIdeaOwner, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "alice@example.com", f.sender.last().to)
	assert.Equal(t, mailer.PurposeVerification, f.sender.last().purpose)
	assert.Len(t, f.sender.last().code, 6)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice", "alice@example.com")

	_, err := f.svc.Register(context.Background(), dto.RegisterInput{
		Username: "alice2",
		Email:    "ALICE@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.Register(context.Background(), dto.RegisterInput{
		Username: "mallory",
		Email:    "mallory@example.com",
		Password: "secret123",
		Role:     "admin",
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestVerifyRegistrationDoesNotIssueSession(t *testing.T) {
	f := newAuthFixture()
	pending := f.register(t, "alice", "alice@example.com")

	res, err := f.svc.VerifyOtp(context.Background(), dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: f.sender.last().code})
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Nil(t, res.Auth)

	user, _ := f.repo.FindByEmail(context.Background(), "alice@example.com")
	assert.True(t, user.IsVerified)

	_, err = f.svc.VerifyOtp(context.Background(), dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: f.sender.last().code})
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)
}

func TestVerifyOtpLocksOutAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture()
	pending := f.register(t, "alice", "alice@example.com")
	wrong := "000000"
	if f.sender.last().code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 4; i++ {
		_, err := f.svc.VerifyOtp(context.Background(), dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: wrong})
		assert.ErrorIs(t, err, apperror.ErrInvalidCode)
	}
	_, err := f.svc.VerifyOtp(context.Background(), dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: wrong})
	assert.ErrorIs(t, err, apperror.ErrTooManyAttempts)

	_, err = f.svc.VerifyOtp(context.Background(), dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: f.sender.last().code})
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)
}

func TestLoginUnverifiedThenVerifyIssuesSession(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice", "alice@example.com")

	res, err := f.svc.Login(context.Background(), dto.LoginInput{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotNil(t, res.Flow)
	assert.Nil(t, res.Auth)
	assert.Equal(t, string(flow.KindLogin), res.Flow.Kind)

	verified, err := f.svc.VerifyOtp(context.Background(), dto.VerifyOtpInput{FlowToken: res.Flow.FlowToken, Code: f.sender.last().code})
	require.NoError(t, err)
	require.NotNil(t, verified.Auth)

	claims, err := f.tokens.Parse(verified.Auth.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, verified.Auth.User.ID.String(), claims.Subject)
}

func TestLoginVerifiedIssuesSession(t *testing.T) {
	f := newAuthFixture()
	pending := f.register(t, "alice", "alice@example.com")
	_, err := f.svc.VerifyOtp(context.Background(), dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: f.sender.last().code})
	require.NoError(t, err)

	res, err := f.svc.Login(context.Background(), dto.LoginInput{Email: "ALICE@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotNil(t, res.Auth)
	assert.Equal(t, "Bearer", res.Auth.TokenType)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice", "alice@example.com")

	_, err := f.svc.Login(context.Background(), dto.LoginInput{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), dto.LoginInput{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice", "alice@example.com")
	ctx := context.Background()

	pending, err := f.svc.ForgotPassword(ctx, dto.ForgotPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, mailer.PurposePasswordReset, f.sender.last().purpose)

	reset, err := f.svc.VerifyPasswordOtp(ctx, dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: f.sender.last().code})
	require.NoError(t, err)
	assert.Len(t, reset.ResetToken, 32)

	err = f.svc.ResetPassword(ctx, dto.ResetPasswordInput{
		FlowToken:       pending.FlowToken,
		ResetToken:      strings.Repeat("x", 32),
		Password:        "newpass1",
		ConfirmPassword: "newpass1",
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidCode)

	err = f.svc.ResetPassword(ctx, dto.ResetPasswordInput{
		FlowToken:       pending.FlowToken,
		ResetToken:      reset.ResetToken,
		Password:        "newpass1",
		ConfirmPassword: "newpass1",
	})
	require.NoError(t, err)

	user, _ := f.repo.FindByEmail(ctx, "alice@example.com")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("newpass1")))

	err = f.svc.ResetPassword(ctx, dto.ResetPasswordInput{
		FlowToken:       pending.FlowToken,
		ResetToken:      reset.ResetToken,
		Password:        "again123",
		ConfirmPassword: "again123",
	})
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.Register(context.Background(), dto.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: strings.Repeat("p", 80),
		Role:     "investor",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))

	_, err = f.repo.FindByEmail(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, f.sender.sent)
}

func TestResetPasswordRejectsPasswordOverBcryptLimit(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice", "alice@example.com")
	ctx := context.Background()

	pending, err := f.svc.ForgotPassword(ctx, dto.ForgotPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err)
	reset, err := f.svc.VerifyPasswordOtp(ctx, dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: f.sender.last().code})
	require.NoError(t, err)

	long := strings.Repeat("p", 73)
	err = f.svc.ResetPassword(ctx, dto.ResetPasswordInput{
		FlowToken:       pending.FlowToken,
		ResetToken:      reset.ResetToken,
		Password:        long,
		ConfirmPassword: long,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))

	user, _ := f.repo.FindByEmail(ctx, "alice@example.com")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.ForgotPassword(context.Background(), dto.ForgotPasswordInput{Email: "ghost@example.com"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestResendOtpReplacesCode(t *testing.T) {
	f := newAuthFixture()
	pending := f.register(t, "alice", "alice@example.com")
	first := f.sender.last().code

	_, err := f.svc.ResendOtp(context.Background(), dto.ResendOtpInput{FlowToken: pending.FlowToken})
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 2)
	second := f.sender.last().code

	if first != second {
		_, err = f.svc.VerifyOtp(context.Background(), dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: first})
		assert.ErrorIs(t, err, apperror.ErrInvalidCode)
	}
	_, err = f.svc.VerifyOtp(context.Background(), dto.VerifyOtpInput{FlowToken: pending.FlowToken, Code: second})
	assert.NoError(t, err)
}

func TestGoogleCallbackCreatesUniqueUsername(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "bob", "bob@other.com")
	f.idp.identity = &ExternalIdentity{Subject: "g-1", Email: "Bob@gmail.com"}

	res, err := f.svc.GoogleCallback(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "bob1", res.User.Username)
	assert.True(t, res.User.IsVerified)
	assert.Equal(t, entity.RoleInvestor, res.User.Role)

	again, err := f.svc.GoogleCallback(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)
}

func TestGoogleCallbackWithoutEmailFails(t *testing.T) {
	f := newAuthFixture()
	f.idp.identity = &ExternalIdentity{Subject: "g-2"}

	_, err := f.svc.GoogleCallback(context.Background(), "code")
	assert.ErrorIs(t, err, apperror.ErrFederation)
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := newFakeUserRepo()
	revoker := token.NewMemoryRevoker()
	svc := NewAuthService(repo, flow.NewMemoryStore(time.Minute), &recordingSender{}, token.NewManager("s", time.Hour), revoker, &fakeIdentityProvider{}, 5)

	require.NoError(t, svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Hour)))
	revoked, err := revoker.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestSearchUsers(t *testing.T) {
	repo := newFakeUserRepo()
	ctx := context.Background()
	me := &entity.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, repo.Create(ctx, me))
	require.NoError(t, repo.Create(ctx, &entity.User{Username: "alfred", Email: "alfred@example.com"}))
	require.NoError(t, repo.Create(ctx, &entity.User{Username: "carol", Email: "carol@example.com"}))

	svc := NewDirectoryService(repo)

	short, err := svc.SearchUsers(ctx, me.ID, "a")
	require.NoError(t, err)
	assert.Empty(t, short)

	found, err := svc.SearchUsers(ctx, me.ID, "al")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alfred", found[0].Username)
}

func TestUsernameBase(t *testing.T) {
	assert.Equal(t, "john.doe", usernameBase("john.doe@example.com"))
	assert.Equal(t, "user", usernameBase("@example.com"))
}
