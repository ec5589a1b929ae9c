package dto

import (
	"time"

	"anoa.com/sparkvest/internal/entity"
	"github.com/google/uuid"
)

type RegisterInput struct {
	Username    string `json:"username" binding:"required,min=3,max=80"`
	Email       string `json:"email" binding:"required,email,max=120"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=20"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
	Role        string `json:"role" binding:"omitempty,oneof=investor idea_owner"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type VerifyOtpInput struct {
	FlowToken string `json:"flow_token" binding:"required"`
	Code      string `json:"code" binding:"required,len=6,numeric"`
}

type ResendOtpInput struct {
	FlowToken string `json:"flow_token" binding:"required"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordInput struct {
	FlowToken       string `json:"flow_token" binding:"required"`
	ResetToken      string `json:"reset_token" binding:"required,len=32"`
	Password        string `json:"password" binding:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// FlowResponse hands the caller the token for the next verification step.
type FlowResponse struct {
	FlowToken string    `json:"flow_token"`
	Kind      string    `json:"kind"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message"`
}

type ResetTokenResponse struct {
	FlowToken  string `json:"flow_token"`
	ResetToken string `json:"reset_token"`
}

type UserResponse struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	PhoneNumber *string     `json:"phone_number,omitempty"`
	Role        entity.Role `json:"role"`
	IsVerified  bool        `json:"is_verified"`
	CreatedAt   time.Time   `json:"created_at"`
}

func ToUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt,
	}
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}

// LoginResult carries either a session or, for unverified accounts, a pending OTP flow.
type LoginResult struct {
	Auth *AuthResponse `json:"auth,omitempty"`
	Flow *FlowResponse `json:"verification,omitempty"`
}

// VerifyOtpResult carries a session only when the flow was started by a login.
type VerifyOtpResult struct {
	Verified bool          `json:"verified"`
	Message  string        `json:"message"`
	Auth     *AuthResponse `json:"auth,omitempty"`
}

type UserFilter struct {
	Search string `form:"search"`
	Role   string `form:"user_type" binding:"omitempty,oneof=investor idea_owner admin"`
	SortBy string `form:"sort" binding:"omitempty,oneof=newest oldest username"`
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
}

type SearchUsersQuery struct {
	Query string `form:"q"`
}
