package dto

// UpdateProfileInput leaves nil fields untouched. A password change needs
// the current password and a matching confirmation.
type UpdateProfileInput struct {
	Username        *string `json:"username" binding:"omitempty,min=3,max=80"`
	Email           *string `json:"email" binding:"omitempty,email,max=120"`
	PhoneNumber     *string `json:"phone_number" binding:"omitempty,max=20"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password" binding:"omitempty,min=6,max=72"`
	ConfirmPassword string  `json:"confirm_password" binding:"omitempty,eqfield=NewPassword"`
}
