package dto

import (
	"time"

	commonDto "anoa.com/sparkvest/pkg/dto"
	"github.com/google/uuid"
)

type InitiateInput struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// CheckoutResponse carries what the client needs to open the provider checkout.
type CheckoutResponse struct {
	FlowToken    string    `json:"flow_token"`
	OrderID      string    `json:"order_id"`
	KeyID        string    `json:"key_id"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	ProjectID    uuid.UUID `json:"project_id"`
	ProjectTitle string    `json:"project_title"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ConfirmInput only requires the flow token; the provider fields are checked
// after the pending payment has been consumed.
type ConfirmInput struct {
	FlowToken string `json:"flow_token" binding:"required"`
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

type InvestmentResponse struct {
	ID             uuid.UUID                `json:"id"`
	Amount         float64                  `json:"amount"`
	CertificateURL *string                  `json:"certificate_url,omitempty"`
	StakeDisplay   string                   `json:"stake_percentage,omitempty"`
	Project        commonDto.ProjectSummary `json:"project"`
	CreatedAt      time.Time                `json:"created_at"`
}

type ConfirmResponse struct {
	Message    string             `json:"message"`
	Investment InvestmentResponse `json:"investment"`
}
