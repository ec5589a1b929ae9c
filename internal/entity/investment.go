package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Investment is written once per confirmed payment and never updated.
type Investment struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Amount         float64           `gorm:"not null;check:amount > 0" json:"amount"`
	UserID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Investor       *User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"investor,omitempty"`
	ProjectID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"project_id"`
	Project        *Project          `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	CertificateURL *string           `gorm:"type:text" json:"certificate_url,omitempty"`
	OrderID        string            `gorm:"size:64;not null;index" json:"order_id"`
	PaymentID      string            `gorm:"size:64;not null;uniqueIndex" json:"payment_id"`
	ProviderNotes  datatypes.JSONMap `gorm:"type:jsonb" json:"provider_notes,omitempty"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
