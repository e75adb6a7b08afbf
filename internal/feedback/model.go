package feedback

import (
	"time"

	"github.com/textocerto/TextoCerto-Back/internal/user"
)

// Reason classifica o problema apontado na correção
type Reason string

const (
	ReasonWrongCorrection Reason = "wrong_correction"
	ReasonMissedError     Reason = "missed_error"
	ReasonStyle           Reason = "style"
	ReasonOther           Reason = "other"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusResolved Status = "resolved"
	StatusRejected Status = "rejected"
)

// Feedback é o relato de um usuário sobre uma correção ruim
type Feedback struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID       string    `json:"user_id" gorm:"index"`
	User         user.User `json:"user" gorm:"foreignKey:UserID"`
	CorrectionID string    `json:"correction_id" gorm:"index"`

	Reason      Reason `json:"reason"`
	Description string `json:"description" gorm:"type:text"`

	Status     Status     `json:"status" gorm:"default:'pending';index"`
	AdminID    *string    `json:"admin_id,omitempty"`
	AdminNote  string     `json:"admin_note" gorm:"type:text"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// TableName mantém o nome usado nas migrações
func (Feedback) TableName() string {
	return "feedbacks"
}

type CreateInput struct {
	CorrectionID string `json:"correction_id" binding:"required"`
	Reason       Reason `json:"reason" binding:"required"`
	Description  string `json:"description"`
}

type UpdateInput struct {
	Status    Status `json:"status" binding:"required"`
	AdminNote string `json:"admin_note"`
}

func (r Reason) IsValid() bool {
	switch r {
	case ReasonWrongCorrection, ReasonMissedError, ReasonStyle, ReasonOther:
		return true
	default:
		return false
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusResolved, StatusRejected:
		return true
	default:
		return false
	}
}
