package interfaces

import (
	"context"
	"time"

	"github.com/akumol/guardian/internal/models"
)

// AccountService covers the account mutations that flow through the
// session layer: profile patches with the identity mirror, credential
// changes gated on a recent login, and password reset dispatch.
type AccountService interface {
	UpdateProfile(ctx context.Context, uid string, patch *models.ProfilePatch) (*models.Profile, error)
	UpdateEmail(ctx context.Context, uid, newEmail, password string, tokenIssuedAt time.Time) error
	UpdatePassword(ctx context.Context, uid, currentPassword, newPassword string, tokenIssuedAt time.Time) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
}

// CounselorService runs the Gemini-backed chat and keeps the transcript.
type CounselorService interface {
	Chat(ctx context.Context, profile *models.Profile, message string) (*models.ChatMessage, error)
	History(ctx context.Context, userID string, limit int) ([]*models.ChatMessage, error)
}

// StatementImporter extracts recurring charges from a bank statement PDF.
type StatementImporter interface {
	Import(ctx context.Context, uid, pdfPath string) ([]models.TrackedSubscription, error)
}
