package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered account.
type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"password"`
	Role         string             `json:"role" bson:"role"`
	Avatar       Avatar             `json:"avatar" bson:"avatar"`

	// Password-reset state. Only the SHA-256 digest of the reset token is
	// stored; the raw token travels in the emailed link and nowhere else.
	ResetPasswordToken     string     `json:"-" bson:"reset_password_token,omitempty"`
	ResetPasswordExpiresAt *time.Time `json:"-" bson:"reset_password_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Avatar is the user's profile image reference.
type Avatar struct {
	PublicID string `json:"public_id" bson:"public_id"`
	URL      string `json:"url" bson:"url"`
}

// HasActiveResetToken reports whether a reset token is set and unexpired.
func (u *User) HasActiveResetToken(now time.Time) bool {
	return u.ResetPasswordToken != "" &&
		u.ResetPasswordExpiresAt != nil &&
		u.ResetPasswordExpiresAt.After(now)
}
