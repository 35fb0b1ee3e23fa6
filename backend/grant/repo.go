package grant

import "time"

// Grant is the token pair the backend currently honours for a user.
// Only the latest access token (by jti) and refresh token are accepted.
type Grant struct {
	UserID       string
	Email        string
	AccessJTI    string
	RefreshToken string

	AccessExpiresAt time.Time
	CreatedAt       time.Time
}

type Repo interface {
	Upsert(userID string, grant Grant) error
	Get(userID string) (Grant, error)
	Delete(userID string) error
}
