package users

import (
	"golang.org/x/crypto/bcrypt"
)

// User is the identity held by the session store and returned by the profile endpoint.
type User struct {
	ID             string `json:"id"`                     // Unique identifier for the user
	Email          string `json:"email"`                  // User's email address
	FullName       string `json:"fullName"`               // Display name
	OnboardingDone bool   `json:"onboardingDone"`         // Set once a KYC submission has been received
	PasswordHash   string `json:"passwordHash,omitempty"` // Backend only, stripped by Public()
}

// Public returns a copy that is safe to hand to clients.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// SameIdentity reports whether other refers to the same account.
func (u User) SameIdentity(other User) bool {
	return u.ID == other.ID
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return CheckPasswordHash(password, u.PasswordHash)
}
