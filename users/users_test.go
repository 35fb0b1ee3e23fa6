package users_test

import (
	"testing"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/users"
	fakeuserrepo "github.com/jrsteele09/go-kyc-onboarding/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("password123")
	require.NoError(t, err)

	u := users.User{ID: "USR-001", PasswordHash: hash}
	require.True(t, u.CheckPassword("password123"))
	require.False(t, u.CheckPassword("password124"))
	require.Empty(t, u.Public().PasswordHash)

	require.False(t, (&users.User{}).CheckPassword(""))
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	require.NoError(t, repo.Upsert(&users.User{ID: "USR-001", Email: "Jane.Doe@example.com", FullName: "Jane Doe"}))

	u, err := repo.GetByEmail(" jane.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, "USR-001", u.ID)

	u.FullName = "mutated"
	again, err := repo.GetByID("USR-001")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", again.FullName)

	require.NoError(t, repo.SetOnboardingDone("USR-001", true))
	again, err = repo.GetByID("USR-001")
	require.NoError(t, err)
	require.True(t, again.OnboardingDone)

	_, err = repo.GetByEmail("nobody@example.com")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	require.ErrorIs(t, repo.SetOnboardingDone("missing", true), apperrors.ErrUserNotFound)

	generated := &users.User{Email: "new@example.com"}
	require.NoError(t, repo.Upsert(generated))
	require.NotEmpty(t, generated.ID)
}
