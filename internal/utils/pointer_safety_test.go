package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-kyc-onboarding/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestPointerHelpers(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, 3, utils.Value(utils.Ptr(3)))

	city := "Lisbon"
	utils.Apply(&city, nil)
	require.Equal(t, "Lisbon", city)
	utils.Apply(&city, utils.Ptr("Porto"))
	require.Equal(t, "Porto", city)
}
