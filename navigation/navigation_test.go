package navigation_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-kyc-onboarding/navigation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	var r navigation.Recorder
	require.Equal(t, navigation.Intent(""), r.Last())

	r.Navigate(navigation.Login)
	r.Navigate(navigation.SessionExpired)
	require.Equal(t, []navigation.Intent{navigation.Login, navigation.SessionExpired}, r.Intents())
	require.Equal(t, navigation.SessionExpired, r.Last())
}

func TestLoggerAndMulti(t *testing.T) {
	var buf bytes.Buffer
	var rec navigation.Recorder
	var called []navigation.Intent

	nav := navigation.Multi{
		navigation.Logger{Log: zerolog.New(&buf)},
		&rec,
		navigation.Func(func(i navigation.Intent) { called = append(called, i) }),
	}
	nav.Navigate(navigation.Home)

	require.Contains(t, buf.String(), `"intent":"home"`)
	require.Equal(t, navigation.Home, rec.Last())
	require.Equal(t, []navigation.Intent{navigation.Home}, called)
}
