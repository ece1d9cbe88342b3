package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", "timetable-api", "timetable-clients")

	raw, err := svc.MintToken("stu-1", "student", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.Subject)
	assert.Equal(t, "student", claims.Role)
}

func TestTokenServiceRejectsForeignTokens(t *testing.T) {
	svc := NewTokenService("test-secret", "timetable-api", "timetable-clients")

	other := NewTokenService("other-secret", "timetable-api", "timetable-clients")
	raw, err := other.MintToken("stu-1", "student", time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(raw)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer := NewTokenService("test-secret", "someone-else", "timetable-clients")
	raw, err = wrongIssuer.MintToken("stu-1", "student", time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(raw)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret", "timetable-api", "timetable-clients")

	raw, err := svc.MintToken("stu-1", "student", -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(raw)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
