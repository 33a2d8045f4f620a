package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	v := TokenVerifier{Secret: []byte("test-secret")}
	raw, err := v.Sign(Claims{
		Role:             "Moderator",
		FirstName:        "Iryna",
		LastName:         "Kovalenko",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}, time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Moderator", claims.Role)
	assert.Equal(t, "Iryna", claims.FirstName)
	assert.Equal(t, "Kovalenko", claims.LastName)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := TokenVerifier{Secret: []byte("issuer-secret")}
	raw, err := issuer.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}, time.Hour)
	require.NoError(t, err)

	v := TokenVerifier{Secret: []byte("another-secret")}
	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := TokenVerifier{Secret: []byte("test-secret")}
	raw, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	v := TokenVerifier{Secret: []byte("test-secret")}
	raw, err := v.Sign(Claims{Role: "IDP"}, time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	v := TokenVerifier{Secret: []byte("test-secret")}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRequiresConfiguredSecret(t *testing.T) {
	var v TokenVerifier
	_, err := v.Verify("whatever")
	assert.Error(t, err)
}
