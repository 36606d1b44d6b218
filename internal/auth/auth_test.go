package auth_test

import (
	"testing"

	"github.com/bidhaus/auction-api/internal/auth"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := auth.NewService("test-secret")
	svc.RegisterAPICredentials(auth.DemoSellerKey, auth.DemoSellerSecret, auth.PermissionSell, auth.PermissionBid)

	token, err := svc.GenerateToken(auth.Credentials{
		APIKey:    auth.DemoSellerKey,
		APISecret: auth.DemoSellerSecret,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	claims, err := svc.ValidateToken(token.Token)
	require.NoError(t, err)
	require.Equal(t, auth.DemoSellerKey, claims.ClientID)
	require.Equal(t, []string{auth.PermissionSell, auth.PermissionBid}, claims.Permissions)
}

func TestGenerateTokenRejectsBadCredentials(t *testing.T) {
	svc := auth.NewService("test-secret")
	svc.RegisterAPICredentials(auth.DemoBuyerKey, auth.DemoBuyerSecret, auth.PermissionBid)

	_, err := svc.GenerateToken(auth.Credentials{APIKey: auth.DemoBuyerKey, APISecret: "wrong"})
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.GenerateToken(auth.Credentials{APIKey: "unknown", APISecret: auth.DemoBuyerSecret})
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	issuer := auth.NewService("secret-a")
	issuer.RegisterAPICredentials(auth.DemoBuyerKey, auth.DemoBuyerSecret)
	token, err := issuer.GenerateToken(auth.Credentials{APIKey: auth.DemoBuyerKey, APISecret: auth.DemoBuyerSecret})
	require.NoError(t, err)

	verifier := auth.NewService("secret-b")
	_, err = verifier.ValidateToken(token.Token)
	require.Error(t, err)
}

func TestRegisterDefaultsToBidPermission(t *testing.T) {
	svc := auth.NewService("test-secret")
	svc.RegisterAPICredentials("k", "s")

	token, err := svc.GenerateToken(auth.Credentials{APIKey: "k", APISecret: "s"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token.Token)
	require.NoError(t, err)
	require.Equal(t, []string{auth.PermissionBid}, claims.Permissions)
}
