package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataSigner_RoundTrip(t *testing.T) {
	s := NewMetadataSigner("secret")

	sig := s.Sign("order-1", "user-1")
	require.True(t, s.Verify("order-1", "user-1", sig))
}

func TestMetadataSigner_RejectsTampering(t *testing.T) {
	s := NewMetadataSigner("secret")
	sig := s.Sign("order-1", "user-1")

	require.False(t, s.Verify("order-2", "user-1", sig))
	require.False(t, s.Verify("order-1", "user-2", sig))
	require.False(t, s.Verify("order-1", "user-1", "not-hex"))
	require.False(t, s.Verify("order-1", "user-1", ""))
}

func TestMetadataSigner_RejectsOtherSecret(t *testing.T) {
	sig := NewMetadataSigner("secret-a").Sign("order-1", "user-1")
	require.False(t, NewMetadataSigner("secret-b").Verify("order-1", "user-1", sig))
}

func TestMetadataSigner_FieldBoundary(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide on the canonical payload.
	s := NewMetadataSigner("secret")
	require.NotEqual(t, s.Sign("ab", "c"), s.Sign("a", "bc"))
}

func TestVerifyBody(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	sig := SignBody("whsec", body)

	require.True(t, VerifyBody("whsec", body, sig))
	require.False(t, VerifyBody("whsec", []byte(`{"id":"evt_2"}`), sig))
	require.False(t, VerifyBody("other", body, sig))
	require.False(t, VerifyBody("whsec", body, "zz"))
}
