package audit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key-1234567890123456"

func TestNewSigner(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "raw key at minimum length", key: strings.Repeat("k", 32)},
		{name: "raw key above minimum", key: testSigningKey},
		{name: "hex key", key: strings.Repeat("ab", 32)},
		{name: "raw key too short", key: "short", wantErr: true},
		{name: "raw key one under minimum", key: strings.Repeat("k", 31), wantErr: true},
		{name: "empty key", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSigner(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSignAndVerify(t *testing.T) {
	signer, err := NewSigner(testSigningKey)
	require.NoError(t, err)

	data := []byte(`{"claim_id":"abc","status":"PUBLISHED"}`)
	sig, err := signer.Sign(data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sig, "hmac-sha256:"))

	assert.True(t, signer.Verify(data, sig))
	assert.False(t, signer.Verify([]byte(`{"claim_id":"abc","status":"REJECTED"}`), sig))
	assert.False(t, signer.Verify(data, "hmac-sha256:deadbeef"))
}

func TestSignIsDeterministic(t *testing.T) {
	signer, err := NewSigner(testSigningKey)
	require.NoError(t, err)

	data := []byte("same payload")
	sig1, err := signer.Sign(data)
	require.NoError(t, err)
	sig2, err := signer.Sign(data)
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2)
}

func TestDifferentKeysProduceDifferentSignatures(t *testing.T) {
	a, err := NewSigner(strings.Repeat("a", 32))
	require.NoError(t, err)
	b, err := NewSigner(strings.Repeat("b", 32))
	require.NoError(t, err)

	data := []byte("payload")
	sigA, err := a.Sign(data)
	require.NoError(t, err)

	assert.False(t, b.Verify(data, sigA))
}

func TestHexKeyDecodesToRawBytes(t *testing.T) {
	raw := strings.Repeat("\xab", 32)
	hexKey := strings.Repeat("ab", 32)

	rawSigner, err := NewSigner(raw)
	require.NoError(t, err)
	hexSigner, err := NewSigner(hexKey)
	require.NoError(t, err)

	data := []byte("payload")
	rawSig, err := rawSigner.Sign(data)
	require.NoError(t, err)
	assert.True(t, hexSigner.Verify(data, rawSig))
}
