package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signHS256(secret string, claims map[string]any) string {
	hdr := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	pl, _ := json.Marshal(claims)
	body := hdr + "." + base64.RawURLEncoding.EncodeToString(pl)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return body + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyDevToken(t *testing.T) {
	v := NewVerifier("dev", "", "")
	p, err := v.Verify("alice:Admin")
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "alice", Role: "admin"}, p)

	_, err = v.Verify("garbage")
	assert.Error(t, err)
}

func TestVerifyHMACToken(t *testing.T) {
	v := NewVerifier("hmac", "s3cret", "")

	tok := signHS256("s3cret", map[string]any{"sub": "bob", "role": "operator"})
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "bob", Role: "operator"}, p)

	// Wrong key fails.
	_, err = v.Verify(signHS256("other", map[string]any{"sub": "bob"}))
	assert.Error(t, err)

	// Missing role defaults to viewer.
	p, err = v.Verify(signHS256("s3cret", map[string]any{"sub": "carol"}))
	require.NoError(t, err)
	assert.Equal(t, "viewer", p.Role)
}
