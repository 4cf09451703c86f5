package tokenizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapgate/zapgate/core"
)

const testPubKey = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func TestIssueAndVerify(t *testing.T) {
	tk := NewJWTTokenizer("test-secret", 24*time.Hour)

	token, err := tk.Issue(testPubKey, core.AuthMethodExternal)
	require.NoError(t, err)

	session, err := tk.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testPubKey, session.Subject)
	assert.Equal(t, core.AuthMethodExternal, session.AuthMethod)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, time.Minute)
}

func TestIssue_EmptySubject(t *testing.T) {
	tk := NewJWTTokenizer("test-secret", 24*time.Hour)

	_, err := tk.Issue("", core.AuthMethodExternal)
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	tk := NewJWTTokenizer("test-secret", -time.Minute)

	token, err := tk.Issue(testPubKey, core.AuthMethodExtension)
	require.NoError(t, err)

	_, err = tk.Verify(token)
	assert.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	tk := NewJWTTokenizer("test-secret", 24*time.Hour)
	other := NewJWTTokenizer("other-secret", 24*time.Hour)

	token, err := tk.Issue(testPubKey, core.AuthMethodExternal)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	tk := NewJWTTokenizer("test-secret", 24*time.Hour)

	_, err := tk.Verify("not-a-jwt")
	assert.Error(t, err)

	_, err = tk.Verify("")
	assert.Error(t, err)
}

func TestVerify_TamperedPayload(t *testing.T) {
	tk := NewJWTTokenizer("test-secret", 24*time.Hour)

	token, err := tk.Issue(testPubKey, core.AuthMethodExternal)
	require.NoError(t, err)

	tampered := token[:len(token)-6] + "aaaaaa"
	_, err = tk.Verify(tampered)
	assert.Error(t, err)
}
