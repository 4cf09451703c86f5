package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapgate/zapgate/adapters/store"
	"github.com/zapgate/zapgate/adapters/tokenizer"
	"github.com/zapgate/zapgate/core"
	"github.com/zapgate/zapgate/internal/bip340"
	"github.com/zapgate/zapgate/service"
)

const testPublicURL = "https://wallet.example.com"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tk := tokenizer.NewJWTTokenizer("test-secret", 24*time.Hour)
	svc := service.NewAuthService(store.NewMemoryStore(), tk, nil, "wss://relay.example.com")
	return SetupRouter(svc, RouterConfig{PublicURL: testPublicURL, CookieSecure: false})
}

func newKey(t *testing.T) *secp256k1.PrivateKey {
	t.Helper()
	priv, err := bip340.GeneratePrivateKey()
	require.NoError(t, err)
	return priv
}

func signEvent(t *testing.T, priv *secp256k1.PrivateKey, template *core.Event) *core.Event {
	t.Helper()
	signed := template.Clone()
	signed.PubKey = bip340.PubKeyHex(priv)

	id, err := signed.ComputeID()
	require.NoError(t, err)
	signed.ID = id

	sig, err := bip340.Sign(priv, id)
	require.NoError(t, err)
	signed.Sig = sig
	return signed
}

func fetchChallenge(t *testing.T, r *gin.Engine) (string, *core.Event) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/challenge", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Challenge     string      `json:"challenge"`
		ExpiresIn     int         `json:"expiresIn"`
		EventTemplate *core.Event `json:"eventTemplate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Challenge)
	require.Equal(t, 300, resp.ExpiresIn)
	require.NotNil(t, resp.EventTemplate)
	return resp.Challenge, resp.EventTemplate
}

func postVerifyOwnership(t *testing.T, r *gin.Engine, event *core.Event) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]any{"signedEvent": event})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/verify-ownership", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == CookieName {
			return cookie
		}
	}
	t.Fatalf("no %s cookie in response", CookieName)
	return nil
}

func TestVerifyOwnershipEndToEnd(t *testing.T) {
	r := newTestRouter(t)
	priv := newKey(t)

	challenge, template := fetchChallenge(t, r)
	assert.Equal(t, challenge, template.Content)

	signed := signEvent(t, priv, template)
	w := postVerifyOwnership(t, r, signed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		User    struct {
			PubKey     string `json:"pubkey"`
			AuthMethod string `json:"authMethod"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, bip340.PubKeyHex(priv), resp.User.PubKey)
	assert.Equal(t, core.AuthMethodExternal, resp.User.AuthMethod)

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int(CookieMaxAge.Seconds()), cookie.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	// The session endpoint now reports the identity.
	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)

	var sess map[string]any
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &sess))
	assert.Equal(t, true, sess["authenticated"])
	assert.Equal(t, bip340.PubKeyHex(priv), sess["pubkey"])
	assert.Equal(t, true, sess["isExternalIdentity"])
}

func TestVerifyOwnership_ReplayRejected(t *testing.T) {
	r := newTestRouter(t)
	priv := newKey(t)

	_, template := fetchChallenge(t, r)
	signed := signEvent(t, priv, template)

	require.Equal(t, http.StatusOK, postVerifyOwnership(t, r, signed).Code)

	w := postVerifyOwnership(t, r, signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), string(core.KindChallengeAlreadyUsed))
}

func TestVerifyOwnership_TamperedEvent(t *testing.T) {
	r := newTestRouter(t)
	priv := newKey(t)

	_, template := fetchChallenge(t, r)
	signed := signEvent(t, priv, template)
	signed.Tags[len(signed.Tags)-1][1] = "zapgate-tampered"

	w := postVerifyOwnership(t, r, signed)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(core.KindIDMismatch))
}

func TestVerifyOwnership_MissingBody(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/verify-ownership", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInlineLoginEndpoint(t *testing.T) {
	r := newTestRouter(t)
	priv := newKey(t)

	template := &core.Event{
		Kind:      core.KindHTTPAuth,
		CreatedAt: time.Now().Unix(),
		Tags: [][]string{
			{"u", testPublicURL + "/login"},
			{"method", "POST"},
		},
	}
	signed := signEvent(t, priv, template)
	payload, err := json.Marshal(signed)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("Authorization", service.AuthScheme+" "+base64.StdEncoding.EncodeToString(payload))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cookie := sessionCookie(t, w)
	assert.NotEmpty(t, cookie.Value)

	// Inline identities are not external.
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/session", nil)
	req2.AddCookie(cookie)
	r.ServeHTTP(w2, req2)

	var sess map[string]any
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &sess))
	assert.Equal(t, true, sess["authenticated"])
	assert.Equal(t, false, sess["isExternalIdentity"])
}

func TestInlineLoginEndpoint_WrongScheme(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(core.KindUnknownMethod))
}

func TestSession_NotLoggedInIsNot5xx(t *testing.T) {
	r := newTestRouter(t)

	// No cookie at all.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	// Garbage cookie.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestLogoutClearsCookie(t *testing.T) {
	r := newTestRouter(t)
	priv := newKey(t)

	_, template := fetchChallenge(t, r)
	w := postVerifyOwnership(t, r, signEvent(t, priv, template))
	cookie := sessionCookie(t, w)

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)

	cleared := sessionCookie(t, w2)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestMe_RequiresSession(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_WithSession(t *testing.T) {
	r := newTestRouter(t)
	priv := newKey(t)

	_, template := fetchChallenge(t, r)
	w := postVerifyOwnership(t, r, signEvent(t, priv, template))
	cookie := sessionCookie(t, w)

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), bip340.PubKeyHex(priv))
}
