package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

const hardhatKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var testSecret = []byte("test-secret")

func testSigner(t *testing.T) *wallet.KeySigner {
	t.Helper()
	s, err := wallet.NewKeySigner(hardhatKey)
	require.NoError(t, err)
	return s
}

func signChallenge(t *testing.T, s *wallet.KeySigner, ch *Challenge) string {
	t.Helper()
	sig, err := s.SignMessage([]byte(ch.Message))
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

func TestAuthenticator(t *testing.T) {
	signer := testSigner(t)
	addr := signer.Address().Hex()

	t.Run("challenge exchange and authenticate", func(t *testing.T) {
		a := NewAuthenticator(testSecret)
		ch, err := a.NewChallenge()
		require.NoError(t, err)
		assert.Contains(t, ch.Message, ch.Nonce)

		cred, err := a.Exchange(ch.Token, addr, signChallenge(t, signer, ch), "CryptoCrab")
		require.NoError(t, err)
		assert.Equal(t, "api-key", cred.Type)
		assert.True(t, len(cred.Token) > len(CredentialPrefix))
		assert.Equal(t, CredentialPrefix, cred.Token[:len(CredentialPrefix)])
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), cred.ExpiresAt, time.Minute)

		agent, err := a.Authenticate(cred.Token)
		require.NoError(t, err)
		assert.Equal(t, signer.Address(), agent.Address)
		assert.Equal(t, "CryptoCrab", agent.AgentName)
	})

	t.Run("challenge is single use", func(t *testing.T) {
		a := NewAuthenticator(testSecret)
		ch, err := a.NewChallenge()
		require.NoError(t, err)
		sig := signChallenge(t, signer, ch)

		_, err = a.Exchange(ch.Token, addr, sig, "")
		require.NoError(t, err)
		_, err = a.Exchange(ch.Token, addr, sig, "")
		assert.ErrorIs(t, err, ErrChallengeUsed)
	})

	t.Run("wrong address", func(t *testing.T) {
		a := NewAuthenticator(testSecret)
		ch, err := a.NewChallenge()
		require.NoError(t, err)
		_, err = a.Exchange(ch.Token, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", signChallenge(t, signer, ch), "")
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("expired challenge", func(t *testing.T) {
		a := NewAuthenticator(testSecret)
		ch, err := a.NewChallenge()
		require.NoError(t, err)
		a.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
		_, err = a.Exchange(ch.Token, addr, signChallenge(t, signer, ch), "")
		assert.ErrorIs(t, err, ErrInvalidChallenge)
	})

	t.Run("foreign secret", func(t *testing.T) {
		other := NewAuthenticator([]byte("other"))
		ch, err := other.NewChallenge()
		require.NoError(t, err)
		_, err = NewAuthenticator(testSecret).Exchange(ch.Token, addr, signChallenge(t, signer, ch), "")
		assert.ErrorIs(t, err, ErrInvalidChallenge)
	})

	t.Run("challenge is not a credential", func(t *testing.T) {
		a := NewAuthenticator(testSecret)
		ch, err := a.NewChallenge()
		require.NoError(t, err)
		_, err = a.Authenticate(CredentialPrefix + ch.Token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
		_, err = a.Authenticate(ch.Token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("expired credential", func(t *testing.T) {
		a := NewAuthenticator(testSecret)
		ch, err := a.NewChallenge()
		require.NoError(t, err)
		cred, err := a.Exchange(ch.Token, addr, signChallenge(t, signer, ch), "")
		require.NoError(t, err)
		a.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		_, err = a.Authenticate(cred.Token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})
}

func TestAuthEndpoints(t *testing.T) {
	signer := testSigner(t)
	srv, _ := newTestServer(t, Config{AuthSecret: testSecret, RequireAuth: true}, nil)
	h := srv.Handler()

	rec, disc := do(t, h, "GET", "/api/v1/auth", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wallet-signature", disc["type"])
	creds := disc["credentials"].(map[string]any)
	assert.Equal(t, "agent_", creds["prefix"])
	assert.Equal(t, "1d", creds["expiresIn"])

	chMap := disc["challenge"].(map[string]any)
	ch := &Challenge{Token: chMap["challenge"].(string), Message: chMap["message"].(string)}

	t.Run("missing fields", func(t *testing.T) {
		rec, out := do(t, h, "POST", "/api/v1/auth", `{"address":"0x1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing required fields: challenge, address, signature", out["error"])
	})

	t.Run("bad signature", func(t *testing.T) {
		rec, _ := do(t, h, "POST", "/api/v1/auth",
			`{"challenge":"`+ch.Token+`","address":"`+signer.Address().Hex()+`","signature":"0x1234"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	var token string
	t.Run("sign in", func(t *testing.T) {
		rec, out := do(t, h, "POST", "/api/v1/auth",
			`{"challenge":"`+ch.Token+`","address":"`+signer.Address().Hex()+`","signature":"`+signChallenge(t, signer, ch)+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		cred := out["credential"].(map[string]any)
		token = cred["token"].(string)
		assert.Equal(t, signer.Address().Hex(), cred["address"])
	})

	t.Run("writes need a credential", func(t *testing.T) {
		body := `{"battle_id":"b","amount_usdc":1,"agent_id":"a"}`
		rec, out := do(t, h, "POST", "/api/v1/bet", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Unauthorized", out["error"])

		rec, _ = do(t, h, "POST", "/api/v1/bet", body, "Authorization", "Bearer agent_garbage")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec, _ = do(t, h, "POST", "/api/v1/bet", body, "Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec, _ = do(t, h, "POST", "/api/v1/register", `{"agent_id":"a","agent_name":"n"}`, "Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("reads stay public", func(t *testing.T) {
		rec, _ := do(t, h, "GET", "/api/v1/status", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		rec, _ = do(t, h, "GET", "/api/v1/register", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
