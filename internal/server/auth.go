package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

const (
	CredentialPrefix      = "agent_"
	DefaultChallengeTTL   = 5 * time.Minute
	DefaultCredentialTTL  = 24 * time.Hour
	authIssuer            = "clawroyale"
	purposeChallenge      = "challenge"
	purposeAgent          = "agent"
	signingMethodName     = "HS256"
	challengeMessageTitle = "Claw Royale agent authentication"
)

var (
	ErrInvalidChallenge  = errors.New("invalid or expired challenge")
	ErrChallengeUsed     = errors.New("challenge already used")
	ErrSignatureMismatch = errors.New("signature does not match address")
	ErrInvalidCredential = errors.New("invalid agent credential")
)

// Authenticator issues wallet-signature challenges and the bearer credentials
// exchanged for them. Both are HMAC-signed JWTs.
type Authenticator struct {
	secret        []byte
	now           func() time.Time
	challengeTTL  time.Duration
	credentialTTL time.Duration

	mu   sync.Mutex
	used map[string]time.Time
}

func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{
		secret:        secret,
		now:           time.Now,
		challengeTTL:  DefaultChallengeTTL,
		credentialTTL: DefaultCredentialTTL,
		used:          make(map[string]time.Time),
	}
}

// Challenge is what a wallet signs to prove control of an address.
type Challenge struct {
	Token     string    `json:"challenge"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Credential is the bearer token returned after a successful sign-in.
type Credential struct {
	Type      string    `json:"type"`
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expires_at"`
}

type authClaims struct {
	jwt.RegisteredClaims
	Purpose   string `json:"purpose"`
	AgentName string `json:"agent_name,omitempty"`
}

// AgentClaims identifies the caller behind a valid credential.
type AgentClaims struct {
	Address   common.Address
	AgentName string
	ExpiresAt time.Time
}

func challengeMessage(nonce string, expires time.Time) string {
	return fmt.Sprintf("%s\nNonce: %s\nExpires: %s", challengeMessageTitle, nonce, expires.UTC().Format(time.RFC3339))
}

func (a *Authenticator) NewChallenge() (*Challenge, error) {
	now := a.now().UTC().Truncate(time.Second)
	exp := now.Add(a.challengeTTL)
	nonce := uuid.NewString()

	token, err := a.sign(authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    authIssuer,
			ID:        nonce,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Purpose: purposeChallenge,
	})
	if err != nil {
		return nil, err
	}
	return &Challenge{
		Token:     token,
		Nonce:     nonce,
		Message:   challengeMessage(nonce, exp),
		ExpiresAt: exp,
	}, nil
}

// Exchange verifies a personal_sign signature over the challenge message and
// issues a credential for the recovered address. Each challenge works once.
func (a *Authenticator) Exchange(challengeToken, address, signature, agentName string) (*Credential, error) {
	claims, err := a.parse(challengeToken, purposeChallenge)
	if err != nil {
		return nil, ErrInvalidChallenge
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}

	msg := challengeMessage(claims.ID, claims.ExpiresAt.Time)
	signer, err := wallet.RecoverMessage([]byte(msg), sig)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	want := common.HexToAddress(address)
	if signer != want {
		return nil, ErrSignatureMismatch
	}
	if err := a.consume(claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}

	now := a.now().UTC().Truncate(time.Second)
	exp := now.Add(a.credentialTTL)
	token, err := a.sign(authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    authIssuer,
			Subject:   want.Hex(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Purpose:   purposeAgent,
		AgentName: agentName,
	})
	if err != nil {
		return nil, err
	}
	return &Credential{
		Type:      "api-key",
		Token:     CredentialPrefix + token,
		Address:   want.Hex(),
		ExpiresAt: exp,
	}, nil
}

// Authenticate validates an agent credential.
func (a *Authenticator) Authenticate(credential string) (*AgentClaims, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(credential), CredentialPrefix)
	if !ok {
		return nil, ErrInvalidCredential
	}
	claims, err := a.parse(raw, purposeAgent)
	if err != nil || !common.IsHexAddress(claims.Subject) {
		return nil, ErrInvalidCredential
	}
	return &AgentClaims{
		Address:   common.HexToAddress(claims.Subject),
		AgentName: claims.AgentName,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (a *Authenticator) sign(claims authClaims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (a *Authenticator) parse(token, purpose string) (*authClaims, error) {
	var claims authClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethodName}),
		jwt.WithIssuer(authIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("token purpose %q, want %q", claims.Purpose, purpose)
	}
	return &claims, nil
}

func (a *Authenticator) consume(nonce string, expires time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for n, exp := range a.used {
		if now.After(exp) {
			delete(a.used, n)
		}
	}
	if _, ok := a.used[nonce]; ok {
		return ErrChallengeUsed
	}
	a.used[nonce] = expires
	return nil
}

type agentKey struct{}

// AgentFromContext returns the authenticated agent set by the auth middleware.
func AgentFromContext(ctx context.Context) (*AgentClaims, bool) {
	c, ok := ctx.Value(agentKey{}).(*AgentClaims)
	return c, ok
}

type authDiscoveryResponse struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Endpoint    string          `json:"endpoint"`
	Challenge   *Challenge      `json:"challenge"`
	Credentials credentialRules `json:"credentials"`
}

type credentialRules struct {
	Type      string `json:"type"`
	Prefix    string `json:"prefix"`
	ExpiresIn string `json:"expiresIn"`
}

func (s *Server) handleAuthDiscovery(w http.ResponseWriter, _ *http.Request) {
	ch, err := s.auth.NewChallenge()
	if err != nil {
		s.logger.Error("challenge error", "err", err)
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}
	writeJSON(w, http.StatusOK, authDiscoveryResponse{
		Name:      "clawroyale",
		Type:      "wallet-signature",
		Endpoint:  "/api/v1/auth",
		Challenge: ch,
		Credentials: credentialRules{
			Type:      "api-key",
			Prefix:    CredentialPrefix,
			ExpiresIn: "1d",
		},
	})
}

type authRequest struct {
	Challenge string `json:"challenge"`
	Address   string `json:"address"`
	Signature string `json:"signature"`
	AgentName string `json:"agent_name"`
}

type authResponse struct {
	Success    bool        `json:"success"`
	Credential *Credential `json:"credential"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}
	if req.Challenge == "" || req.Address == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: challenge, address, signature")
		return
	}

	cred, err := s.auth.Exchange(req.Challenge, req.Address, req.Signature, req.AgentName)
	if err != nil {
		s.logger.Warn("authentication rejected", "address", req.Address, "err", err)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.RecordCredentialIssued()
	}
	s.logger.Info("agent authenticated", "address", cred.Address)
	writeJSON(w, http.StatusOK, authResponse{Success: true, Credential: cred})
}
