// Package x402 builds ERC-3009 TransferWithAuthorization payments and the
// base64 payment header x402 servers accept.
package x402

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

// DefaultValidity is how long an authorization stays valid when no window is given.
const DefaultValidity = time.Hour

const (
	primaryType = "TransferWithAuthorization"
	clockSkew   = 10 * time.Minute
)

var (
	ErrInvalidValue     = errors.New("payment value must be greater than zero")
	ErrInvalidHeader    = errors.New("invalid payment header")
	ErrBadSignature     = errors.New("signature does not match payer")
	ErrNotYetValid      = errors.New("authorization not yet valid")
	ErrExpired          = errors.New("authorization expired")
	ErrUnsupportedTypes = errors.New("unsupported primary type")
)

var transferTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	primaryType: {
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	},
}

// Domain is the EIP-712 domain of the USDC token contract.
type Domain struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           int64          `json:"chainId"`
	VerifyingContract common.Address `json:"verifyingContract"`
}

// USDCDomain is the domain Circle's FiatTokenV2 USDC deployments sign under.
func USDCDomain(chainID int64, usdc common.Address) Domain {
	return Domain{Name: "USDC", Version: "2", ChainID: chainID, VerifyingContract: usdc}
}

// Authorization is an ERC-3009 transfer authorization.
type Authorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  uint64
	ValidBefore uint64
	Nonce       [32]byte
}

// NewAuthorization creates an authorization with a random nonce that expires
// validity after now. validAfter is backdated by clockSkew so a settling node
// with a slightly older clock still accepts it.
func NewAuthorization(from, to common.Address, value *big.Int, now time.Time, validity time.Duration) (Authorization, error) {
	if value == nil || value.Sign() <= 0 {
		return Authorization{}, ErrInvalidValue
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	a := Authorization{
		From:        from,
		To:          to,
		Value:       new(big.Int).Set(value),
		ValidAfter:  uint64(now.Add(-clockSkew).Unix()),
		ValidBefore: uint64(now.Add(validity).Unix()),
	}
	if _, err := rand.Read(a.Nonce[:]); err != nil {
		return Authorization{}, fmt.Errorf("nonce: %w", err)
	}
	return a, nil
}

func (a Authorization) message() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"from":        a.From.Hex(),
		"to":          a.To.Hex(),
		"value":       a.Value.String(),
		"validAfter":  fmt.Sprintf("%d", a.ValidAfter),
		"validBefore": fmt.Sprintf("%d", a.ValidBefore),
		"nonce":       hexutil.Encode(a.Nonce[:]),
	}
}

// TypedData returns the EIP-712 document the payer signs.
func TypedData(d Domain, a Authorization) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       transferTypes,
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           (*math.HexOrDecimal256)(big.NewInt(d.ChainID)),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: a.message(),
	}
}

// Payment is a signed authorization.
type Payment struct {
	Domain        Domain
	Authorization Authorization
	Signature     []byte
}

// Sign has signer authorize a.
func Sign(signer wallet.Signer, d Domain, a Authorization) (*Payment, error) {
	raw, err := json.Marshal(TypedData(d, a))
	if err != nil {
		return nil, err
	}
	sig, err := signer.SignTypedData(raw)
	if err != nil {
		return nil, fmt.Errorf("sign authorization: %w", err)
	}
	return &Payment{Domain: d, Authorization: a, Signature: sig}, nil
}

// PaymentID is the on-chain payment id passed to registerWithX402: the
// authorization nonce, which the token contract marks as used on settlement.
func (p *Payment) PaymentID() [32]byte {
	return p.Authorization.Nonce
}

type headerMessage struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

type header struct {
	Domain      Domain         `json:"domain"`
	Types       apitypes.Types `json:"types"`
	PrimaryType string         `json:"primaryType"`
	Message     headerMessage  `json:"message"`
	Signature   hexutil.Bytes  `json:"signature"`
}

// Header encodes the payment as base64 JSON for the X-PAYMENT header.
func (p *Payment) Header() (string, error) {
	a := p.Authorization
	h := header{
		Domain:      p.Domain,
		Types:       transferTypes,
		PrimaryType: primaryType,
		Message: headerMessage{
			From:        a.From.Hex(),
			To:          a.To.Hex(),
			Value:       a.Value.String(),
			ValidAfter:  fmt.Sprintf("%d", a.ValidAfter),
			ValidBefore: fmt.Sprintf("%d", a.ValidBefore),
			Nonce:       hexutil.Encode(a.Nonce[:]),
		},
		Signature: p.Signature,
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeHeader parses a header produced by Header.
func DecodeHeader(s string) (*Payment, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if h.PrimaryType != primaryType {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTypes, h.PrimaryType)
	}

	a := Authorization{
		From: common.HexToAddress(h.Message.From),
		To:   common.HexToAddress(h.Message.To),
	}
	var ok bool
	if a.Value, ok = new(big.Int).SetString(h.Message.Value, 10); !ok {
		return nil, fmt.Errorf("%w: value %q", ErrInvalidHeader, h.Message.Value)
	}
	if _, err := fmt.Sscan(h.Message.ValidAfter, &a.ValidAfter); err != nil {
		return nil, fmt.Errorf("%w: validAfter: %v", ErrInvalidHeader, err)
	}
	if _, err := fmt.Sscan(h.Message.ValidBefore, &a.ValidBefore); err != nil {
		return nil, fmt.Errorf("%w: validBefore: %v", ErrInvalidHeader, err)
	}
	nonce, err := hexutil.Decode(h.Message.Nonce)
	if err != nil || len(nonce) != 32 {
		return nil, fmt.Errorf("%w: nonce", ErrInvalidHeader)
	}
	copy(a.Nonce[:], nonce)

	return &Payment{Domain: h.Domain, Authorization: a, Signature: h.Signature}, nil
}

// Verify checks the signature against the payer and the validity window at now.
func (p *Payment) Verify(now time.Time) error {
	raw, err := json.Marshal(TypedData(p.Domain, p.Authorization))
	if err != nil {
		return err
	}
	signer, err := wallet.RecoverTypedData(raw, p.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if signer != p.Authorization.From {
		return fmt.Errorf("%w: recovered %s", ErrBadSignature, signer.Hex())
	}
	ts := uint64(now.Unix())
	if ts <= p.Authorization.ValidAfter {
		return ErrNotYetValid
	}
	if ts >= p.Authorization.ValidBefore {
		return ErrExpired
	}
	return nil
}
