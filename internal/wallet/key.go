package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeySigner signs with a private key held in memory, loaded from the
// PRIVATE_KEY environment variable or unlocked from the keystore.
type KeySigner struct {
	mu      sync.RWMutex
	address common.Address
	key     *ecdsa.PrivateKey // nil when locked
}

// ParsePrivateKey decodes a hex private key with or without the 0x prefix.
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	privateKeyHex = strings.TrimSpace(privateKeyHex)
	privateKeyHex = strings.TrimPrefix(strings.TrimPrefix(privateKeyHex, "0x"), "0X")

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// NewKeySigner builds a signer from a hex private key.
func NewKeySigner(privateKeyHex string) (*KeySigner, error) {
	key, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return newKeySigner(key), nil
}

func newKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		address: crypto.PubkeyToAddress(key.PublicKey),
		key:     key,
	}
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignTransaction(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrAccountLocked
	}
	return signTx(s.key, tx, chainID)
}

func (s *KeySigner) SignMessage(message []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrAccountLocked
	}
	return signPersonal(s.key, message)
}

func (s *KeySigner) SignTypedData(typedData []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrAccountLocked
	}
	return signTyped(s.key, typedData)
}

// Lock zeros the key; later signing calls return ErrAccountLocked.
func (s *KeySigner) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		s.key.D.SetInt64(0)
		s.key = nil
	}
}
