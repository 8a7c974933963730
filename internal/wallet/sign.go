package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var ErrInvalidTypedData = errors.New("invalid typed data")

func signTx(key *ecdsa.PrivateKey, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signer := types.LatestSignerForChainID(chainID)
	return types.SignTx(tx, signer, key)
}

func signPersonal(key *ecdsa.PrivateKey, message []byte) ([]byte, error) {
	// EIP-191 prefix prevents signed messages from being replayed as transactions.
	// Without this prefix, a malicious dapp could trick users into signing raw tx data.
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	hash := crypto.Keccak256([]byte(prefix), message)

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}

	// Transform V from crypto.Sign's 0/1 to 27/28 for web3.js/MetaMask compatibility.
	// Ethereum's ecrecover precompile expects V in {27,28} not {0,1}.
	sig[64] += 27
	return sig, nil
}

// typedDataHash parses eth_signTypedData_v4 JSON and returns its EIP-712 digest.
func typedDataHash(raw []byte) ([]byte, error) {
	var td apitypes.TypedData
	if err := json.Unmarshal(raw, &td); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTypedData, err)
	}
	if _, ok := td.Types["EIP712Domain"]; !ok {
		return nil, fmt.Errorf("%w: missing EIP712Domain type", ErrInvalidTypedData)
	}
	if _, ok := td.Types[td.PrimaryType]; !ok || td.PrimaryType == "" {
		return nil, fmt.Errorf("%w: unknown primary type %q", ErrInvalidTypedData, td.PrimaryType)
	}
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTypedData, err)
	}
	return hash, nil
}

func signTyped(key *ecdsa.PrivateKey, raw []byte) ([]byte, error) {
	hash, err := typedDataHash(raw)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// RecoverTypedData returns the address that produced sig over the EIP-712
// typed data. Used to verify authorizations before they are submitted.
func RecoverTypedData(raw []byte, sig []byte) (common.Address, error) {
	hash, err := typedDataHash(raw)
	if err != nil {
		return common.Address{}, err
	}
	return recoverHash(hash, sig)
}

// RecoverMessage returns the address that produced an EIP-191 personal
// signature over message.
func RecoverMessage(message []byte, sig []byte) (common.Address, error) {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return recoverHash(crypto.Keccak256([]byte(prefix), message), sig)
}

func recoverHash(hash []byte, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	s := make([]byte, 65)
	copy(s, sig)
	if s[64] >= 27 {
		s[64] -= 27
	}
	pub, err := crypto.SigToPub(hash, s)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
