package wallet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer signs on behalf of one tournament account: entry-fee and betting
// transactions, wallet logins for the API and x402 payment authorizations.
type Signer interface {
	Address() common.Address
	SignTransaction(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)

	// SignMessage is an EIP-191 personal signature.
	SignMessage(message []byte) ([]byte, error)

	// SignTypedData takes eth_signTypedData_v4 JSON.
	SignTypedData(typedData []byte) ([]byte, error)
}

var _ Signer = (*KeySigner)(nil)
