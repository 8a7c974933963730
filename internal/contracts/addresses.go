package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// Addresses holds the deployed contract addresses for one network.
type Addresses struct {
	USDC            common.Address `json:"usdc"`
	AgentVerifier   common.Address `json:"agentVerifier"`
	ClawRoyale      common.Address `json:"clawRoyale"`
	BettingPool     common.Address `json:"bettingPool"`
	ClawRoyaleSmart common.Address `json:"clawRoyaleSmart"`
}

// BaseSepolia returns the public Base Sepolia deployment.
func BaseSepolia() Addresses {
	return Addresses{
		USDC:            common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
		AgentVerifier:   common.HexToAddress("0x494acB419A508EE0bE5eEB75c9940BB15049B22c"),
		ClawRoyale:      common.HexToAddress("0x54692fB23b005220F959B5A874054aD713519FBF"),
		BettingPool:     common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		ClawRoyaleSmart: common.HexToAddress("0xC41444F117eEE255654C91BE65f1D362B01764A8"),
	}
}

// Targets lists the configured contracts that transactions may be sent to.
// AgentVerifier is read-only and not included.
func (a Addresses) Targets() []common.Address {
	var out []common.Address
	for _, addr := range []common.Address{a.USDC, a.ClawRoyale, a.ClawRoyaleSmart, a.BettingPool} {
		if addr != (common.Address{}) {
			out = append(out, addr)
		}
	}
	return out
}

// Deployments is the deployments.json file written by the deploy scripts.
type Deployments struct {
	ChainID   int64 `json:"chainId"`
	Contracts struct {
		USDC          string `json:"USDC"`
		AgentVerifier string `json:"AgentVerifier"`
		ClawRoyale    string `json:"ClawRoyale"`
		BettingPool   string `json:"BettingPool"`
	} `json:"contracts"`
	ClawRoyaleSmart *struct {
		Address string `json:"address"`
	} `json:"clawRoyaleSmart,omitempty"`
	USDC string `json:"usdc,omitempty"`
}

var ErrInvalidAddress = errors.New("invalid contract address")

// LoadDeployments reads a deployments.json file.
func LoadDeployments(path string) (*Deployments, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Deployments
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &d, nil
}

// Merge overlays the non-empty addresses found in d onto base.
func (d *Deployments) Merge(base Addresses) (Addresses, error) {
	out := base
	set := func(dst *common.Address, name, hex string) error {
		if hex == "" {
			return nil
		}
		if !common.IsHexAddress(hex) {
			return fmt.Errorf("%w: %s=%q", ErrInvalidAddress, name, hex)
		}
		*dst = common.HexToAddress(hex)
		return nil
	}

	usdc := d.Contracts.USDC
	if usdc == "" {
		usdc = d.USDC
	}
	smart := ""
	if d.ClawRoyaleSmart != nil {
		smart = d.ClawRoyaleSmart.Address
	}

	for _, f := range []struct {
		dst  *common.Address
		name string
		hex  string
	}{
		{&out.USDC, "USDC", usdc},
		{&out.AgentVerifier, "AgentVerifier", d.Contracts.AgentVerifier},
		{&out.ClawRoyale, "ClawRoyale", d.Contracts.ClawRoyale},
		{&out.BettingPool, "BettingPool", d.Contracts.BettingPool},
		{&out.ClawRoyaleSmart, "ClawRoyaleSmart", smart},
	} {
		if err := set(f.dst, f.name, f.hex); err != nil {
			return Addresses{}, err
		}
	}
	return out, nil
}

// ParseAddress validates a hex address string.
func ParseAddress(name, hex string) (common.Address, error) {
	if !common.IsHexAddress(hex) {
		return common.Address{}, fmt.Errorf("%w: %s=%q", ErrInvalidAddress, name, hex)
	}
	return common.HexToAddress(hex), nil
}
