package cli

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

func parseUint(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s: %q", name, s)
	}
	return v, nil
}

func parseBytes32(name, s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return out, fmt.Errorf("invalid %s: %w", name, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("invalid %s: want 32 bytes, got %d", name, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// optionalAddress parses a flag that may be empty; empty is the zero address.
func optionalAddress(cmd *cobra.Command, flag string) (common.Address, error) {
	s, _ := cmd.Flags().GetString(flag)
	if s == "" {
		return common.Address{}, nil
	}
	return contracts.ParseAddress(flag, s)
}

// accountFor is the --address flag, or the configured signer's address.
func accountFor(cmd *cobra.Command) (common.Address, error) {
	if f := cmd.Flags().Lookup("address"); f != nil && f.Value.String() != "" {
		return contracts.ParseAddress("address", f.Value.String())
	}
	if key := viper.GetString("private_key"); key != "" {
		s, err := wallet.NewKeySigner(key)
		if err != nil {
			return common.Address{}, err
		}
		return s.Address(), nil
	}
	if from := viper.GetString("from"); from != "" {
		return contracts.ParseAddress("from", from)
	}
	return common.Address{}, fmt.Errorf("%w (or pass --address)", errNoSigner)
}

// agentIDFor resolves --agent-id, then --agent-name, then the configured
// agent_id and agent_name.
func agentIDFor(cmd *cobra.Command) ([32]byte, error) {
	id, _ := cmd.Flags().GetString("agent-id")
	name, _ := cmd.Flags().GetString("agent-name")
	switch {
	case id != "":
		return contracts.ParseAgentID(id)
	case name != "":
		return contracts.AgentIDFromName(name), nil
	case viper.GetString("agent_id") != "":
		return contracts.ParseAgentID(viper.GetString("agent_id"))
	case viper.GetString("agent_name") != "":
		return contracts.AgentIDFromName(viper.GetString("agent_name")), nil
	}
	return [32]byte{}, fmt.Errorf("%w: pass --agent-id or --agent-name, or run 'clawroyale init'", contracts.ErrInvalidAgentID)
}
