package setup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/viper"
	"github.com/yolodolo42/clawroyale/internal/contracts"
)

// Signer sources written to config.
const (
	SignerKeystore = "keystore"
	SignerEnv      = "env"
	SignerNone     = "none"
)

// WriteConfig merges the wizard result into dataDir/config.yaml, keeping any
// keys the wizard does not manage.
func WriteConfig(dataDir string, r *SetupResult) (string, error) {
	if r == nil || r.Cancelled {
		return "", fmt.Errorf("setup was cancelled")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dataDir, ConfigFile)

	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read existing config: %w", err)
		}
	}

	v.Set("chain", r.Chain)
	v.Set("signer", r.Signer)
	if r.WalletAddress != "" && r.Signer == SignerKeystore {
		v.Set("from", r.WalletAddress)
	}
	if r.AgentName != "" {
		id := contracts.AgentIDFromName(r.AgentName)
		v.Set("agent_name", r.AgentName)
		v.Set("agent_id", hexutil.Encode(id[:]))
	}

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return "", fmt.Errorf("chmod config: %w", err)
	}
	return path, nil
}
