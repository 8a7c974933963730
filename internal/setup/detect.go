package setup

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

const (
	ConfigFile    = "config.yaml"
	PrivateKeyEnv = "PRIVATE_KEY"
)

// SetupStatus represents the current setup state
type SetupStatus struct {
	HasConfig     bool
	HasWallet     bool
	HasEnvKey     bool
	IsComplete    bool
	Chain         string
	AgentName     string
	WalletAddress string
}

// DetectSetupStatus checks the config file, the keystore and the
// environment under dataDir.
func DetectSetupStatus(dataDir string) (*SetupStatus, error) {
	status := &SetupStatus{
		HasEnvKey: os.Getenv(PrivateKeyEnv) != "",
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dataDir, ConfigFile))
	if err := v.ReadInConfig(); err == nil {
		status.HasConfig = true
		status.Chain = v.GetString("chain")
		status.AgentName = v.GetString("agent_name")
		status.WalletAddress = v.GetString("from")
	}

	keystoreDir := filepath.Join(dataDir, wallet.KeystoreDir)
	if entries, err := os.ReadDir(keystoreDir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && entry.Name()[0] != '.' {
				status.HasWallet = true
				break
			}
		}
	}

	if status.HasWallet && status.WalletAddress == "" {
		ks, err := wallet.OpenKeystore(dataDir)
		if err == nil {
			if entries := ks.Entries(); len(entries) > 0 {
				status.WalletAddress = entries[0].Address.Hex()
			}
		}
	}

	// Reads work without a wallet, so a config with a chain is enough.
	status.IsComplete = status.HasConfig && status.Chain != ""

	return status, nil
}

// NeedsSetup returns true if interactive setup should run
func NeedsSetup(dataDir string) bool {
	status, _ := DetectSetupStatus(dataDir)
	return !status.IsComplete
}

// GetDataDir returns the clawroyale data directory path
func GetDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".clawroyale"), nil
}
