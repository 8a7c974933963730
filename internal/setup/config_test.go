package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/testutil"
)

func readConfig(t *testing.T, path string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v
}

func TestWriteConfig(t *testing.T) {
	t.Run("writes chain, agent and signer", func(t *testing.T) {
		dir := testutil.TempDir(t)
		path, err := WriteConfig(dir, &SetupResult{
			Chain:         "base-sepolia",
			AgentName:     "clawdywithmeatballs",
			Signer:        SignerKeystore,
			WalletAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, ConfigFile), path)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		v := readConfig(t, path)
		id := contracts.AgentIDFromName("clawdywithmeatballs")
		assert.Equal(t, "base-sepolia", v.GetString("chain"))
		assert.Equal(t, "keystore", v.GetString("signer"))
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", v.GetString("from"))
		assert.Equal(t, "clawdywithmeatballs", v.GetString("agent_name"))
		assert.Equal(t, hexutil.Encode(id[:]), v.GetString("agent_id"))
	})

	t.Run("keeps unmanaged keys", func(t *testing.T) {
		dir := testutil.TempDir(t)
		path := filepath.Join(dir, ConfigFile)
		require.NoError(t, os.WriteFile(path, []byte("max_amount: \"25\"\nchain: base\n"), 0600))

		_, err := WriteConfig(dir, &SetupResult{Chain: "base-sepolia", Signer: SignerEnv})
		require.NoError(t, err)

		v := readConfig(t, path)
		assert.Equal(t, "25", v.GetString("max_amount"))
		assert.Equal(t, "base-sepolia", v.GetString("chain"))
		assert.Equal(t, "env", v.GetString("signer"))
		assert.Empty(t, v.GetString("from"))
	})

	t.Run("rejects cancelled result", func(t *testing.T) {
		_, err := WriteConfig(testutil.TempDir(t), &SetupResult{Cancelled: true})
		assert.Error(t, err)
		_, err = WriteConfig(testutil.TempDir(t), nil)
		assert.Error(t, err)
	})
}
