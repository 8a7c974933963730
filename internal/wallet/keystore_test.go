package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/clawroyale/internal/testutil"
)

const pingTypedData = `{
  "types": {
    "EIP712Domain": [
      {"name": "name", "type": "string"},
      {"name": "chainId", "type": "uint256"}
    ],
    "Ping": [{"name": "value", "type": "uint256"}]
  },
  "primaryType": "Ping",
  "domain": {"name": "ClawRoyale", "chainId": "84532"},
  "message": {"value": "1"}
}`

func openTestKeystore(t *testing.T) *Keystore {
	t.Helper()
	k, err := OpenKeystore(testutil.TempDir(t))
	require.NoError(t, err)
	return k
}

func TestOpenKeystore(t *testing.T) {
	dir := testutil.TempDir(t)

	k, err := OpenKeystore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, KeystoreDir), k.Dir())

	info, err := os.Stat(k.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Empty(t, k.Entries())

	_, err = OpenKeystore(dir)
	require.NoError(t, err, "reopening an existing keystore")
}

func TestKeystore_Import(t *testing.T) {
	t.Run("encrypts hardhat key", func(t *testing.T) {
		k := openTestKeystore(t)
		e, err := k.Import("0x"+hardhatKey, "entry-fee-pw")
		require.NoError(t, err)
		assert.Equal(t, hardhatAddr, e.Address)
		assert.FileExists(t, e.Path)
		assert.True(t, k.Has(hardhatAddr))

		_, err = k.Import(hardhatKey, "other-pw")
		assert.ErrorIs(t, err, ErrAccountExists)
	})

	t.Run("rejects bad keys", func(t *testing.T) {
		k := openTestKeystore(t)
		for _, key := range []string{"zz", "ac0974", ""} {
			_, err := k.Import(key, "pw")
			assert.ErrorIs(t, err, ErrInvalidKey, key)
		}
		assert.Empty(t, k.Entries())
	})
}

func TestKeystore_Unlock(t *testing.T) {
	k := openTestKeystore(t)
	_, err := k.Import(hardhatKey, "entry-fee-pw")
	require.NoError(t, err)

	t.Run("signs after unlock", func(t *testing.T) {
		s, err := k.Unlock(hardhatAddr, "entry-fee-pw")
		require.NoError(t, err)
		assert.Equal(t, hardhatAddr, s.Address())

		sig, err := s.SignTypedData([]byte(pingTypedData))
		require.NoError(t, err)
		addr, err := RecoverTypedData([]byte(pingTypedData), sig)
		require.NoError(t, err)
		assert.Equal(t, hardhatAddr, addr)

		s.Lock()
		_, err = s.SignMessage([]byte("register"))
		assert.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := k.Unlock(hardhatAddr, "nope")
		assert.ErrorIs(t, err, ErrWrongPassword)
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := k.Unlock(common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), "entry-fee-pw")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestKeystore_Create(t *testing.T) {
	k := openTestKeystore(t)

	e, err := k.Create("fresh-pw")
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, e.Address)

	entries := k.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, e, entries[0])

	s, err := k.Unlock(e.Address, "fresh-pw")
	require.NoError(t, err)
	assert.Equal(t, e.Address, s.Address())
}

func TestSignTypedData_Malformed(t *testing.T) {
	s, err := NewKeySigner(hardhatKey)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"not json":       "{",
		"missing domain": `{"types":{"Ping":[]},"primaryType":"Ping"}`,
		"unknown type":   `{"types":{"EIP712Domain":[]},"primaryType":"Pong"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.SignTypedData([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidTypedData)
		})
	}
}
