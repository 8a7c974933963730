// Package testutil holds helpers shared by the package tests: scratch data
// directories, environment isolation and a fake chain backend.
package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// Hardhat account #0. Public knowledge, never holds real funds.
const HardhatKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var HardhatAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// operatorEnv are the variables the deploy scripts export. Any of them left
// over in a developer shell would leak into config resolution.
var operatorEnv = []string{
	"PRIVATE_KEY",
	"RPC_URL",
	"USDC_ADDRESS",
	"AGENT_VERIFIER_ADDRESS",
	"CLAW_ROYALE_ADDRESS",
	"BETTING_POOL_ADDRESS",
	"CLAW_ROYALE_SMART_ADDRESS",
}

// TempDir returns a scratch data directory removed after the test. Removal
// is best effort: the keystore cache may still be watching it.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "clawroyale-*")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// SetEnv sets key for the duration of the test.
func SetEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("set %s: %v", key, err)
	}
	t.Cleanup(func() { restoreEnv(key, old, had) })
}

// UnsetEnv clears key for the duration of the test.
func UnsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
	t.Cleanup(func() { restoreEnv(key, old, had) })
}

// IsolateEnv clears the operator script variables and every CLAWROYALE_*
// variable so a test sees only what it sets itself.
func IsolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range operatorEnv {
		UnsetEnv(t, key)
	}
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "CLAWROYALE_") {
			UnsetEnv(t, key)
		}
	}
}

func restoreEnv(key, old string, had bool) {
	if had {
		_ = os.Setenv(key, old)
		return
	}
	_ = os.Unsetenv(key)
}
