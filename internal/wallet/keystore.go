package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already in keystore")
	ErrWrongPassword   = errors.New("wrong keystore password")
	ErrAccountLocked   = errors.New("account is locked")
	ErrInvalidKey      = errors.New("invalid private key")
)

// KeystoreDir is the keystore location inside the data directory.
const KeystoreDir = "keystore"

// Entry is one encrypted key file.
type Entry struct {
	Address common.Address
	Path    string
}

// Keystore holds the operator wallets under <dataDir>/keystore in the
// standard Web3 Secret Storage format, so geth and foundry can read them.
type Keystore struct {
	ks  *keystore.KeyStore
	dir string
}

func OpenKeystore(dataDir string) (*Keystore, error) {
	dir := filepath.Join(dataDir, KeystoreDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	return &Keystore{
		ks:  keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		dir: dir,
	}, nil
}

func (k *Keystore) Dir() string { return k.dir }

// Create generates a new key encrypted with password.
func (k *Keystore) Create(password string) (Entry, error) {
	acc, err := k.ks.NewAccount(password)
	if err != nil {
		return Entry{}, err
	}
	return entryOf(acc), nil
}

// Import encrypts an existing hex private key, e.g. the PRIVATE_KEY the
// deploy scripts were run with.
func (k *Keystore) Import(privateKeyHex, password string) (Entry, error) {
	key, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return Entry{}, err
	}
	acc, err := k.ks.ImportECDSA(key, password)
	if errors.Is(err, keystore.ErrAccountAlreadyExists) {
		return Entry{}, fmt.Errorf("%w: %s", ErrAccountExists, acc.Address.Hex())
	}
	if err != nil {
		return Entry{}, err
	}
	return entryOf(acc), nil
}

// Entries lists the key files ordered by path.
func (k *Keystore) Entries() []Entry {
	accs := k.ks.Accounts()
	out := make([]Entry, 0, len(accs))
	for _, acc := range accs {
		out = append(out, entryOf(acc))
	}
	return out
}

func (k *Keystore) Has(addr common.Address) bool {
	return k.ks.HasAddress(addr)
}

// Unlock decrypts the key for addr. The returned signer holds the key in
// memory until Lock is called.
func (k *Keystore) Unlock(addr common.Address, password string) (*KeySigner, error) {
	acc, err := k.ks.Find(accounts.Account{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr.Hex())
	}
	raw, err := os.ReadFile(acc.URL.Path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	key, err := keystore.DecryptKey(raw, password)
	if errors.Is(err, keystore.ErrDecrypt) {
		return nil, ErrWrongPassword
	}
	if err != nil {
		return nil, fmt.Errorf("decrypt key: %w", err)
	}
	return newKeySigner(key.PrivateKey), nil
}

func entryOf(acc accounts.Account) Entry {
	return Entry{Address: acc.Address, Path: acc.URL.Path}
}
