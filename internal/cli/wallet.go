package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/setup"
	"github.com/yolodolo42/clawroyale/internal/ui"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

func newWalletCmd() *cobra.Command {
	walletCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage wallets and accounts",
		Long:  `Create, import, and list the encrypted keystore wallets used to send transactions.`,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new wallet",
		RunE:  runWalletCreate,
	}
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a wallet from private key",
		RunE:  runWalletImport,
	}
	importCmd.Flags().String("key", "", "Private key to import (hex, with or without 0x prefix)")
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all wallets",
		RunE:  runWalletList,
	}

	walletCmd.AddCommand(createCmd, importCmd, listCmd)
	return walletCmd
}

// newPassword asks for a password twice and enforces the minimum length.
func newPassword(prompt string) (string, error) {
	password, err := readPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) < setup.MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", setup.MinPasswordLength)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

func runWalletCreate(cmd *cobra.Command, args []string) error {
	ks, err := wallet.OpenKeystore(getDataDir())
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}
	password, err := newPassword("Enter password for new wallet: ")
	if err != nil {
		return err
	}

	entry, err := ks.Create(password)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	out := ui.NewPrinter(cmd.OutOrStdout())
	out.Success("Wallet created")
	out.KV("Address", entry.Address.Hex())
	out.KV("Keystore", entry.Path)
	out.Warn("Back up your keystore file and remember your password. Fund it with USDC before registering.")
	return nil
}

func runWalletImport(cmd *cobra.Command, args []string) error {
	privateKey, _ := cmd.Flags().GetString("key")
	if privateKey == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Enter private key (hex): ")
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		privateKey = strings.TrimSpace(line)
	}
	if privateKey == "" {
		return fmt.Errorf("private key is required")
	}

	ks, err := wallet.OpenKeystore(getDataDir())
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}
	password, err := newPassword("Enter password to encrypt wallet: ")
	if err != nil {
		return err
	}

	entry, err := ks.Import(privateKey, password)
	if err != nil {
		return fmt.Errorf("failed to import key: %w", err)
	}

	out := ui.NewPrinter(cmd.OutOrStdout())
	out.Success("Wallet imported")
	out.KV("Address", entry.Address.Hex())
	out.KV("Keystore", entry.Path)
	return nil
}

func runWalletList(cmd *cobra.Command, args []string) error {
	ks, err := wallet.OpenKeystore(getDataDir())
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}

	out := ui.NewPrinter(cmd.OutOrStdout())
	entries := ks.Entries()
	if len(entries) == 0 {
		out.Line("No wallets found.")
		out.Dim("Use 'clawroyale wallet create' to create a new wallet.")
		return nil
	}

	out.Line("Found %d wallet(s) in %s:", len(entries), ks.Dir())
	out.Line("")
	for i, e := range entries {
		out.Line("%d. %s", i+1, e.Address.Hex())
	}
	return nil
}
