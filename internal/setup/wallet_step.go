package setup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/yolodolo42/clawroyale/internal/ui"
	"github.com/yolodolo42/clawroyale/internal/wallet"
)

// MinPasswordLength applies to every keystore password, wizard or CLI.
const MinPasswordLength = 8

// passwordForm asks for a keystore password, then for it again.
type passwordForm struct {
	pass       textinput.Model
	confirm    textinput.Model
	confirming bool
	err        string
}

func newPasswordForm() passwordForm {
	return passwordForm{
		pass:    maskedInput(fmt.Sprintf("Enter password (%d+ chars)", MinPasswordLength)),
		confirm: maskedInput("Confirm password"),
	}
}

func maskedInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	in.CharLimit = 128
	in.Width = 40
	return in
}

func (f *passwordForm) Focus() tea.Cmd {
	f.confirming = false
	f.confirm.Blur()
	return f.pass.Focus()
}

func (f *passwordForm) Reset() {
	f.pass.Reset()
	f.confirm.Reset()
	f.confirming = false
	f.err = ""
}

func (f *passwordForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.confirming {
		f.confirm, cmd = f.confirm.Update(msg)
	} else {
		f.pass, cmd = f.pass.Update(msg)
	}
	return cmd
}

// Submit handles Enter. done is true once both entries match.
func (f *passwordForm) Submit() (done bool, cmd tea.Cmd) {
	if !f.confirming {
		if len(f.pass.Value()) < MinPasswordLength {
			f.err = fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
			return false, nil
		}
		f.confirming = true
		f.err = ""
		f.pass.Blur()
		return false, f.confirm.Focus()
	}
	if f.pass.Value() != f.confirm.Value() {
		f.err = "Passwords do not match. Try again."
		f.confirm.Reset()
		return false, f.confirm.Focus()
	}
	f.err = ""
	return true, nil
}

func (f passwordForm) Value() string { return f.pass.Value() }

func (f passwordForm) View() string {
	var b strings.Builder
	if f.confirming {
		fmt.Fprintf(&b, "  Password: %s\n\n", Checkmark+SuccessStyle.Render(" set"))
		fmt.Fprintf(&b, "  %s\n", f.confirm.View())
	} else {
		fmt.Fprintf(&b, "  %s\n", f.pass.View())
	}
	if f.err != "" {
		fmt.Fprintf(&b, "\n  %s\n", ErrorStyle.Render(ui.SymbolCross+" "+f.err))
	}
	return b.String()
}

// createWallet encrypts the imported key, or a fresh one, into the keystore.
func (m WizardModel) createWallet() tea.Cmd {
	password := m.password.Value()
	privateKey := m.importKey
	dataDir := m.dataDir

	return func() tea.Msg {
		ks, err := wallet.OpenKeystore(dataDir)
		if err != nil {
			return walletCreatedMsg{err: err}
		}
		if privateKey == "" {
			entry, err := ks.Create(password)
			if err != nil {
				return walletCreatedMsg{err: err}
			}
			return walletCreatedMsg{address: entry.Address.Hex()}
		}
		entry, err := ks.Import(privateKey, password)
		if err != nil {
			return walletCreatedMsg{err: err}
		}
		return walletCreatedMsg{address: entry.Address.Hex(), imported: true}
	}
}

func validatePrivateKey(s string) error {
	_, err := wallet.ParsePrivateKey(s)
	return err
}
