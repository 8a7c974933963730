package setup

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/yolodolo42/clawroyale/internal/ui"
	"golang.org/x/term"
)

// WizardStep represents the current step in the wizard
type WizardStep int

const (
	StepWelcome WizardStep = iota
	StepNetwork
	StepAgentName
	StepWalletChoice
	StepWalletKey
	StepWalletPassword
	StepComplete
)

const totalSteps = 4 // Network, Agent, Wallet, Ready

const (
	walletExisting = "existing"
	walletCreate   = "create"
	walletImport   = "import"
	walletEnv      = "env"
	walletSkip     = "skip"
)

// SetupResult contains the result of the setup wizard
type SetupResult struct {
	Chain         string
	AgentName     string
	Signer        string
	WalletCreated bool
	WalletAddress string
	Cancelled     bool
}

// WizardModel is the main wizard Bubbletea model
type WizardModel struct {
	step     WizardStep
	status   *SetupStatus
	dataDir  string
	quitting bool

	// Network step
	networkSelector ui.Selector
	selectedChain   string

	// Agent step
	agentPrompt ui.Prompt
	agentName   string

	// Wallet step
	walletSelector ui.Selector
	keyPrompt      ui.Prompt
	importKey      string
	password       passwordForm
	creating       bool
	signer         string
	walletCreated  bool
	walletAddress  string

	// UI
	spinner  spinner.Model
	progress progress.Model

	// Result
	result *SetupResult
}

type walletCreatedMsg struct {
	address  string
	imported bool
	err      error
}

func walletSelectorItems(status *SetupStatus) []ui.SelectorItem {
	var items []ui.SelectorItem
	if status.HasWallet && status.WalletAddress != "" {
		items = append(items, ui.SelectorItem{
			ID:          walletExisting,
			Label:       "Use existing wallet",
			Description: ui.ShortAddress(status.WalletAddress),
			Current:     true,
		})
	}
	items = append(items,
		ui.SelectorItem{ID: walletCreate, Label: "Create a new wallet", Description: "encrypted keystore"},
		ui.SelectorItem{ID: walletImport, Label: "Import a private key", Description: "encrypted keystore"},
		ui.SelectorItem{ID: walletEnv, Label: "Use " + PrivateKeyEnv, Description: "read from the environment", Disabled: !status.HasEnvKey},
		ui.SelectorItem{ID: walletSkip, Label: "Continue without wallet", Description: "read-only commands"},
	)
	return items
}

// NewWizard creates a new wizard model
func NewWizard(dataDir string) *WizardModel {
	status, _ := DetectSetupStatus(dataDir)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	agentPrompt := ui.NewPrompt("Name your agent",
		ui.WithPlaceholder("clawdywithmeatballs"),
		ui.WithCharLimit(64),
		ui.WithValidator(validateAgentName),
	)
	if status.AgentName != "" {
		agentPrompt.SetValue(status.AgentName)
	}

	m := &WizardModel{
		step:            StepWelcome,
		status:          status,
		dataDir:         dataDir,
		networkSelector: ui.NewSelector("Choose a network", networkItems(status.Chain)),
		agentPrompt:     agentPrompt,
		walletSelector:  ui.NewSelector("Choose a signer", walletSelectorItems(status)),
		keyPrompt: ui.NewPrompt("Import private key",
			ui.WithPlaceholder("0x..."),
			ui.WithMask(),
			ui.WithValidator(validatePrivateKey),
		),
		password: newPasswordForm(),
		spinner:  sp,
		progress: prog,
	}

	return m
}

// Init initializes the wizard
func (m WizardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

// Update handles messages
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keys (don't swallow Esc; selectors use it).
		if msg.Type == tea.KeyCtrlC {
			m.result = &SetupResult{Cancelled: true}
			m.quitting = true
			return m, tea.Quit
		}

		switch m.step {
		case StepWelcome:
			if msg.Type == tea.KeyEnter {
				m.step = StepNetwork
			}
			return m, nil

		case StepNetwork:
			return m.updateNetwork(msg)

		case StepAgentName:
			switch msg.Type {
			case tea.KeyEsc:
				m.agentPrompt.Blur()
				m.networkSelector = ui.NewSelector("Choose a network", networkItems(m.selectedChain))
				m.step = StepNetwork
				return m, nil
			case tea.KeyEnter:
				name, err := m.agentPrompt.Submit()
				if err != nil {
					return m, nil
				}
				m.agentName = name
				m.agentPrompt.Blur()
				m.step = StepWalletChoice
				return m, nil
			}
			// Fall through to let input update happen

		case StepWalletChoice:
			return m.updateWalletChoice(msg)

		case StepWalletKey:
			switch msg.Type {
			case tea.KeyEsc:
				m.keyPrompt.Reset()
				m.keyPrompt.Blur()
				m.resetWalletChoice()
				return m, nil
			case tea.KeyEnter:
				key, err := m.keyPrompt.Submit()
				if err != nil {
					return m, nil
				}
				m.importKey = key
				m.keyPrompt.Blur()
				m.step = StepWalletPassword
				return m, m.password.Focus()
			}
			// Fall through to let input update happen

		case StepWalletPassword:
			if m.creating {
				return m, nil
			}
			switch msg.Type {
			case tea.KeyEsc:
				m.password.Reset()
				m.importKey = ""
				m.resetWalletChoice()
				return m, nil
			case tea.KeyEnter:
				done, cmd := m.password.Submit()
				if !done {
					return m, cmd
				}
				m.creating = true
				return m, tea.Batch(m.spinner.Tick, m.createWallet())
			}
			// Fall through to let input update happen

		case StepComplete:
			if msg.Type == tea.KeyEnter {
				m.result = &SetupResult{
					Chain:         m.selectedChain,
					AgentName:     m.agentName,
					Signer:        m.signer,
					WalletCreated: m.walletCreated,
					WalletAddress: m.walletAddress,
				}
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.progress.Width = min(40, msg.Width-20)
		m.networkSelector.SetWidth(msg.Width)
		m.walletSelector.SetWidth(msg.Width)
		m.agentPrompt.SetWidth(min(60, msg.Width))
		m.keyPrompt.SetWidth(min(70, msg.Width))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case walletCreatedMsg:
		m.creating = false
		if msg.err != nil {
			m.password.Reset()
			m.password.err = msg.err.Error()
			return m, m.password.Focus()
		}
		m.importKey = ""
		m.walletCreated = true
		m.walletAddress = msg.address
		m.signer = SignerKeystore
		m.step = StepComplete
		return m, nil
	}

	switch m.step {
	case StepAgentName:
		_, cmd := m.agentPrompt.Update(msg)
		cmds = append(cmds, cmd)
	case StepWalletKey:
		_, cmd := m.keyPrompt.Update(msg)
		cmds = append(cmds, cmd)
	case StepWalletPassword:
		cmds = append(cmds, m.password.Update(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *WizardModel) resetWalletChoice() {
	m.walletSelector = ui.NewSelector("Choose a signer", walletSelectorItems(m.status))
	m.step = StepWalletChoice
}

func (m WizardModel) updateNetwork(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.networkSelector.Update(msg)
	if m.networkSelector.Active() {
		return m, nil
	}
	if m.networkSelector.Cancelled() {
		m.step = StepWelcome
		m.networkSelector = ui.NewSelector("Choose a network", networkItems(m.status.Chain))
		return m, nil
	}

	m.selectedChain = m.networkSelector.Selected()
	m.step = StepAgentName
	return m, m.agentPrompt.Focus()
}

func (m WizardModel) updateWalletChoice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.walletSelector.Update(msg)
	if m.walletSelector.Active() {
		return m, nil
	}

	if m.walletSelector.Cancelled() {
		m.step = StepAgentName
		m.walletSelector = ui.NewSelector("Choose a signer", walletSelectorItems(m.status))
		return m, m.agentPrompt.Focus()
	}

	switch m.walletSelector.Selected() {
	case walletExisting:
		m.signer = SignerKeystore
		m.walletAddress = m.status.WalletAddress
		m.step = StepComplete
		return m, nil
	case walletCreate:
		m.importKey = ""
		m.step = StepWalletPassword
		return m, m.password.Focus()
	case walletImport:
		m.step = StepWalletKey
		return m, m.keyPrompt.Focus()
	case walletEnv:
		m.signer = SignerEnv
		m.step = StepComplete
		return m, nil
	default:
		m.signer = SignerNone
		m.step = StepComplete
		return m, nil
	}
}

// View renders the wizard
func (m WizardModel) View() string {
	if m.quitting {
		if m.result != nil && m.result.Cancelled {
			return DimStyle.Render("\n  Setup cancelled.\n\n")
		}
		return ""
	}

	var b strings.Builder

	if m.step > StepWelcome && m.step < StepComplete {
		b.WriteString("\n")
		b.WriteString(m.renderProgress())
		b.WriteString("\n")
	}

	switch m.step {
	case StepWelcome:
		b.WriteString(m.viewWelcome())
	case StepNetwork:
		b.WriteString("\n" + m.networkSelector.View())
	case StepAgentName:
		b.WriteString(m.viewAgentName())
	case StepWalletChoice:
		b.WriteString(m.viewWalletChoice())
	case StepWalletKey:
		b.WriteString("\n" + indent(m.keyPrompt.View()) + "\n\n")
		b.WriteString(HelpStyle.Render("  Enter to continue • Esc back"))
	case StepWalletPassword:
		b.WriteString(m.viewWalletPassword())
	case StepComplete:
		b.WriteString(m.viewComplete())
	}

	return b.String()
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func (m WizardModel) renderProgress() string {
	var currentStep int
	switch m.step {
	case StepNetwork:
		currentStep = 1
	case StepAgentName:
		currentStep = 2
	case StepWalletChoice, StepWalletKey, StepWalletPassword:
		currentStep = 3
	case StepComplete:
		currentStep = 4
	}

	percent := float64(currentStep) / float64(totalSteps)
	bar := m.progress.ViewAs(percent)

	labels := "  Network    Agent    Wallet    Ready"
	return fmt.Sprintf("  %s\n%s", bar, DimStyle.Render(labels))
}

func (m WizardModel) viewWelcome() string {
	var b strings.Builder
	b.WriteString("\n\n")

	body := TitleStyle.Render(ui.SymbolClaw+" Welcome to Claw Royale") + "\n" +
		SubtitleStyle.Render("On-chain agent battle tournament") + "\n\n" +
		"Pick a network, name your agent and choose a signer."
	if m.status.HasEnvKey {
		body += "\n\n" + SuccessStyle.Render(fmt.Sprintf("%s Found %s in environment", ui.SymbolCheck, PrivateKeyEnv))
	}
	b.WriteString(BoxStyle.Render(body))
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render("  Press Enter to continue..."))
	return b.String()
}

func (m WizardModel) viewAgentName() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(indent(m.agentPrompt.View()))
	b.WriteString("\n\n")
	b.WriteString(DimStyle.Render("  The agent id is the keccak256 hash of this name.\n\n"))
	b.WriteString(HelpStyle.Render("  Enter to continue • Esc back"))
	return b.String()
}

func (m WizardModel) viewWalletChoice() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("  A signer lets you:\n"))
	b.WriteString(DimStyle.Render("  • Pay the entry fee and register\n"))
	b.WriteString(DimStyle.Render("  • Fund the prize pool and place bets\n"))
	b.WriteString(DimStyle.Render("  • Claim prizes\n\n"))
	b.WriteString(m.walletSelector.View())
	return b.String()
}

func (m WizardModel) viewWalletPassword() string {
	var b strings.Builder
	b.WriteString("\n")
	title := "  Create Wallet Password"
	if m.importKey != "" {
		title = "  Encrypt Imported Key"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  %s\n", DimStyle.Render("The key file is written to the keystore directory, scrypt encrypted."))
	fmt.Fprintf(&b, "  %s\n\n", DimStyle.Render(fmt.Sprintf("At least %d characters.", MinPasswordLength)))
	b.WriteString(m.password.View())

	if m.creating {
		fmt.Fprintf(&b, "\n  %s Encrypting keystore...\n", m.spinner.View())
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("  Enter to continue • Esc back"))
	return b.String()
}

func (m WizardModel) viewComplete() string {
	var b strings.Builder
	b.WriteString("\n\n")

	signerInfo := DimStyle.Render("Not configured (read-only)")
	switch m.signer {
	case SignerKeystore:
		signerInfo = ui.ShortAddress(m.walletAddress)
	case SignerEnv:
		signerInfo = PrivateKeyEnv + " from environment"
	}

	content := fmt.Sprintf(
		"%s\n\n"+
			"Network: %s\n"+
			"Agent:   %s\n"+
			"Signer:  %s\n\n"+
			"%s\n"+
			"  %s\n"+
			"  %s\n"+
			"  %s",
		TitleStyle.Render(ui.SymbolTrophy+" Ready to battle!"),
		m.selectedChain,
		m.agentName,
		signerInfo,
		DimStyle.Render("Try these:"),
		"clawroyale status",
		"clawroyale register",
		"clawroyale watch",
	)

	b.WriteString(BoxStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render("  Press Enter to save config..."))
	return b.String()
}

// Result returns the wizard outcome once it has quit.
func (m WizardModel) Result() *SetupResult {
	return m.result
}

// RunWizard runs the setup wizard and writes the config file. The returned
// path is empty when the user cancelled.
func RunWizard(dataDir string) (*SetupResult, string, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, "", fmt.Errorf("failed to create data directory: %w", err)
	}

	m := NewWizard(dataDir)
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, "", err
	}

	result := finalModel.(WizardModel).result
	if result == nil || result.Cancelled {
		return result, "", nil
	}
	path, err := WriteConfig(dataDir, result)
	if err != nil {
		return result, "", err
	}
	return result, path, nil
}

// PrintEnvInstructions prints setup instructions for non-interactive environments
func PrintEnvInstructions() {
	fmt.Println("clawroyale reads its settings from ~/.clawroyale/config.yaml or the environment.")
	fmt.Println("")
	fmt.Println("For scripted use set:")
	fmt.Println("  PRIVATE_KEY=0x...          signer for write commands")
	fmt.Println("  RPC_URL=https://...        JSON-RPC endpoint (optional)")
	fmt.Println("  CLAW_ROYALE_ADDRESS=0x...  contract overrides (optional)")
	fmt.Println("")
	fmt.Println("Or run `clawroyale init` in a terminal for guided setup.")
}

// IsInteractive returns true if running in a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
