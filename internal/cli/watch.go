package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/tournament"
	"github.com/yolodolo42/clawroyale/internal/ui"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live tournament dashboard",
		Long:  `Poll the tournament contract and show status, prize pool and the player table until you quit.`,
		RunE:  runWatch,
	}
	cmd.Flags().Duration("interval", 0, "Refresh interval (default from poll_interval)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = viper.GetDuration("poll_interval")
	}

	ctx, cancel := context.WithCancel(contextFor(cmd))
	defer cancel()

	svc := a.reader()
	poller := tournament.NewPoller(svc, tournament.WithInterval(interval))
	go poller.Run(ctx)

	m := newWatchModel(ctx, a.config.Name, poller, svc)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// snapshotSource is the part of tournament.Poller the dashboard reads.
type snapshotSource interface {
	Latest() (*tournament.State, error)
	Updated() <-chan struct{}
	Refresh(ctx context.Context) (*tournament.State, error)
}

type playerLister interface {
	Players(ctx context.Context) ([]contracts.Player, error)
}

type stateMsg struct {
	state *tournament.State
	err   error
}

type playersMsg struct {
	players []contracts.Player
	err     error
}

type watchModel struct {
	ctx     context.Context
	network string
	source  snapshotSource
	players playerLister

	spinner spinner.Model
	table   table.Model

	state      *tournament.State
	err        error
	playersErr error
	lastCount  string
	quitting   bool
}

func newWatchModel(ctx context.Context, network string, source snapshotSource, players playerLister) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ui.SpinnerStyle

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Address", Width: 42},
			{Title: "Score", Width: 8},
			{Title: "State", Width: 10},
			{Title: "Referrer", Width: 13},
		}),
		table.WithHeight(10),
		table.WithFocused(true),
	)

	return watchModel{
		ctx:     ctx,
		network: network,
		source:  source,
		players: players,
		spinner: s,
		table:   t,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

func (m watchModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.source.Updated():
			st, err := m.source.Latest()
			return stateMsg{state: st, err: err}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m watchModel) fetchPlayers() tea.Cmd {
	return func() tea.Msg {
		players, err := m.players.Players(m.ctx)
		return playersMsg{players: players, err: err}
	}
}

func (m watchModel) refresh() tea.Cmd {
	return func() tea.Msg {
		_, _ = m.source.Refresh(m.ctx)
		return nil
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case stateMsg:
		m.err = msg.err
		cmds := []tea.Cmd{m.waitForUpdate()}
		if msg.state != nil {
			m.state = msg.state
			// Refetch players when the count moves, and on every update while active.
			count := msg.state.PlayerCount.String()
			if count != m.lastCount || msg.state.Status == contracts.StatusActive {
				m.lastCount = count
				cmds = append(cmds, m.fetchPlayers())
			}
		}
		return m, tea.Batch(cmds...)

	case playersMsg:
		m.playersErr = msg.err
		if msg.err == nil {
			m.table.SetRows(playerRows(msg.players))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func playerRows(players []contracts.Player) []table.Row {
	rows := make([]table.Row, 0, len(players))
	for i, p := range players {
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			p.EthAddress.Hex(),
			p.Score.String(),
			playerState(p),
			referrer(p.Referrer),
		})
	}
	return rows
}

func (m watchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render(ui.SymbolClaw + " Claw Royale"))
	b.WriteString(ui.DimStyle.Render("  " + m.network))
	b.WriteString("\n\n")

	if m.state == nil {
		if m.err != nil {
			b.WriteString(ui.ErrorStyle.Render(ui.SymbolCross + " " + m.err.Error()))
		} else {
			b.WriteString(m.spinner.View() + " Loading tournament state...")
		}
		b.WriteString("\n\n")
		b.WriteString(ui.HelpStyle.Render("r refresh • q quit"))
		return b.String()
	}

	st := m.state
	status := ui.StatusStyle(st.Status.APIName()).Render(st.Status.String())
	fmt.Fprintf(&b, "%s %s\n", ui.LabelStyle.Render("Status:"), status)
	fmt.Fprintf(&b, "%s %s\n", ui.LabelStyle.Render("Players:"), ui.ValueStyle.Render(st.PlayerCount.String()))
	fmt.Fprintf(&b, "%s %s USDC\n", ui.LabelStyle.Render("Entry fee:"), ui.AmountStyle.Render(chain.FormatUSDC(st.EntryFee)))
	fmt.Fprintf(&b, "%s %s USDC\n", ui.LabelStyle.Render("Prize pool:"), ui.AmountStyle.Render(chain.FormatUSDC(st.PrizePool)))
	fmt.Fprintf(&b, "%s %s USDC\n", ui.LabelStyle.Render("Est. payout:"), ui.AmountStyle.Render(chain.FormatUSDC(st.EstimatedPayout())))
	b.WriteString("\n")

	if m.playersErr != nil {
		b.WriteString(ui.WarningStyle.Render("! players: " + m.playersErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	help := "↑/↓ scroll • r refresh • q quit • updated " + st.FetchedAt.Local().Format(time.TimeOnly)
	if m.err != nil {
		help = ui.WarningStyle.Render("! "+m.err.Error()) + "\n" + help
	}
	b.WriteString(ui.HelpStyle.Render(help))
	return b.String()
}
