package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Prompt is a labelled single-line input with optional validation.
type Prompt struct {
	label    string
	input    textinput.Model
	validate func(string) error
	err      error
	focused  bool
}

type PromptOption func(*Prompt)

func WithPlaceholder(s string) PromptOption {
	return func(p *Prompt) { p.input.Placeholder = s }
}

// WithMask hides input, for passwords and private keys.
func WithMask() PromptOption {
	return func(p *Prompt) {
		p.input.EchoMode = textinput.EchoPassword
		p.input.EchoCharacter = '•'
	}
}

func WithValidator(fn func(string) error) PromptOption {
	return func(p *Prompt) { p.validate = fn }
}

func WithCharLimit(n int) PromptOption {
	return func(p *Prompt) { p.input.CharLimit = n }
}

func NewPrompt(label string, opts ...PromptOption) Prompt {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 200
	ti.Width = 50

	p := Prompt{label: label, input: ti}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p *Prompt) Focus() tea.Cmd {
	p.focused = true
	return p.input.Focus()
}

func (p *Prompt) Blur() {
	p.focused = false
	p.input.Blur()
}

func (p *Prompt) SetWidth(w int) {
	p.input.Width = max(10, w-4)
}

// Value returns the trimmed input.
func (p *Prompt) Value() string {
	return strings.TrimSpace(p.input.Value())
}

func (p *Prompt) SetValue(s string) {
	p.input.SetValue(s)
}

func (p *Prompt) Reset() {
	p.input.Reset()
	p.err = nil
}

// Err is the last validation failure.
func (p *Prompt) Err() error {
	return p.err
}

// Submit validates the current value. The error is also kept for View.
func (p *Prompt) Submit() (string, error) {
	v := p.Value()
	p.err = nil
	if p.validate != nil {
		p.err = p.validate(v)
	}
	return v, p.err
}

func (p *Prompt) Update(msg tea.Msg) (*Prompt, tea.Cmd) {
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *Prompt) View() string {
	var b strings.Builder
	if p.label != "" {
		b.WriteString(TitleStyle.Render(p.label))
		b.WriteString("\n\n")
	}
	style := SelectorDim
	if p.focused {
		style = PromptStyle
	}
	b.WriteString(style.Render(SymbolPrompt) + " " + p.input.View())
	if p.err != nil {
		b.WriteString("\n\n" + ErrorStyle.Render(SymbolCross+" "+p.err.Error()))
	}
	return b.String()
}
