package ui

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Printer writes styled, line-oriented command output.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Title(title string) {
	fmt.Fprintln(p.w, TitleStyle.Render(title))
	fmt.Fprintln(p.w, DimStyle.Render(Rule))
}

func (p *Printer) KV(label string, value any) {
	fmt.Fprintf(p.w, "%s %s\n", LabelStyle.Render(label+":"), ValueStyle.Render(fmt.Sprint(value)))
}

func (p *Printer) Amount(label, amount, symbol string) {
	fmt.Fprintf(p.w, "%s %s %s\n", LabelStyle.Render(label+":"), AmountStyle.Render(amount), symbol)
}

func (p *Printer) Hash(label, hash, url string) {
	line := fmt.Sprintf("%s %s", LabelStyle.Render(label+":"), HashStyle.Render(hash))
	if url != "" {
		line += "\n" + LabelStyle.Render("") + " " + DimStyle.Render(url)
	}
	fmt.Fprintln(p.w, line)
}

func (p *Printer) Step(name, status, detail string) {
	sym, style := StepStyle(status)
	line := fmt.Sprintf("  %s %-8s %s", style.Render(sym), name, style.Render(status))
	if detail != "" {
		line += " " + DimStyle.Render(detail)
	}
	fmt.Fprintln(p.w, line)
}

func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.w, SuccessStyle.Render(SymbolCheck+" "+msg))
}

func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.w, WarningStyle.Render("! "+msg))
}

func (p *Printer) Fail(msg string) {
	fmt.Fprintln(p.w, ErrorStyle.Render(SymbolCross+" "+msg))
}

func (p *Printer) Dim(msg string) {
	fmt.Fprintln(p.w, DimStyle.Render(msg))
}

func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) Rule() {
	fmt.Fprintln(p.w, DimStyle.Render(Rule))
}

// ShortAddress abbreviates a hex address as 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 12 || !strings.HasPrefix(addr, "0x") {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func (p *Printer) Table(t *Table) {
	fmt.Fprintln(p.w, t.Render(p.width()))
}

func (p *Printer) width() int {
	if f, ok := p.w.(interface{ Fd() uintptr }); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return DefaultWidth
}
