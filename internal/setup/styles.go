package setup

import "github.com/yolodolo42/clawroyale/internal/ui"

var (
	BoxStyle      = ui.BoxStyle
	TitleStyle    = ui.TitleStyle
	SubtitleStyle = ui.SubtitleStyle
	SuccessStyle  = ui.SuccessStyle
	DimStyle      = ui.DimStyle
	ErrorStyle    = ui.ErrorStyle
	HelpStyle     = ui.HelpStyle
	SpinnerStyle  = ui.SpinnerStyle

	Checkmark = SuccessStyle.Render(ui.SymbolCheck)
)
