package chat

import "github.com/charmbracelet/lipgloss"

type theme struct {
	header     lipgloss.Style
	headerMeta lipgloss.Style
	divider    lipgloss.Style
	userBox    lipgloss.Style
	userTitle  lipgloss.Style
	botBox     lipgloss.Style
	botTitle   lipgloss.Style
	reactions  lipgloss.Style
	edited     lipgloss.Style
	errorBox   lipgloss.Style
	errorTitle lipgloss.Style
	status     lipgloss.Style
	statusBusy lipgloss.Style
	statusErr  lipgloss.Style
	hint       lipgloss.Style
	inputLabel lipgloss.Style
	input      lipgloss.Style
	viewport   lipgloss.Style
}

// defaultTheme is a board-like palette: blue chrome, user cards in amber,
// bot cards in green.
func defaultTheme() theme {
	card := func(accent string) lipgloss.Style {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(accent)).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	}
	tag := func(accent string) lipgloss.Style {
		return lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color(accent)).
			Padding(0, 1)
	}

	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("25")),
		headerMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("153")),
		divider: lipgloss.NewStyle().
			Foreground(lipgloss.Color("24")),
		userBox:   card("179"),
		userTitle: tag("179"),
		botBox:    card("71"),
		botTitle:  tag("71"),
		reactions: lipgloss.NewStyle().
			Foreground(lipgloss.Color("186")),
		edited: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("242")),
		errorBox: card("167").
			Foreground(lipgloss.Color("203")).
			Background(lipgloss.Color("52")),
		errorTitle: tag("160").
			Foreground(lipgloss.Color("231")),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		statusBusy: lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true),
		statusErr: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		inputLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("153")),
		input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("25")).
			Padding(0, 1),
		viewport: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("24")).
			Padding(0, 1),
	}
}
