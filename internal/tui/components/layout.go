package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"repotree/internal/tui/styles"
)

type LayoutConfig struct {
	Title    string
	Subtitle string
	HelpText string
	MarginX  int
	MarginY  int
	MaxWidth int
}

// LayoutModel renders a titled frame around feature content: title,
// subtitle, the content itself, an optional error line, and help text,
// all wrapped to the available width.
type LayoutModel struct {
	config LayoutConfig
	width  int
	height int
	err    error
}

func NewLayout(config LayoutConfig) LayoutModel {
	if config.MarginX == 0 {
		config.MarginX = 2
	}
	if config.MarginY == 0 {
		config.MarginY = 1
	}
	if config.MaxWidth == 0 {
		config.MaxWidth = 100
	}
	return LayoutModel{config: config}
}

func (m LayoutModel) Update(msg tea.Msg) (LayoutModel, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.height = size.Height
	}
	return m, nil
}

func (m LayoutModel) SetTitle(title string) LayoutModel {
	m.config.Title = title
	return m
}

func (m LayoutModel) SetSubtitle(subtitle string) LayoutModel {
	m.config.Subtitle = subtitle
	return m
}

func (m LayoutModel) SetHelpText(helpText string) LayoutModel {
	m.config.HelpText = helpText
	return m
}

func (m LayoutModel) SetError(err error) LayoutModel {
	m.err = err
	return m
}

func (m LayoutModel) ClearError() LayoutModel {
	m.err = nil
	return m
}

func (m LayoutModel) GetError() error {
	return m.err
}

func (m LayoutModel) Render(content string) string {
	sections := []string{}
	contentWidth := m.ContentWidth()

	if m.config.Title != "" {
		sections = append(sections, styles.TitleStyle.Render(m.wrapText(m.config.Title, contentWidth)))
	}
	if m.config.Subtitle != "" {
		sections = append(sections, styles.SubtitleStyle.Render(m.wrapText(m.config.Subtitle, contentWidth)))
	}
	if content != "" {
		sections = append(sections, styles.NormalTextStyle.Render(content))
	}
	if m.err != nil {
		sections = append(sections, styles.ErrorStyle.Render(m.wrapText("Error: "+m.err.Error(), contentWidth)))
	}
	if m.config.HelpText != "" {
		sections = append(sections, styles.HelpStyle.Render(m.wrapText(m.config.HelpText, contentWidth)))
	}

	return m.addMargins(strings.Join(sections, "\n\n"))
}

func (m LayoutModel) wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines[i] = wordwrap.String(line, width)
	}
	return strings.Join(lines, "\n")
}

func (m LayoutModel) addMargins(content string) string {
	lines := strings.Split(content, "\n")
	marginLeft := strings.Repeat(" ", m.config.MarginX)
	for i, line := range lines {
		lines[i] = marginLeft + line
	}

	margin := strings.Repeat("\n", m.config.MarginY)
	return margin + strings.Join(lines, "\n") + margin
}

func (m LayoutModel) ContentWidth() int {
	available := m.width - (m.config.MarginX * 2)
	if available > m.config.MaxWidth {
		return m.config.MaxWidth
	}
	if available < 40 {
		return 40 // Minimum readable width
	}
	return available
}

func (m LayoutModel) ContentHeight() int {
	return m.height - (m.config.MarginY * 2) - 6 // Reserve space for sections
}

func (m LayoutModel) HasSufficientSpace() bool {
	return m.ContentWidth() >= 40 && m.ContentHeight() >= 10
}
