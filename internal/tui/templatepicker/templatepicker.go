// Package templatepicker lets the user pick an issue template discovered
// under .github/ISSUE_TEMPLATE and instantiate it as a new file in the
// repository root.
package templatepicker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"repotree/internal/templates"
	"repotree/internal/tui/components"
	"repotree/internal/tui/helpers"
	"repotree/internal/tui/styles"
)

type pickerState int

const (
	statePicking pickerState = iota
	stateNaming
	stateCreated
)

type (
	templatesLoadedMsg struct {
		tpls []templates.Template
		err  error
	}

	createdMsg struct {
		path string
		err  error
	}
)

type item struct {
	tpl templates.Template
}

func (i item) Title() string { return i.tpl.Name }

func (i item) Description() string {
	desc := i.tpl.About
	if len(i.tpl.Labels) > 0 {
		desc += "  [" + strings.Join(i.tpl.Labels, ", ") + "]"
	}
	return desc
}

func (i item) FilterValue() string { return i.tpl.Name }

// Model drives template selection and instantiation.
type Model struct {
	ctx    helpers.UIContext
	layout components.LayoutModel
	state  pickerState

	list    list.Model
	input   textinput.Model
	created string
	err     error
}

func New(ctx helpers.UIContext) *Model {
	tplList := list.New(nil, list.NewDefaultDelegate(), ctx.Width, ctx.Height-8)
	tplList.SetShowTitle(false)
	tplList.SetShowStatusBar(false)
	tplList.SetFilteringEnabled(true)
	tplList.SetShowHelp(false)

	input := textinput.New()
	input.Placeholder = "new file name"
	input.CharLimit = 128

	layout := components.NewLayout(components.LayoutConfig{
		Title:    "📋 Issue Templates",
		Subtitle: "Create a new file from a repository template",
		HelpText: "↑/↓ navigate • enter select • / filter • esc back",
	})

	return &Model{
		ctx:    ctx,
		layout: layout,
		state:  statePicking,
		list:   tplList,
		input:  input,
	}
}

func (m *Model) Init() tea.Cmd {
	root := m.ctx.RepoRoot
	return func() tea.Msg {
		tpls, err := templates.Discover(root)
		return templatesLoadedMsg{tpls: tpls, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.layout, _ = m.layout.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		return m, nil

	case templatesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, len(msg.tpls))
		for i, tpl := range msg.tpls {
			items[i] = item{tpl: tpl}
		}
		return m, m.list.SetItems(items)

	case createdMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateNaming
			return m, nil
		}
		m.created = msg.path
		m.state = stateCreated
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case statePicking:
		switch msg.String() {
		case "esc", "q":
			if m.list.FilterState() == list.Filtering {
				break
			}
			return m, func() tea.Msg { return helpers.NavigateToMainMenuMsg{} }
		case "enter":
			if m.list.FilterState() == list.Filtering {
				break
			}
			if sel, ok := m.list.SelectedItem().(item); ok {
				m.err = nil
				m.state = stateNaming
				m.input.SetValue(sel.tpl.FileName)
				return m, m.input.Focus()
			}
			return m, nil
		}

	case stateNaming:
		switch msg.String() {
		case "esc":
			m.err = nil
			m.state = statePicking
			m.input.Blur()
			return m, nil
		case "enter":
			sel, ok := m.list.SelectedItem().(item)
			if !ok {
				m.state = statePicking
				return m, nil
			}
			return m, m.createCmd(sel.tpl, m.input.Value())
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

	case stateCreated:
		switch msg.String() {
		case "esc", "q", "enter":
			return m, func() tea.Msg { return helpers.NavigateToMainMenuMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) createCmd(tpl templates.Template, fileName string) tea.Cmd {
	root := m.ctx.RepoRoot
	logger := m.ctx.Logger
	return func() tea.Msg {
		dest, err := templates.Instantiate(root, tpl, fileName)
		if err != nil {
			logger.Error("Template instantiation failed", "template", tpl.FileName, "error", err)
		} else {
			logger.Info("Created file from template", "template", tpl.FileName, "dest", dest)
		}
		return createdMsg{path: dest, err: err}
	}
}

func (m *Model) View() string {
	switch m.state {
	case stateNaming:
		m.layout = m.layout.SetHelpText("enter create • esc back to templates")
		content := "File name for the new document:\n\n" + styles.InputStyle.Render(m.input.View())
		if m.err != nil {
			content += "\n\n" + styles.ErrorStyle.Render("Error: "+m.err.Error())
		}
		return m.layout.Render(content)

	case stateCreated:
		m.layout = m.layout.SetHelpText("enter/esc return to menu")
		return m.layout.Render(fmt.Sprintf("Created %s", m.created))
	}

	m.layout = m.layout.SetHelpText("↑/↓ navigate • enter select • / filter • esc back")
	if m.err != nil {
		return m.layout.Render(styles.ErrorStyle.Render("Error: " + m.err.Error()))
	}
	if len(m.list.Items()) == 0 {
		return m.layout.Render("No issue templates found under .github/ISSUE_TEMPLATE.")
	}
	return m.layout.Render(m.list.View())
}
