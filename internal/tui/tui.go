// Package tui provides the terminal user interface for repotree.
//
// The interface is built on Bubble Tea with Lipgloss styling and follows a
// state-based architecture: a main navigation menu hands off to
// feature-specific models (the live tree browser, the issue template
// picker), and those models navigate back through a shared message type.
//
// Key components:
//   - MainModel: root model that orchestrates the application
//   - AppState: enumeration of possible application states
//   - Navigation system: message-based transitions between views
package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"repotree/internal/config"
	"repotree/internal/logging"
	"repotree/internal/tui/browser"
	"repotree/internal/tui/components"
	"repotree/internal/tui/helpers"
	"repotree/internal/tui/templatepicker"
)

// AppState represents the current state of the TUI application.
type AppState int

const (
	// StateMenu represents the main navigation menu
	StateMenu AppState = iota
	StateError
	StateQuitting

	StateBrowser
	StateTemplates
)

// Custom messages for internal state transitions
type (
	NavigateMsg struct {
		State AppState
	}

	ErrorMsg struct {
		Err error
	}
)

// MenuItemModel is implemented by every model a menu entry can activate.
type MenuItemModel interface {
	tea.Model
}

type item struct {
	title       string
	description string
	state       AppState
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.description }
func (i item) FilterValue() string { return i.title }

// MainModel is the root model for the TUI application. It owns the main
// menu, creates feature models on demand, and routes messages to whichever
// model is active.
type MainModel struct {
	repoRoot  string
	config    *config.Config
	logger    *logging.AppLogger
	state     AppState
	prevState AppState

	menu list.Model

	// Current active model, always created fresh on selection.
	activeModel MenuItemModel

	layout components.LayoutModel

	windowWidth  int
	windowHeight int

	err error
}

func NewMainModel(repoRoot string, cfg *config.Config, logger *logging.AppLogger) *MainModel {
	items := []list.Item{
		item{
			title:       "🌳  Browse repository tree",
			description: "Explore the live .github and MCP configuration trees.\nThe view follows file changes, shows git status, and searches across both trees.",
			state:       StateBrowser,
		},
		item{
			title:       "📋  New file from template",
			description: "Pick an issue template from .github/ISSUE_TEMPLATE and create a new file from it.",
			state:       StateTemplates,
		},
	}

	menuList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	menuList.SetShowTitle(false)
	menuList.SetShowStatusBar(false)
	menuList.SetFilteringEnabled(true)
	menuList.SetShowHelp(false)

	layout := components.NewLayout(components.LayoutConfig{
		MarginX:  2,
		MarginY:  1,
		MaxWidth: 120,
	})

	return &MainModel{
		repoRoot:  repoRoot,
		config:    cfg,
		logger:    logger,
		state:     StateMenu,
		prevState: StateMenu,
		menu:      menuList,
		layout:    layout,
	}
}

func (m *MainModel) Init() tea.Cmd {
	m.logger.Info("MainModel initialized", "repoRoot", m.repoRoot)
	return nil
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	m.layout, _ = m.layout.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height

		if msg.Width > 0 && msg.Height > 0 {
			m.menu.SetSize(msg.Width-4, msg.Height-10)
			if m.activeModel != nil {
				updated, modelCmd := m.activeModel.Update(msg)
				m.activeModel = updated.(MenuItemModel)
				if modelCmd != nil {
					cmds = append(cmds, modelCmd)
				}
			}
		} else {
			m.logger.Warn("Invalid window dimensions received", "width", msg.Width, "height", msg.Height)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.closeActive()
			m.state = StateQuitting
			return m, tea.Quit
		}

		switch m.state {
		case StateMenu:
			switch msg.String() {
			case "q":
				if m.menu.FilterState() != list.Filtering {
					m.state = StateQuitting
					return m, tea.Quit
				}
				m.menu, cmd = m.menu.Update(msg)
				return m, cmd
			case "enter":
				if m.menu.FilterState() != list.Filtering {
					if selected, ok := m.menu.SelectedItem().(item); ok {
						m.logger.Debug("Menu selection", "item", selected.title)
						return m.handleMenuSelection(selected)
					}
				}
				m.menu, cmd = m.menu.Update(msg)
				return m, cmd
			default:
				m.menu, cmd = m.menu.Update(msg)
				return m, cmd
			}

		case StateError:
			if msg.String() == "esc" {
				m.state = m.prevState
				m.err = nil
				m.layout = m.layout.ClearError()
				return m, nil
			}

		case StateBrowser, StateTemplates:
			if m.activeModel != nil {
				updated, modelCmd := m.activeModel.Update(msg)
				m.activeModel = updated.(MenuItemModel)
				return m, modelCmd
			}
		}

	case list.FilterMatchesMsg:
		if m.state == StateMenu {
			m.menu, cmd = m.menu.Update(msg)
			return m, cmd
		}

	case NavigateMsg:
		m.logger.Debug("State transition", "from", int(m.state), "to", int(msg.State))
		m.prevState = m.state
		m.state = msg.State
		m.err = nil
		m.layout = m.layout.ClearError()
		return m, nil

	case ErrorMsg:
		m.logger.Error("Application error occurred", "error", msg.Err)
		m.err = msg.Err
		m.prevState = m.state
		m.state = StateError
		m.layout = m.layout.SetError(msg.Err)
		return m, nil

	case helpers.NavigateToMainMenuMsg:
		return m.returnToMenu(), nil

	default:
		if m.activeModel != nil {
			updated, modelCmd := m.activeModel.Update(msg)
			if model, ok := updated.(MenuItemModel); ok {
				m.activeModel = model
				return m, modelCmd
			}
			m.logger.Error("Active model returned invalid type, returning to menu")
			return m.returnToMenu(), nil
		}
	}

	return m, tea.Batch(cmds...)
}

// handleMenuSelection creates a fresh feature model for the selected item,
// initializes it, and navigates to its state.
func (m *MainModel) handleMenuSelection(selected item) (tea.Model, tea.Cmd) {
	model, err := m.newFeatureModel(selected.state)
	if err != nil {
		return m, func() tea.Msg { return ErrorMsg{Err: err} }
	}
	if model == nil {
		return m, nil
	}
	m.activeModel = model

	var cmds []tea.Cmd
	if initCmd := model.Init(); initCmd != nil {
		cmds = append(cmds, initCmd)
	}

	if m.windowWidth > 0 && m.windowHeight > 0 {
		sizeMsg := tea.WindowSizeMsg{Width: m.windowWidth, Height: m.windowHeight}
		updated, sizeCmd := model.Update(sizeMsg)
		m.activeModel = updated.(MenuItemModel)
		if sizeCmd != nil {
			cmds = append(cmds, sizeCmd)
		}
	}

	cmds = append(cmds, NavigateTo(selected.state))
	return m, tea.Batch(cmds...)
}

// GetUIContext creates a UI context with current dimensions and app state.
func (m *MainModel) GetUIContext() helpers.UIContext {
	return helpers.NewUIContext(m.windowWidth, m.windowHeight, m.repoRoot, m.config, m.logger)
}

func (m *MainModel) newFeatureModel(state AppState) (MenuItemModel, error) {
	if !m.hasValidDimensions() {
		m.logger.Warn("Cannot initialize model without valid window dimensions", "state", state)
	}

	ctx := m.GetUIContext()

	switch state {
	case StateBrowser:
		m.logger.Debug("Creating fresh browser model")
		return browser.New(ctx)

	case StateTemplates:
		m.logger.Debug("Creating fresh template picker model")
		return templatepicker.New(ctx), nil

	default:
		m.logger.Warn("Unknown state requested for model initialization", "state", state)
		return nil, nil
	}
}

func (m *MainModel) View() string {
	if m.state == StateQuitting {
		m.layout = m.layout.SetTitle("👋 Goodbye!").SetSubtitle("").SetHelpText("")
		return m.layout.Render("Thank you for using repotree.")
	}

	switch m.state {
	case StateMenu:
		return m.viewMenu()
	case StateError:
		return m.viewError()
	default:
		if m.activeModel != nil {
			return m.activeModel.View()
		}
		return m.viewMenu()
	}
}

func (m *MainModel) viewMenu() string {
	m.layout = m.layout.
		SetTitle("🌳 repotree").
		SetSubtitle("Live view of repository metadata and MCP server configuration").
		SetHelpText("↑/↓ to navigate • Enter to select • / to filter • q to quit • Ctrl+C to force quit")
	return m.layout.Render(m.menu.View())
}

func (m *MainModel) viewError() string {
	m.layout = m.layout.
		SetTitle("❌ Error").
		SetSubtitle("Something went wrong").
		SetHelpText("Press Esc to return • Ctrl+C to quit")

	content := ""
	if m.err != nil {
		content = m.err.Error()
	}
	return m.layout.Render(content)
}

func (m *MainModel) hasValidDimensions() bool {
	return m.windowWidth > 0 && m.windowHeight > 0
}

// closeActive releases resources held by the active model. The browser
// owns filesystem watchers and must be closed before the program exits.
func (m *MainModel) closeActive() {
	if b, ok := m.activeModel.(*browser.Model); ok {
		b.Close()
	}
}

// returnToMenu returns to the main menu and clears transient state.
func (m *MainModel) returnToMenu() tea.Model {
	m.state = StateMenu
	m.activeModel = nil
	m.err = nil
	m.layout = m.layout.ClearError()
	return m
}

// NavigateTo creates a navigation command for the given state.
func NavigateTo(state AppState) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{State: state}
	}
}
