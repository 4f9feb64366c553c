// Package browser implements the interactive tree view: the live
// repository metadata tree on the left, a preview of the selected node on
// the right, and an inline search mode over both trees.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
	"github.com/muesli/termenv"

	"repotree/internal/editors"
	"repotree/internal/gitinfo"
	"repotree/internal/search"
	"repotree/internal/tree"
	"repotree/internal/tui/helpers"
	"repotree/internal/tui/styles"
)

// previewByteLimit caps how much of a file the preview pane reads.
const previewByteLimit = 256 * 1024

// Messages internal to the browser.
type (
	treeChangedMsg struct{}

	previewRenderedMsg struct {
		path    string
		content string
	}

	searchResultsMsg struct {
		results []search.Result
		err     error
	}

	editorFinishedMsg struct{ err error }
)

type row struct {
	node  *tree.Node
	depth int
}

// Model is the browser feature model.
type Model struct {
	ctx  helpers.UIContext
	ctrl *tree.Controller
	git  *gitinfo.Service

	rows     []row
	cursor   int
	offset   int
	expanded map[*tree.Node]bool

	searching bool
	input     textinput.Model
	results   []search.Result

	viewport     viewport.Model
	glamourStyle string
	previewPath  string

	events chan struct{}
	closed bool

	width  int
	height int
	err    error
}

// New builds the browser over the repository in ctx.RepoRoot. The caller
// must route all subsequent messages to the model and send
// helpers.NavigateToMainMenuMsg handling; the model closes its controller
// before emitting that message.
func New(ctx helpers.UIContext) (*Model, error) {
	ctrl, err := tree.NewController(ctx.RepoRoot, ctx.Config, &tree.Coordinator{})
	if err != nil {
		return nil, err
	}

	m := &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		git:      gitinfo.NewService(ctx.RepoRoot, 0),
		expanded: make(map[*tree.Node]bool),
		events:   make(chan struct{}, 1),
		width:    ctx.Width,
		height:   ctx.Height,
	}

	input := textinput.New()
	input.Placeholder = "search nodes"
	input.CharLimit = 128
	m.input = input

	m.viewport = viewport.New(ctx.Width/2, ctx.Height)
	m.viewport.MouseWheelEnabled = true

	ctrl.Subscribe(func(*tree.Node, string) {
		select {
		case m.events <- struct{}{}:
		default:
		}
	})

	m.refreshRows()
	return m, nil
}

func (m *Model) Init() tea.Cmd {
	if m.glamourStyle == "" {
		m.glamourStyle = detectGlamourStyle(50 * time.Millisecond)
		m.ctx.Logger.Debug("Glamour style selected", "style", m.glamourStyle)
	}
	return tea.Batch(m.waitForChange(), m.previewCmd())
}

// Close releases the live tree. Idempotent.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.ctrl.Close()
	close(m.events)
}

func (m *Model) waitForChange() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return treeChangedMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizePanes()
		return m, m.previewCmd()

	case treeChangedMsg:
		m.git.InvalidateStatuses()
		m.refreshRows()
		return m, tea.Batch(m.waitForChange(), m.previewCmd())

	case previewRenderedMsg:
		m.previewPath = msg.path
		m.viewport.SetContent(msg.content)
		m.viewport.GotoTop()
		return m, nil

	case searchResultsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.results = msg.results
		m.cursor = 0
		m.offset = 0
		return m, nil

	case editorFinishedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.git.InvalidateStatuses()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.input.Blur()
			return m, nil
		case "enter":
			query := m.input.Value()
			m.searching = false
			m.input.Blur()
			return m, m.searchCmd(query)
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "esc":
		if m.results != nil {
			// Leave search results first, the browser second.
			m.results = nil
			m.cursor = 0
			m.offset = 0
			return m, m.previewCmd()
		}
		m.Close()
		return m, func() tea.Msg { return helpers.NavigateToMainMenuMsg{} }

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.clampScroll()
		return m, m.previewCmd()

	case "down", "j":
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
		m.clampScroll()
		return m, m.previewCmd()

	case "enter", " ":
		return m, m.toggleOrOpen()

	case "o":
		if n := m.selectedNode(); n != nil && n.Kind() != tree.KindEntry {
			return m, m.openInEditor(n.Path())
		}
		return m, nil

	case "/":
		m.searching = true
		m.err = nil
		m.input.SetValue("")
		return m, m.input.Focus()

	case "r":
		if n := m.selectedNode(); n != nil && n.Has(tree.CapChildren) {
			m.ctrl.Dispatcher().Post(n.Refresh)
		}
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// toggleOrOpen expands or collapses the selected container, or opens a
// leaf in the editor.
func (m *Model) toggleOrOpen() tea.Cmd {
	if m.results != nil {
		if m.cursor < len(m.results) {
			n := m.results[m.cursor].Node
			if n.Kind() != tree.KindEntry {
				return m.openInEditor(n.Path())
			}
		}
		return nil
	}

	n := m.selectedNode()
	if n == nil {
		return nil
	}
	if !n.Has(tree.CapChildren) || n.Kind() == tree.KindEntry {
		if n.Kind() != tree.KindEntry {
			return m.openInEditor(n.Path())
		}
		return nil
	}

	if m.expanded[n] {
		delete(m.expanded, n)
	} else {
		m.expanded[n] = true
		if !n.ChildrenLoaded() {
			m.ctrl.Dispatcher().Call(n.LoadChildren)
		}
	}
	m.refreshRows()
	return nil
}

func (m *Model) openInEditor(path string) tea.Cmd {
	cmd, err := editors.Command(path)
	if err != nil {
		m.err = err
		return nil
	}
	m.ctx.Logger.Debug("Opening file in editor", "path", path)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

func (m *Model) searchCmd(query string) tea.Cmd {
	roots := m.ctrl.Roots()
	cfg := m.ctx.Config
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		results, err := search.Find(ctx, roots, query, search.Options{
			Limit:    cfg.SearchLimit,
			Workers:  cfg.SearchWorkers,
			SkipDirs: cfg.SkipPatterns,
		})
		return searchResultsMsg{results: results, err: err}
	}
}

// refreshRows reflattens the visible tree. Node instances that survived a
// refresh keep their expansion state; replaced instances fall back to
// collapsed, which matches the wholesale rebuild semantics underneath.
func (m *Model) refreshRows() {
	m.rows = m.rows[:0]
	for _, root := range m.ctrl.Roots() {
		m.appendRows(root, 0)
	}
	if m.cursor >= m.rowCount() {
		m.cursor = max(m.rowCount()-1, 0)
	}
	m.clampScroll()
}

func (m *Model) appendRows(n *tree.Node, depth int) {
	m.rows = append(m.rows, row{node: n, depth: depth})
	if !m.expanded[n] {
		return
	}
	for _, child := range n.Children() {
		m.appendRows(child, depth+1)
	}
}

func (m *Model) rowCount() int {
	if m.results != nil {
		return len(m.results)
	}
	return len(m.rows)
}

func (m *Model) selectedNode() *tree.Node {
	if m.results != nil {
		if m.cursor < len(m.results) {
			return m.results[m.cursor].Node
		}
		return nil
	}
	if m.cursor < len(m.rows) {
		return m.rows[m.cursor].node
	}
	return nil
}

func (m *Model) treeHeight() int {
	h := m.height - 6 // header, search line, help
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) clampScroll() {
	h := m.treeHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m *Model) resizePanes() {
	frameW, _ := styles.PaneStyle.GetFrameSize()
	half := max((m.width-2*frameW)/2, 20)
	m.viewport.Width = half
	m.viewport.Height = m.treeHeight()
}

// previewCmd renders the selected node into the preview pane off the UI
// loop. Markdown goes through glamour; everything else is wrapped as-is.
func (m *Model) previewCmd() tea.Cmd {
	n := m.selectedNode()
	if n == nil {
		return nil
	}

	if n.Kind() == tree.KindEntry {
		content := fmt.Sprintf("%s\n\ntransport: %s\nconfig:    %s\n", n.Text(), n.Transport(), n.Path())
		return func() tea.Msg { return previewRenderedMsg{path: n.Path(), content: content} }
	}
	if n.Has(tree.CapChildren) {
		content := n.Tooltip()
		return func() tea.Msg { return previewRenderedMsg{path: n.Path(), content: content} }
	}

	path := n.Path()
	width := m.viewport.Width
	style := m.glamourStyle
	return func() tea.Msg {
		return previewRenderedMsg{path: path, content: renderPreview(path, width, style)}
	}
}

func renderPreview(path string, width int, style string) string {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("cannot open %s: %v", path, err)
	}
	defer f.Close()

	buf := make([]byte, previewByteLimit)
	nRead, _ := f.Read(buf)
	content := string(buf[:nRead])

	if strings.EqualFold(filepath.Ext(path), ".md") {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			if out, err := renderer.Render(content); err == nil {
				return out
			}
		}
	}
	if width > 0 {
		content = wrap.String(content, width)
	}
	return content
}

// detectGlamourStyle attempts to detect terminal background using termenv,
// but will respect GLAMOUR_STYLE if set to a concrete value (not "auto").
// A timeout ensures we never hang on terminals that don't respond.
func detectGlamourStyle(timeout time.Duration) string {
	defaultStyle := "dark"

	style := os.Getenv("GLAMOUR_STYLE")
	if style != "" && style != "auto" {
		return style
	}

	ch := make(chan string, 1)
	go func() {
		out := termenv.NewOutput(os.Stdout)
		if out.HasDarkBackground() {
			ch <- "dark"
			return
		}
		ch <- "light"
	}()

	select {
	case s := <-ch:
		return s
	case <-time.After(timeout):
		return defaultStyle
	}
}

var iconGlyphs = map[string]string{
	"heart":          "❤️",
	"shield":         "🛡️",
	"robot":          "🤖",
	"copilot":        "✈️",
	"template":       "📋",
	"lock":           "🔒",
	"handshake":      "🤝",
	"pencil":         "✏️",
	"lifebuoy":       "🛟",
	"plug":           "🔌",
	"gear":           "⚙️",
	"yaml":           "📑",
	"markdown":       "📝",
	"json":           "🧾",
	"file":           "📄",
	"folder":         "📁",
	"folder-missing": "🚫",
	"server-remote":  "🌐",
	"server-local":   "🖥️",
}

func glyph(n *tree.Node) string {
	if g, ok := iconGlyphs[n.Icon()]; ok {
		return g
	}
	return "📄"
}

var stateBadges = map[gitinfo.FileState]string{
	gitinfo.StateModified:  "M",
	gitinfo.StateAdded:     "A",
	gitinfo.StateDeleted:   "D",
	gitinfo.StateRenamed:   "R",
	gitinfo.StateUntracked: "U",
	gitinfo.StateConflict:  "!",
}

func (m *Model) View() string {
	var left strings.Builder

	if m.searching {
		left.WriteString(styles.InputStyle.Render(m.input.View()))
		left.WriteString("\n")
	}

	if m.results != nil {
		m.renderResults(&left)
	} else {
		m.renderRows(&left)
	}

	leftPane := styles.PaneFocusedStyle.Render(left.String())
	rightPane := styles.PaneStyle.Render(m.viewport.View())
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	help := styles.HelpStyle.Render("↑/↓ move · enter expand/open · o editor · / search · r refresh · q back")
	if m.err != nil {
		help = styles.ErrorStyle.Render("Error: "+m.err.Error()) + "\n" + help
	}
	return panes + "\n" + help
}

func (m *Model) renderRows(b *strings.Builder) {
	h := m.treeHeight()
	end := min(m.offset+h, len(m.rows))
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		n := r.node

		marker := "  "
		if n.Has(tree.CapChildren) && n.Kind() != tree.KindFile {
			if m.expanded[n] {
				marker = "▾ "
			} else {
				marker = "▸ "
			}
		}

		line := strings.Repeat("  ", r.depth) + marker + glyph(n) + " " + n.Text()
		if n.Kind() == tree.KindEntry {
			line += " " + styles.BadgeStyle.Render("["+n.Transport().String()+"]")
		}
		if badge, ok := stateBadges[m.git.StateFor(n.Path())]; ok && n.Kind() == tree.KindFile {
			line += " " + styles.BadgeStyle.Render(badge)
		}

		switch {
		case n.Missing():
			line = styles.MissingStyle.Render(line + " (missing)")
		case i == m.cursor:
			line = styles.CursorRowStyle.Render(line)
		case n.Kind() == tree.KindFolder || n.Kind() == tree.KindRoot:
			line = styles.FolderStyle.Render(line)
		}

		b.WriteString(line)
		b.WriteString("\n")
	}
}

func (m *Model) renderResults(b *strings.Builder) {
	b.WriteString(styles.MatchStyle.Render(fmt.Sprintf("%d matches", len(m.results))))
	b.WriteString("\n")

	h := m.treeHeight() - 1
	end := min(m.offset+h, len(m.results))
	for i := m.offset; i < end; i++ {
		line := strings.Join(m.results[i].Trace, " / ")
		if i == m.cursor {
			line = styles.CursorRowStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}
