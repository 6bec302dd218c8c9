package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agenticgokit/agtrace/internal/trace"
)

const (
	CtrlC   = "ctrl+c"
	KeyUp   = "up"
	KeyDown = "down"
)

// ViewMode represents the current viewing mode
type ViewMode int

const (
	TreeView ViewMode = iota
	DetailView
)

// FocusArea represents which panel is currently focused
type FocusArea int

const (
	FocusTree FocusArea = iota
	FocusDetails
)

// DetailTab represents the active tab in the details panel
type DetailTab int

const (
	TabOverview DetailTab = iota
	TabContent
	TabIssues
	TabMetrics
	TabMetadata
)

var tabNames = []string{"Overview", "Content", "Issues", "Metrics", "Metadata"}

// Model is the bubbletea model for the node viewer
type Model struct {
	run *trace.TraceRun

	roots          []*TreeNode
	visibleNodes   []*TreeNode
	cursor         int
	viewMode       ViewMode
	focusArea      FocusArea
	selectedTab    DetailTab
	treeViewport   viewport.Model
	detailViewport viewport.Model
	ready          bool
	width          int
	height         int

	issueNodes int

	// Search state
	searchMode    bool
	searchQuery   string
	searchMatches []*TreeNode
	searchIndex   int
}

// NewTraceViewer creates a viewer for an analyzed run
func NewTraceViewer(run *trace.TraceRun) Model {
	roots := BuildNodeTree(run)
	m := Model{
		run:            run,
		roots:          roots,
		visibleNodes:   FlattenTree(roots),
		viewMode:       TreeView,
		focusArea:      FocusTree,
		selectedTab:    TabOverview,
		treeViewport:   viewport.New(40, 10),
		detailViewport: viewport.New(40, 10),
		searchIndex:    -1,
	}
	for _, n := range m.visibleNodes {
		if n.HasIssues() {
			m.issueNodes++
		}
	}
	return m
}

// Run starts the viewer in the alternate screen and blocks until quit.
func Run(run *trace.TraceRun) error {
	p := tea.NewProgram(NewTraceViewer(run), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.viewMode {
		case TreeView:
			if m.searchMode {
				return m.updateSearchInput(msg)
			}
			return m.updateTreeView(msg)
		case DetailView:
			return m.updateDetailView(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		availableWidth := msg.Width - 6
		availableHeight := msg.Height - 8
		if availableHeight < 8 {
			availableHeight = 8
		}
		leftWidth := (availableWidth * 45) / 100
		rightWidth := availableWidth - leftWidth

		if !m.ready {
			m.treeViewport = viewport.New(leftWidth-4, availableHeight-3)
			m.detailViewport = viewport.New(rightWidth-4, availableHeight-4)
			m.ready = true
		} else {
			m.treeViewport.Width = leftWidth - 4
			m.treeViewport.Height = availableHeight - 3
			m.detailViewport.Width = rightWidth - 4
			m.detailViewport.Height = availableHeight - 4
		}
		m.updateDetailViewport()
	}

	switch m.focusArea {
	case FocusTree:
		m.treeViewport, cmd = m.treeViewport.Update(msg)
	case FocusDetails:
		m.detailViewport, cmd = m.detailViewport.Update(msg)
	}

	return m, cmd
}

func (m Model) updateTreeView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", CtrlC:
		return m, tea.Quit

	case "tab", "shift+tab":
		m.focusArea = (m.focusArea + 1) % 2
		return m, nil

	case "left":
		m.selectedTab = (m.selectedTab + DetailTab(len(tabNames)) - 1) % DetailTab(len(tabNames))
	case "right":
		m.selectedTab = (m.selectedTab + 1) % DetailTab(len(tabNames))
	case "1", "2", "3", "4", "5":
		m.selectedTab = DetailTab(msg.String()[0] - '1')

	case "h":
		m = m.handleTreeCollapse()
	case "l", " ":
		m = m.handleTreeToggle()

	case "esc":
		if len(m.searchMatches) > 0 {
			m.searchQuery = ""
			m.searchMatches = nil
			m.searchIndex = -1
			return m, nil
		}
		return m, tea.Quit

	case KeyUp, "k", KeyDown, "j", "home", "g", "end", "G":
		if m.focusArea == FocusDetails {
			var cmd tea.Cmd
			m.detailViewport, cmd = m.detailViewport.Update(msg)
			return m, cmd
		}
		m = m.handleTreeNavigation(msg.String())

	case "enter", "d":
		if m.cursor < len(m.visibleNodes) {
			m.viewMode = DetailView
		}

	case "/":
		m.searchMode = true
		m.searchQuery = ""
		return m, nil

	case "n":
		if len(m.searchMatches) > 0 {
			m.searchIndex = (m.searchIndex + 1) % len(m.searchMatches)
			m = m.jumpToSearchMatch()
		}
	case "N":
		if len(m.searchMatches) > 0 {
			if m.searchIndex <= 0 {
				m.searchIndex = len(m.searchMatches) - 1
			} else {
				m.searchIndex--
			}
			m = m.jumpToSearchMatch()
		}

	case "e":
		m = m.jumpToNextIssue()
	case "E":
		m = m.jumpToPreviousIssue()
	}

	m.updateDetailViewport()
	return m, nil
}

// updateSearchInput handles keyboard input in search mode
func (m Model) updateSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchMode = false
		m.searchQuery = ""
		return m, nil

	case "enter":
		m.searchMode = false
		m = m.executeSearch()
		m.updateDetailViewport()
		return m, nil

	case "backspace":
		if len(m.searchQuery) > 0 {
			r := []rune(m.searchQuery)
			m.searchQuery = string(r[:len(r)-1])
		}
		return m, nil

	case CtrlC:
		return m, tea.Quit

	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.searchQuery += string(msg.Runes)
			if msg.Type == tea.KeySpace {
				m.searchQuery += " "
			}
		}
		return m, nil
	}
}

// executeSearch expands the whole tree and collects matching nodes
func (m Model) executeSearch() Model {
	m.searchMatches = nil
	m.searchIndex = -1

	query := strings.ToLower(strings.TrimSpace(m.searchQuery))
	if query == "" {
		return m
	}

	for _, node := range FlattenAll(m.roots) {
		if node.matches(query) {
			m.searchMatches = append(m.searchMatches, node)
		}
	}

	if len(m.searchMatches) > 0 {
		m.searchIndex = 0
		m = m.jumpToSearchMatch()
	}
	return m
}

// FlattenAll lists every node regardless of expansion state.
func FlattenAll(roots []*TreeNode) []*TreeNode {
	var out []*TreeNode
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

func (m Model) handleTreeNavigation(key string) Model {
	switch key {
	case KeyUp, "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case KeyDown, "j":
		if m.cursor < len(m.visibleNodes)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		if len(m.visibleNodes) > 0 {
			m.cursor = len(m.visibleNodes) - 1
		}
	}
	return m
}

func (m Model) handleTreeCollapse() Model {
	if m.cursor >= len(m.visibleNodes) {
		return m
	}
	node := m.visibleNodes[m.cursor]
	if node.HasChildren() && node.Expanded {
		node.Expanded = false
		m.visibleNodes = FlattenTree(m.roots)
		return m
	}
	if node.Parent != nil {
		m = m.moveCursorTo(node.Parent)
	}
	return m
}

func (m Model) handleTreeToggle() Model {
	if m.cursor < len(m.visibleNodes) {
		node := m.visibleNodes[m.cursor]
		if node.HasChildren() {
			node.ToggleExpanded()
			m.visibleNodes = FlattenTree(m.roots)
		}
	}
	return m
}

func (m Model) moveCursorTo(target *TreeNode) Model {
	for i, n := range m.visibleNodes {
		if n == target {
			m.cursor = i
			m.focusArea = FocusTree
			break
		}
	}
	return m
}

func (m Model) jumpToSearchMatch() Model {
	if m.searchIndex < 0 || m.searchIndex >= len(m.searchMatches) {
		return m
	}
	match := m.searchMatches[m.searchIndex]
	m = m.ensureNodeVisible(match)
	return m.moveCursorTo(match)
}

// jumpToNextIssue moves to the next node carrying issues, wrapping around
func (m Model) jumpToNextIssue() Model {
	if m.issueNodes == 0 {
		return m
	}
	all := FlattenAll(m.roots)
	start := m.indexIn(all)
	for step := 1; step <= len(all); step++ {
		n := all[(start+step)%len(all)]
		if n.HasIssues() {
			m = m.ensureNodeVisible(n)
			return m.moveCursorTo(n)
		}
	}
	return m
}

// jumpToPreviousIssue moves to the previous node carrying issues
func (m Model) jumpToPreviousIssue() Model {
	if m.issueNodes == 0 {
		return m
	}
	all := FlattenAll(m.roots)
	start := m.indexIn(all)
	for step := 1; step <= len(all); step++ {
		n := all[(start-step+2*len(all))%len(all)]
		if n.HasIssues() {
			m = m.ensureNodeVisible(n)
			return m.moveCursorTo(n)
		}
	}
	return m
}

// indexIn returns the cursor node's position in nodes, or -1.
func (m Model) indexIn(nodes []*TreeNode) int {
	if m.cursor >= len(m.visibleNodes) {
		return -1
	}
	current := m.visibleNodes[m.cursor]
	for i, n := range nodes {
		if n == current {
			return i
		}
	}
	return -1
}

// ensureNodeVisible expands ancestors so the node is listed
func (m Model) ensureNodeVisible(node *TreeNode) Model {
	for current := node.Parent; current != nil; current = current.Parent {
		current.Expanded = true
	}
	m.visibleNodes = FlattenTree(m.roots)
	return m
}

func (m Model) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "q", CtrlC:
		return m, tea.Quit
	case "esc", "backspace":
		m.viewMode = TreeView
	case "left":
		m.selectedTab = (m.selectedTab + DetailTab(len(tabNames)) - 1) % DetailTab(len(tabNames))
	case "right", "tab":
		m.selectedTab = (m.selectedTab + 1) % DetailTab(len(tabNames))
	case "1", "2", "3", "4", "5":
		m.selectedTab = DetailTab(msg.String()[0] - '1')
	default:
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}

	m.updateDetailViewport()
	return m, nil
}

func (m *Model) updateDetailViewport() {
	if m.cursor >= len(m.visibleNodes) {
		m.detailViewport.SetContent(MutedStyle.Render("No node selected"))
		return
	}
	m.detailViewport.SetContent(m.renderTab(m.visibleNodes[m.cursor].Node))
}

// Selected returns the node under the cursor, or nil.
func (m Model) Selected() *trace.TraceNode {
	if m.cursor >= len(m.visibleNodes) {
		return nil
	}
	return m.visibleNodes[m.cursor].Node
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var main string
	switch m.viewMode {
	case DetailView:
		main = m.renderDetailView()
	default:
		main = m.renderTreeView()
	}

	return strings.Join([]string{m.renderHeader(), main, m.renderStatusBar()}, "\n")
}

func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("agtrace viewer"))
	b.WriteString("  ")
	if m.run == nil {
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Run %s", m.run.ID))
	if m.run.Source != "" {
		b.WriteString(MutedStyle.Render(fmt.Sprintf(" (%s)", m.run.Source)))
	}
	if m.run.Analyzed() {
		b.WriteString("  Risk: ")
		b.WriteString(RiskStyle(m.run.RiskLevel).Render(strings.ToUpper(string(m.run.RiskLevel))))
	}
	if s := m.run.Stats; s != nil {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("  %d nodes · %d actions · %d errors · %d issues",
			s.TotalNodes, s.TotalActions, s.TotalErrors, len(m.run.Issues))))
	}
	if m.run.RiskExplanation != "" {
		b.WriteString("\n")
		b.WriteString(MutedStyle.Render(m.run.RiskExplanation))
	}
	return b.String()
}

func (m Model) renderTreeView() string {
	tree := BoxStyle.Width(m.treeViewport.Width + 2).Render(m.renderTreePanel())
	detail := BoxStyle.Width(m.detailViewport.Width + 2).Render(m.renderDetailPanel())
	view := lipgloss.JoinHorizontal(lipgloss.Top, tree, detail)
	if m.searchMode {
		view += "\n" + m.renderSearchBar()
	}
	return view
}

func (m Model) renderTreePanel() string {
	var b strings.Builder

	title := "Trace"
	if m.focusArea == FocusTree {
		title = "▶ " + title
	}
	b.WriteString(HeaderStyle.Render(title))
	b.WriteString("\n")

	var content strings.Builder
	for i, node := range m.visibleNodes {
		content.WriteString(m.renderNodeLine(node, i == m.cursor))
		content.WriteString("\n")
	}
	m.treeViewport.SetContent(content.String())

	if m.cursor < m.treeViewport.YOffset {
		m.treeViewport.YOffset = m.cursor
	} else if m.cursor >= m.treeViewport.YOffset+m.treeViewport.Height {
		m.treeViewport.YOffset = m.cursor - m.treeViewport.Height + 1
	}

	b.WriteString(m.treeViewport.View())
	return b.String()
}

func (m Model) renderNodeLine(node *TreeNode, selected bool) string {
	indent := strings.Repeat("  ", node.Depth)

	prefix := "  "
	if node.HasChildren() {
		if node.Expanded {
			prefix = "▼ "
		} else {
			prefix = "▶ "
		}
	}

	width := m.treeViewport.Width - len(indent) - 12
	if width < 10 {
		width = 10
	}
	name := GetNodeStyle(node.Node.Type).Render(node.Label(width))

	indicator := ""
	if worst := worstSeverity(node.Node.Issues); worst != "" {
		indicator = SeverityStyle(worst).Render(fmt.Sprintf(" [%d]", len(node.Node.Issues)))
	}
	if m.isSearchMatch(node) {
		indicator += " 🔍"
	}
	duration := ""
	if d := node.DurationMs(); d > 0 {
		duration = " " + DurationStyle.Render(fmt.Sprintf("(%dms)", d))
	}

	line := fmt.Sprintf("%s%s%s%s%s", indent, prefix, name, indicator, duration)
	if selected {
		return CursorStyle.Render("→ ") + SelectedStyle.Render(line)
	}
	return "  " + line
}

func worstSeverity(issues []*trace.TraceIssue) trace.Severity {
	var worst trace.Severity
	for _, issue := range issues {
		if issue.Severity == trace.SeverityError {
			return trace.SeverityError
		}
		worst = trace.SeverityWarning
	}
	return worst
}

func (m Model) isSearchMatch(node *TreeNode) bool {
	for _, match := range m.searchMatches {
		if match == node {
			return true
		}
	}
	return false
}

func (m Model) renderTabBar() string {
	var tabBar strings.Builder
	for i, tab := range tabNames {
		label := " " + tab + " "
		if DetailTab(i) == m.selectedTab {
			tabBar.WriteString(SelectedStyle.Render(label))
		} else {
			tabBar.WriteString(MutedStyle.Render(label))
		}
		if i < len(tabNames)-1 {
			tabBar.WriteString(MutedStyle.Render("│"))
		}
	}
	return tabBar.String()
}

func (m Model) renderDetailPanel() string {
	var b strings.Builder
	b.WriteString(m.renderTabBar())
	b.WriteString("\n")
	b.WriteString(m.detailViewport.View())
	return b.String()
}

func (m Model) renderDetailView() string {
	width := m.width - 6
	if width < 20 {
		width = 20
	}
	return BoxStyle.Width(width).Render(m.renderTabBar() + "\n" + m.detailViewport.View())
}

func (m Model) renderSearchBar() string {
	return CursorStyle.Render("/") + m.searchQuery + CursorStyle.Render("█")
}

func (m Model) renderStatusBar() string {
	var statusParts []string

	focus := "Tree"
	if m.viewMode == DetailView {
		focus = "Detail:" + tabNames[m.selectedTab]
	} else if m.focusArea == FocusDetails {
		focus = "Details:" + tabNames[m.selectedTab]
	}
	statusParts = append(statusParts, SelectedStyle.Render(" "+focus+" "))

	var keys []string
	switch {
	case m.searchMode:
		keys = []string{
			HelpKeyStyle.Render("[Type]") + " Search",
			HelpKeyStyle.Render("[Enter]") + " Confirm",
			HelpKeyStyle.Render("[Esc]") + " Cancel",
		}
	case m.viewMode == DetailView:
		keys = []string{
			HelpKeyStyle.Render("[←→]") + " Tabs",
			HelpKeyStyle.Render("[1-5]") + " Jump",
			HelpKeyStyle.Render("[↑↓]") + " Scroll",
			HelpKeyStyle.Render("[Esc]") + " Back",
			HelpKeyStyle.Render("[q]") + " Quit",
		}
	default:
		keys = []string{
			HelpKeyStyle.Render("[↑↓]") + " Nav",
			HelpKeyStyle.Render("[←→]") + " Tabs",
			HelpKeyStyle.Render("[h/l]") + " Fold",
			HelpKeyStyle.Render("[Enter]") + " Detail",
			HelpKeyStyle.Render("[/]") + " Search",
			HelpKeyStyle.Render("[e/E]") + " Issues",
			HelpKeyStyle.Render("[q]") + " Quit",
		}
	}

	if len(m.searchMatches) > 0 && !m.searchMode {
		statusParts = append(statusParts, SuccessStyle.Render(fmt.Sprintf("🔍 %d/%d", m.searchIndex+1, len(m.searchMatches))))
	}

	return HelpStyle.Render(strings.Join(statusParts, " ") + "  " + strings.Join(keys, " "))
}

func (m Model) renderTab(node *trace.TraceNode) string {
	switch m.selectedTab {
	case TabContent:
		return node.Content
	case TabIssues:
		return renderIssues(node)
	case TabMetrics:
		return renderMetrics(node)
	case TabMetadata:
		return renderMetadata(node.Metadata)
	default:
		return renderOverview(node)
	}
}

func renderOverview(node *trace.TraceNode) string {
	var b strings.Builder
	field := func(key, value string) {
		b.WriteString(AttributeKeyStyle.Render(fmt.Sprintf("%-12s", key)))
		b.WriteString(AttributeValueStyle.Render(value))
		b.WriteString("\n")
	}

	field("ID", node.ID)
	field("Type", GetNodeStyle(node.Type).Render(string(node.Type)))
	field("Order", fmt.Sprintf("%d", node.Order))
	if p := node.Parent(); p != "" {
		field("Parent", p)
	}
	if node.Timestamp != nil {
		field("Timestamp", fmt.Sprintf("%d", *node.Timestamp))
	}
	if node.Confidence != nil {
		field("Confidence", fmt.Sprintf("%.0f%%", *node.Confidence*100))
	}
	if node.RiskLevel != "" {
		field("Risk", RiskStyle(node.RiskLevel).Render(strings.ToUpper(string(node.RiskLevel))))
	}
	if lg := node.LangGraph; !lg.Empty() {
		if lg.NodeName != "" {
			field("Graph node", lg.NodeName)
		}
		if len(lg.Edges) > 0 {
			field("Edges", strings.Join(lg.Edges, ", "))
		}
	}
	field("Issues", fmt.Sprintf("%d", len(node.Issues)))

	b.WriteString(SectionHeaderStyle.Render("Content"))
	b.WriteString("\n")
	b.WriteString(node.Content)
	return b.String()
}

func renderIssues(node *trace.TraceNode) string {
	if len(node.Issues) == 0 {
		return SuccessStyle.Render("✓ No issues on this node")
	}
	var b strings.Builder
	for _, issue := range node.Issues {
		b.WriteString(SeverityStyle(issue.Severity).Render(fmt.Sprintf("● %s [%s]", issue.Title, issue.Type)))
		b.WriteString("\n")
		b.WriteString(issue.Description)
		b.WriteString("\n")
		b.WriteString(MutedStyle.Render("Nodes: " + strings.Join(issue.NodeIDs, ", ")))
		b.WriteString("\n")
		if issue.Suggestion != "" {
			b.WriteString("💡 " + issue.Suggestion + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderMetrics(node *trace.TraceNode) string {
	mt := node.Metrics
	if mt == nil {
		return MutedStyle.Render("No metrics recorded")
	}
	var b strings.Builder
	line := func(key string, value any) {
		b.WriteString(AttributeKeyStyle.Render(fmt.Sprintf("%-18s", key)))
		b.WriteString(fmt.Sprintf("%v\n", value))
	}
	if mt.DurationMs != nil {
		line("Duration", DurationStyle.Render(fmt.Sprintf("%dms", *mt.DurationMs)))
	}
	if mt.StartTime != nil {
		line("Start", *mt.StartTime)
	}
	if mt.EndTime != nil {
		line("End", *mt.EndTime)
	}
	if mt.PromptTokens != nil {
		line("Prompt tokens", *mt.PromptTokens)
	}
	if mt.CompletionTokens != nil {
		line("Completion tokens", *mt.CompletionTokens)
	}
	if mt.TotalTokens != nil {
		line("Total tokens", *mt.TotalTokens)
	}
	if mt.Model != "" {
		line("Model", mt.Model)
	}
	if mt.IsSlow {
		b.WriteString(WarningStyle.Render("⚠ slow step") + "\n")
	}
	if mt.IsTokenHeavy {
		b.WriteString(WarningStyle.Render("⚠ token heavy") + "\n")
	}
	if mt.IsError {
		b.WriteString(ErrorStyle.Render("✗ error: "+mt.ErrorMessage) + "\n")
	}
	return b.String()
}

func renderMetadata(meta map[string]any) string {
	if len(meta) == 0 {
		return MutedStyle.Render("No metadata")
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(AttributeKeyStyle.Render(k))
		b.WriteString(": ")
		switch v := meta[k].(type) {
		case string:
			b.WriteString(AttributeValueStyle.Render(v))
		default:
			data, err := json.MarshalIndent(v, "  ", "  ")
			if err != nil {
				b.WriteString(fmt.Sprintf("%v", v))
			} else {
				b.WriteString(string(data))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
