// internal/tui/app.go
//
// Interactive viewer for a finished schedule. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: the schedule, the quarter list and what is focused
// 2. Update: key presses and window resizes change that state
// 3. View: renders state to a string
//
// The left pane lists quarters; the right pane details the selected one.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/planner/engine"
	"github.com/kingrea/coursenobi/internal/requirement"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	selectedLine = lipgloss.NewStyle().Bold(true)
)

// AppOption customizes App construction.
type AppOption func(*App)

// WithCatalog lets the detail pane show titles, units and prerequisites.
func WithCatalog(cat *catalog.Catalog) AppOption {
	return func(a *App) {
		a.catalog = cat
	}
}

// quarterItem implements list.Item for one quarter.
type quarterItem struct {
	index   int
	courses []course.ID
}

func (q quarterItem) Title() string { return fmt.Sprintf("Quarter %d", q.index+1) }

func (q quarterItem) Description() string {
	names := make([]string, len(q.courses))
	for i, id := range q.courses {
		names[i] = string(id)
	}
	return strings.Join(names, " · ")
}

func (q quarterItem) FilterValue() string { return q.Description() }

// App is the bubbletea model for the viewer.
type App struct {
	result  engine.Result
	catalog *catalog.Catalog

	quarters list.Model
	placedIn map[course.ID]int

	// courseCursor selects a course inside the current quarter when the
	// detail pane has focus.
	detailFocus  bool
	courseCursor int
	showWarnings bool

	width  int
	height int
}

// NewApp builds the viewer for a finished run.
func NewApp(result engine.Result, opts ...AppOption) *App {
	items := make([]list.Item, len(result.Schedule))
	placedIn := map[course.ID]int{}
	for i, term := range result.Schedule {
		items[i] = quarterItem{index: i, courses: term}
		for _, id := range term {
			placedIn[id] = i
		}
	}
	quarters := list.New(items, list.NewDefaultDelegate(), 0, 0)
	quarters.Title = "QUARTERS"
	quarters.SetShowStatusBar(false)
	quarters.SetFilteringEnabled(false)
	quarters.SetShowHelp(false)

	app := &App{
		result:       result,
		quarters:     quarters,
		placedIn:     placedIn,
		showWarnings: len(result.Warnings) > 0,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// Run opens the viewer full screen and blocks until the user quits. Keys are
// read from the controlling terminal so a request can still be piped in.
func Run(result engine.Result, opts ...AppOption) error {
	_, err := tea.NewProgram(NewApp(result, opts...), tea.WithAltScreen(), tea.WithInputTTY()).Run()
	return err
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.quarters.SetSize(max(20, a.leftWidth()-4), max(6, msg.Height-8))
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if msg.String() == "esc" && a.detailFocus {
				a.detailFocus = false
				return a, nil
			}
			return a, tea.Quit
		case "w":
			a.showWarnings = !a.showWarnings
			return a, nil
		case "tab", "enter":
			if len(a.currentQuarter()) > 0 {
				a.detailFocus = !a.detailFocus
			}
			return a, nil
		case "right", "l":
			if len(a.currentQuarter()) > 0 {
				a.detailFocus = true
			}
			return a, nil
		case "left", "h":
			a.detailFocus = false
			return a, nil
		case "up", "k":
			if a.detailFocus {
				if a.courseCursor > 0 {
					a.courseCursor--
				}
				return a, nil
			}
		case "down", "j":
			if a.detailFocus {
				if a.courseCursor < len(a.currentQuarter())-1 {
					a.courseCursor++
				}
				return a, nil
			}
		}
	}

	if a.detailFocus {
		return a, nil
	}
	before := a.quarters.Index()
	var cmd tea.Cmd
	a.quarters, cmd = a.quarters.Update(msg)
	if a.quarters.Index() != before {
		a.courseCursor = 0
	}
	return a, cmd
}

// Selected returns the zero-based quarter index and the highlighted course.
func (a *App) Selected() (int, course.ID) {
	term := a.currentQuarter()
	if len(term) == 0 {
		return a.quarters.Index(), ""
	}
	return a.quarters.Index(), term[min(a.courseCursor, len(term)-1)]
}

func (a *App) currentQuarter() []course.ID {
	idx := a.quarters.Index()
	if idx < 0 || idx >= len(a.result.Schedule) {
		return nil
	}
	return a.result.Schedule[idx]
}

// View renders the current state to a string.
func (a *App) View() string {
	header := headerStyle.Render(fmt.Sprintf("⬡ COURSENOBI · %d quarters · max %d per quarter",
		len(a.result.Schedule), a.result.Capacity))

	var left string
	if len(a.result.Schedule) == 0 {
		left = detailStyle.Render("Nothing left to take.")
	} else {
		left = a.quarters.View()
	}
	leftBox := boxStyle.Width(max(20, a.leftWidth()-2)).Render(left)
	rightBox := boxStyle.Width(max(20, a.rightWidth()-2)).Render(a.renderDetail())
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)

	parts := []string{header, body}
	if a.showWarnings && len(a.result.Warnings) > 0 {
		parts = append(parts, a.renderWarnings())
	}
	parts = append(parts, footerStyle.Render("↑/↓ move · tab details · w warnings · q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderDetail() string {
	term := a.currentQuarter()
	if len(term) == 0 {
		return detailStyle.Render("no quarter selected")
	}
	idx, selected := a.Selected()
	lines := []string{titleStyle.Render(fmt.Sprintf("Quarter %d", idx+1))}
	for _, id := range term {
		line := "  " + string(id)
		if a.detailFocus && id == selected {
			line = selectedLine.Render("> " + string(id))
		}
		if rec, ok := a.lookup(id); ok && rec.Title != "" {
			line += detailStyle.Render(" · " + rec.Title)
		}
		lines = append(lines, line)
	}
	if a.detailFocus {
		lines = append(lines, "", a.renderCourse(selected))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderCourse(id course.ID) string {
	rec, ok := a.lookup(id)
	if !ok {
		return detailStyle.Render("not in the catalog")
	}
	var details []string
	if rec.Units != "" {
		details = append(details, "Units: "+rec.Units)
	}
	details = append(details, a.requirementLine("Needs", rec.Prerequisite)...)
	details = append(details, a.requirementLine("With", rec.Corequisite)...)
	details = append(details, a.requirementLine("Needs or with", rec.PrerequisiteOrCorequisite)...)
	if len(details) == 0 {
		return detailStyle.Render("no requirements")
	}
	return detailStyle.Render(strings.Join(details, "\n"))
}

// requirementLine names the scheduled courses satisfying expr and the
// quarter each lands in.
func (a *App) requirementLine(label string, expr *requirement.Expr) []string {
	if expr == nil {
		return nil
	}
	var placed []string
	for _, id := range expr.Courses() {
		if q, ok := a.placedIn[id]; ok {
			placed = append(placed, fmt.Sprintf("%s (Q%d)", id, q+1))
		}
	}
	line := fmt.Sprintf("%s: %s", label, expr.String())
	if len(placed) > 0 {
		line += "\n  scheduled: " + strings.Join(placed, ", ")
	}
	return []string{line}
}

func (a *App) renderWarnings() string {
	lines := make([]string, len(a.result.Warnings))
	for i, w := range a.result.Warnings {
		lines[i] = w.String()
	}
	return boxStyle.Render(warnStyle.Render(strings.Join(lines, "\n")))
}

func (a *App) lookup(id course.ID) (*catalog.Record, bool) {
	if a.catalog == nil {
		return nil, false
	}
	return a.catalog.Lookup(id)
}

func (a *App) leftWidth() int {
	width := a.width
	if width <= 0 {
		width = 100
	}
	return max(32, width/2)
}

func (a *App) rightWidth() int {
	width := a.width
	if width <= 0 {
		width = 100
	}
	return max(32, width-a.leftWidth())
}
