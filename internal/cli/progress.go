package cli

import (
	"context"
	"fmt"
	"os"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/markerdocs/internal/kb"
	"github.com/raphaelgruber/markerdocs/internal/models"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// fetchResultMsg carries one completed fetch from the scheduler.
type fetchResultMsg struct {
	res   models.FetchResult
	done  int
	total int
}

// batchDoneMsg signals that the scheduler has returned.
type batchDoneMsg struct{}

// buildModel is the bubbletea model for a batch run. The scheduler
// pushes results in; no polling is involved.
type buildModel struct {
	progress progress.Model
	theme    Theme

	total   int
	skipped int

	done      int
	succeeded int
	failed    int

	lastLine string
	finished bool
	quitting bool
}

// newBuildModel creates a progress model for total pending markers.
func newBuildModel(total, skipped int) buildModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return buildModel{
		progress: prog,
		theme:    defaultTheme,
		total:    total,
		skipped:  skipped,
	}
}

// Init returns the initial command.
func (m buildModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Detach the display; the batch keeps running.
			m.quitting = true
			return m, tea.Quit
		}

	case fetchResultMsg:
		m.done = msg.done
		m.total = msg.total
		if msg.res.Success {
			m.succeeded++
			m.lastLine = m.theme.successStyle().Render("✓ " + msg.res.Marker.String())
		} else {
			m.failed++
			m.lastLine = m.theme.errorStyle().Render("✗ " + msg.res.Marker.String() + ": " + msg.res.Err)
		}
		return m, nil

	case batchDoneMsg:
		m.finished = true
		return m, tea.Quit

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m buildModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m buildModel) renderContent() string {
	if m.finished || m.quitting {
		// The summary is printed by the command after the UI exits.
		return ""
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	status := m.theme.statusStyle().Render("[generating]")
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d · ok %d · fail %d · skip %d",
		m.done, m.total, m.succeeded, m.failed, m.skipped)
	hint := m.theme.hintStyle().Render("Press q to detach; generation continues")

	out := fmt.Sprintf("%s %s %s\n", status, bar, counts)
	if m.lastLine != "" {
		out += m.lastLine + "\n"
	}
	return out + hint + "\n"
}

// runWithProgress drives the scheduler while rendering the interactive
// progress display. It always waits for the batch to finish, even if
// the user detaches the display early.
func runWithProgress(ctx context.Context, fetcher *kb.Fetcher, pending []models.Marker, skipped, concurrency int) []models.FetchResult {
	p := tea.NewProgram(newBuildModel(len(pending), skipped))

	resultsCh := make(chan []models.FetchResult, 1)
	go func() {
		results := kb.Run(ctx, fetcher, pending, kb.RunOptions{
			Concurrency: concurrency,
			OnResult: func(res models.FetchResult, done, total int) {
				p.Send(fetchResultMsg{res: res, done: done, total: total})
			},
		})
		resultsCh <- results
		// Safe no-op if the user already quit the display.
		p.Send(batchDoneMsg{})
	}()

	// A broken display must not break the batch; fall through and wait.
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "progress display error: %v\n", err)
	}

	return <-resultsCh
}
