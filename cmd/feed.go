package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

const defaultFeedTimeout = 30 * time.Second

func newFeedCmd(app *app) *cobra.Command {
	var (
		portions int
		quiet    bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Dispense portions right away, bypassing the schedule and rule",
		Long:  "feed drives the configured feeder directly. Manual feedings do not count toward today's schedule and are not journaled.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if portions <= 0 {
				return fmt.Errorf("portions must be positive, got %d", portions)
			}

			_, _, feederKind, _ := app.kinds()
			feeder, closeFeeder, err := app.feeder(cmd.Context(), feederKind)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, closeFeeder())
			}()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			feed := func(ctx context.Context) error {
				return feeder.Feed(ctx, portions)
			}

			if quiet {
				err = feed(ctx)
			} else {
				err = runFeedProgress(ctx, cmd.ErrOrStderr(), app.clock, feederKind, portions, feed)
			}
			if err != nil {
				return fmt.Errorf("feed %d %s: %w", portions, portionUnit(portions), err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "dispensed %d %s\n", portions, portionUnit(portions))
			return err
		},
	}

	cmd.Flags().IntVarP(&portions, "portions", "n", 1, "Number of portions to dispense")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not show a progress spinner")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultFeedTimeout, "Give up when the feeder has not accepted the command in time (0 waits forever)")

	return cmd
}

func portionUnit(portions int) string {
	if portions == 1 {
		return "portion"
	}
	return "portions"
}

var (
	feedOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	feedFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type feedDoneMsg struct {
	err error
}

// feedProgressModel shows a spinner with the elapsed time while the feeder
// works, then a one-line result.
type feedProgressModel struct {
	spinner  spinner.Model
	clock    clockwork.Clock
	feeder   string
	portions int
	started  time.Time
	elapsed  time.Duration
	feed     tea.Cmd
	err      error
	done     bool
}

func newFeedProgressModel(clock clockwork.Clock, feeder string, portions int, feed tea.Cmd) feedProgressModel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return feedProgressModel{
		spinner:  s,
		clock:    clock,
		feeder:   feeder,
		portions: portions,
		started:  clock.Now(),
		feed:     feed,
	}
}

func (m feedProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.feed)
}

func (m feedProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.elapsed = m.clock.Since(m.started)
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case feedDoneMsg:
		m.done = true
		m.err = msg.err
		m.elapsed = m.clock.Since(m.started)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m feedProgressModel) View() string {
	elapsed := m.elapsed.Round(100 * time.Millisecond)
	switch {
	case m.done && m.err != nil:
		return feedFailStyle.Render(fmt.Sprintf("x %s feeder failed after %s: %v", m.feeder, elapsed, m.err)) + "\n"
	case m.done:
		return feedOKStyle.Render(fmt.Sprintf("ok %s feeder took %d %s in %s", m.feeder, m.portions, portionUnit(m.portions), elapsed)) + "\n"
	default:
		return fmt.Sprintf("%s Dispensing %d %s via the %s feeder (%s)", m.spinner.View(), m.portions, portionUnit(m.portions), m.feeder, elapsed)
	}
}

func runFeedProgress(ctx context.Context, output io.Writer, clock clockwork.Clock, feeder string, portions int, feed func(context.Context) error) error {
	feedCmd := func() tea.Msg {
		return feedDoneMsg{err: feed(ctx)}
	}

	p := tea.NewProgram(
		newFeedProgressModel(clock, feeder, portions, feedCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(feedProgressModel)
	if !ok {
		return fmt.Errorf("unexpected final feed model type %T", finalModel)
	}

	return result.err
}
