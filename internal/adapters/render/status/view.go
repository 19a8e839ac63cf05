package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/petminion/internal/application"
	"github.com/bnema/petminion/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const barWidth = 24

type RenderOptions struct {
	// Now overrides the status clock for relative times; zero uses status.Now.
	Now time.Time
}

func renderView(status application.FeederStatus, opts RenderOptions, s styles) string {
	now := opts.Now
	if now.IsZero() {
		now = status.Now
	}

	lines := []string{
		s.title.Render("Petminion"),
		s.header.Render(fmt.Sprintf("as of %s", now.Format("Mon 02 Jan 15:04"))),
		s.section.Render(renderRule(status.RuleStatus, now, s)),
		s.section.Render(renderRecent(status.Recent, now, s)),
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRule(status application.RuleStatus, now time.Time, s styles) string {
	parts := []string{
		s.rule.Render(status.Rule),
		fedLine(status, s),
		s.detail.Render(fmt.Sprintf("entitled now: %d (%d including upcoming)", status.Entitled, status.EntitledWithUpcoming)),
		nextSlotLine(status.NextSlot, now, s),
		cooldownLine(status, s),
		lastFedLine(status.LastFed, now, s),
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func fedLine(status application.RuleStatus, s styles) string {
	label := s.key.Render("fed today:")
	bar := renderProgressBar(status.FedToday, status.TotalPerDay, barWidth, s)
	meta := s.meta.Render(fmt.Sprintf("%d of %d %s", status.FedToday, status.TotalPerDay, plural(status.TotalPerDay, "portion")))

	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", bar, " ", meta)
}

func nextSlotLine(slot *domain.ScheduledFeeding, now time.Time, s styles) string {
	label := s.key.Render("next slot:")
	if slot == nil {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.empty.Render("none left today"))
	}

	at := slot.At.On(now)
	detail := fmt.Sprintf("%s +%d (%s)", slot.At, slot.Count, formatUntil(at.Sub(now)))
	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render(detail))
}

func cooldownLine(status application.RuleStatus, s styles) string {
	label := s.key.Render("cooldown:")
	if status.FeedInterval <= 0 {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.ready.Render("none"))
	}
	if status.FeedCooldownRemaining <= 0 {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.ready.Render("ready"), " ", s.meta.Render(fmt.Sprintf("(every %s)", status.FeedInterval)))
	}

	remaining := s.waiting.Render(fmt.Sprintf("%s left", formatDuration(status.FeedCooldownRemaining)))
	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", remaining, " ", s.meta.Render(fmt.Sprintf("(every %s)", status.FeedInterval)))
}

func lastFedLine(lastFed, now time.Time, s styles) string {
	label := s.key.Render("last fed:")
	if lastFed.IsZero() {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.empty.Render("never"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render(humanize.RelTime(lastFed, now, "ago", "from now")))
}

func renderRecent(events []domain.FeedingEvent, now time.Time, s styles) string {
	lines := []string{s.header.Render(fmt.Sprintf("recent feedings: %d", len(events)))}
	if len(events) == 0 {
		lines = append(lines, s.empty.Render("No feedings recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, event := range events {
		lines = append(lines, s.detail.Render(FormatEvent(event, now)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// FormatEvent renders one journal entry as a single line.
func FormatEvent(event domain.FeedingEvent, now time.Time) string {
	return fmt.Sprintf("%s  %-9s %d %s  %s (%d today)",
		event.FedAt.In(now.Location()).Format("02 Jan 15:04"),
		event.Path,
		event.Portions,
		plural(event.Portions, "portion"),
		humanize.RelTime(event.FedAt, now, "ago", "from now"),
		event.FedToday,
	)
}

func renderProgressBar(done, total, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	fraction := 0.0
	if total > 0 {
		fraction = math.Min(float64(done)/float64(total), 1)
	}
	filled := int(math.Round(float64(width) * fraction))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func formatUntil(d time.Duration) string {
	if d <= 0 {
		return "due now"
	}
	return "in " + formatDuration(d)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "under a minute"
	}

	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	switch {
	case hours == 0:
		return fmt.Sprintf("%d %s", minutes, plural(minutes, "minute"))
	case minutes == 0:
		return fmt.Sprintf("%d %s", hours, plural(hours, "hour"))
	default:
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
