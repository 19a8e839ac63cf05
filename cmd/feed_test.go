package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedProgressShowsPortionsAndElapsed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var m tea.Model = newFeedProgressModel(clock, "zigbee", 3, nil)

	clock.Advance(1500 * time.Millisecond)
	m, _ = m.Update(spinner.TickMsg{})
	assert.Contains(t, m.View(), "Dispensing 3 portions via the zigbee feeder (1.5s)")

	clock.Advance(500 * time.Millisecond)
	m, cmd := m.Update(feedDoneMsg{})
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "zigbee feeder took 3 portions in 2s")
}

func TestFeedProgressReportsFeederError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var m tea.Model = newFeedProgressModel(clock, "zigbee", 1, nil)

	clock.Advance(30 * time.Second)
	m, _ = m.Update(feedDoneMsg{err: errors.New("publish timed out")})

	final, ok := m.(feedProgressModel)
	require.True(t, ok)
	assert.EqualError(t, final.err, "publish timed out")
	assert.Contains(t, m.View(), "zigbee feeder failed after 30s: publish timed out")
}

func TestPortionUnit(t *testing.T) {
	assert.Equal(t, "portion", portionUnit(1))
	assert.Equal(t, "portions", portionUnit(2))
}
