package application

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bnema/petminion/internal/adapters/state/jsonfile"
	"github.com/bnema/petminion/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// Monday 2026-03-02 07:00 local to the test clock.
var testStart = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, dir string) *jsonfile.Store {
	t.Helper()

	store, err := jsonfile.NewStore(dir)
	require.NoError(t, err)
	return store
}

func testFrame(clock clockwork.Clock, seq uint64) domain.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	return domain.Frame{Seq: seq, CapturedAt: clock.Now(), Image: img}
}

// scriptedRecognizer returns whatever detections are currently set.
type scriptedRecognizer struct {
	mu         sync.Mutex
	detections []domain.Detection
	calls      int
	err        error
}

func (r *scriptedRecognizer) set(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detections = r.detections[:0]
	for _, name := range names {
		r.detections = append(r.detections, domain.Detection{Name: name, Probability: 0.9})
	}
}

func (r *scriptedRecognizer) Detect(_ context.Context, frame domain.Frame) (image.Image, []domain.Detection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.err != nil {
		return nil, nil, r.err
	}
	out := make([]domain.Detection, len(r.detections))
	copy(out, r.detections)
	return frame.Image, out, nil
}

func (r *scriptedRecognizer) Classify(ctx context.Context, frame domain.Frame) ([]domain.Detection, error) {
	_, detections, err := r.Detect(ctx, frame)
	return detections, err
}

type recordingFeeder struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *recordingFeeder) Feed(_ context.Context, portions int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, portions)
	return nil
}

func (f *recordingFeeder) portions() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]int, len(f.calls))
	copy(out, f.calls)
	return out
}

type savedSnapshot struct {
	label      domain.SnapshotLabel
	seq        uint64
	detections []domain.Detection
}

type recordingSnapshots struct {
	mu    sync.Mutex
	saved []savedSnapshot
	err   error
}

func (s *recordingSnapshots) Save(_ context.Context, label domain.SnapshotLabel, frame domain.Frame, detections []domain.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, savedSnapshot{label: label, seq: frame.Seq, detections: detections})
	return nil
}

func (s *recordingSnapshots) labels() []domain.SnapshotLabel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.SnapshotLabel, 0, len(s.saved))
	for _, snap := range s.saved {
		out = append(out, snap.label)
	}
	return out
}

type recordingLiveWriter struct {
	mu     sync.Mutex
	writes int
}

func (w *recordingLiveWriter) Write(context.Context, image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writes++
	return nil
}

type recordingCaptures struct {
	statuses []string
}

func (c *recordingCaptures) Start(_ context.Context, status string) bool {
	c.statuses = append(c.statuses, status)
	return true
}

type memoryJournal struct {
	mu     sync.Mutex
	events []domain.FeedingEvent
	err    error
}

func (j *memoryJournal) Record(_ context.Context, event domain.FeedingEvent) (domain.FeedingEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return domain.FeedingEvent{}, j.err
	}
	event.ID = fmt.Sprintf("evt-%d", len(j.events)+1)
	j.events = append(j.events, event)
	return event, nil
}

func (j *memoryJournal) Recent(_ context.Context, limit int) ([]domain.FeedingEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit > len(j.events) {
		limit = len(j.events)
	}
	out := make([]domain.FeedingEvent, 0, limit)
	for i := len(j.events) - 1; i >= len(j.events)-limit; i-- {
		out = append(out, j.events[i])
	}
	return out, nil
}

// failingStore fails every Save and reports nothing saved on Load.
type failingStore struct {
	saves int
}

func (s *failingStore) Load(context.Context, string, any) error {
	return domain.ErrStateNotFound
}

func (s *failingStore) Save(context.Context, string, any) error {
	s.saves++
	return io.ErrShortWrite
}
