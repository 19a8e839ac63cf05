// Package httpdetect delegates object detection to an HTTP service. Frames
// are posted as JPEG and the service answers with a JSON list of detections.
package httpdetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/petminion/internal/adapters/recognizer/annotate"
	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultMinProbability = 0.5
	jpegQuality           = 85
	maxResponseBytes      = 1 << 20
)

type Config struct {
	URL            string
	MinProbability float64
	Timeout        time.Duration
}

type Recognizer struct {
	endpoint *url.URL
	minProb  float64
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.Recognizer = (*Recognizer)(nil)

type response struct {
	Detections []domain.Detection `json:"detections"`
}

func New(cfg Config, client *http.Client, logger *slog.Logger) (*Recognizer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("detector url is empty")
	}
	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse detector url: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("detector url %q must be http or https", cfg.URL)
	}

	if cfg.MinProbability <= 0 {
		cfg.MinProbability = defaultMinProbability
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Recognizer{endpoint: endpoint, minProb: cfg.MinProbability, client: client, logger: logger}, nil
}

func (r *Recognizer) Detect(ctx context.Context, frame domain.Frame) (image.Image, []domain.Detection, error) {
	detections, err := r.request(ctx, frame, "detect")
	if err != nil {
		return nil, nil, err
	}
	if len(detections) == 0 {
		return nil, nil, nil
	}
	return annotate.Boxes(frame.Image, detections), detections, nil
}

func (r *Recognizer) Classify(ctx context.Context, frame domain.Frame) ([]domain.Detection, error) {
	return r.request(ctx, frame, "classify")
}

func (r *Recognizer) request(ctx context.Context, frame domain.Frame, mode string) ([]domain.Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("frame %d has no image", frame.Seq)
	}

	var body bytes.Buffer
	if err := jpeg.Encode(&body, frame.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	target := *r.endpoint
	query := target.Query()
	query.Set("mode", mode)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("build detector request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call detector: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read detector response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned %s: %s", resp.Status, bytes.TrimSpace(raw))
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}

	kept := decoded.Detections[:0]
	for _, d := range decoded.Detections {
		if d.Probability >= r.minProb {
			kept = append(kept, d)
		}
	}
	r.logger.Debug("detector answered", "mode", mode, "frame", frame.Seq, "returned", len(decoded.Detections), "kept", len(kept))

	return kept, nil
}
