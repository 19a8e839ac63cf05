// Package pushover sends capture clips as Pushover notifications.
package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/petminion/internal/ports"
)

const (
	DefaultBaseURL = "https://api.pushover.net"
	messagesPath   = "/1/messages.json"
	Title          = "Petminion event"

	AppTokenKey = "petminion/pushover/app_token"
	UserKeyKey  = "petminion/pushover/user_key"

	defaultTimeout = 60 * time.Second
	// Pushover rejects attachments above 5 MB.
	maxAttachmentBytes = 5 << 20
)

type Config struct {
	BaseURL     string
	AppTokenKey string
	UserKeyKey  string
	Timeout     time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.AppTokenKey == "" {
		c.AppTokenKey = AppTokenKey
	}
	if c.UserKeyKey == "" {
		c.UserKeyKey = UserKeyKey
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Poster resolves credentials on every post so `secret set` takes effect
// without a restart.
type Poster struct {
	cfg     Config
	secrets ports.SecretStore
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.SocialPoster = (*Poster)(nil)

type apiResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

func New(cfg Config, secrets ports.SecretStore, client *http.Client, logger *slog.Logger) *Poster {
	if secrets == nil {
		panic("pushover: secret store is required")
	}
	cfg.applyDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Poster{cfg: cfg, secrets: secrets, client: client, logger: logger.With("component", "pushover")}
}

func (p *Poster) Post(ctx context.Context, videoPath string, status string) error {
	token, err := p.secrets.Get(ctx, p.cfg.AppTokenKey)
	if err != nil {
		return fmt.Errorf("resolve pushover app token: %w", err)
	}
	user, err := p.secrets.Get(ctx, p.cfg.UserKeyKey)
	if err != nil {
		return fmt.Errorf("resolve pushover user key: %w", err)
	}

	body, contentType, err := p.encode(token, user, status, videoPath)
	if err != nil {
		return err
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + messagesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("build pushover request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send pushover message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read pushover response: %w", err)
	}

	var decoded apiResponse
	_ = json.Unmarshal(raw, &decoded)
	if resp.StatusCode != http.StatusOK || decoded.Status != 1 {
		if len(decoded.Errors) > 0 {
			return fmt.Errorf("pushover rejected message (%s): %s", resp.Status, strings.Join(decoded.Errors, "; "))
		}
		return fmt.Errorf("pushover rejected message (%s): %s", resp.Status, bytes.TrimSpace(raw))
	}

	p.logger.Info("pushover message sent", "request", decoded.Request, "status", status)
	return nil
}

func (p *Poster) encode(token, user, status, videoPath string) (io.Reader, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := [][2]string{{"token", token}, {"user", user}, {"title", Title}, {"message", status}}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("write pushover field %s: %w", field[0], err)
		}
	}

	if videoPath != "" {
		if err := attach(form, videoPath); err != nil {
			return nil, "", err
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("finish pushover form: %w", err)
	}
	return &buf, form.FormDataContentType(), nil
}

func attach(form *multipart.Writer, videoPath string) error {
	file, err := os.Open(videoPath)
	if err != nil {
		return fmt.Errorf("open attachment: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat attachment: %w", err)
	}
	if info.Size() > maxAttachmentBytes {
		return fmt.Errorf("attachment %s is %d bytes, over the %d byte limit", filepath.Base(videoPath), info.Size(), maxAttachmentBytes)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachment"; filename=%q`, filepath.Base(videoPath)))
	header.Set("Content-Type", contentTypeFor(videoPath))

	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create attachment part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy attachment: %w", err)
	}
	return nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gif":
		return "image/gif"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
