package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"AINewsletter/internal/domain"
	"AINewsletter/internal/newsletter"
	"AINewsletter/internal/ports"
)

// FileMailer writes the rendered HTML to disk instead of sending it.
// It backs dry runs.
type FileMailer struct {
	path   string
	logger *slog.Logger
}

var _ ports.Mailer = (*FileMailer)(nil)

// NewFileMailer targets the given output file.
func NewFileMailer(path string, logger *slog.Logger) *FileMailer {
	return &FileMailer{path: path, logger: logger}
}

// SendNewsletter renders the newsletter to the output file.
func (m *FileMailer) SendNewsletter(_ context.Context, n domain.Newsletter) error {
	html, err := newsletter.Render(n)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(m.path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write newsletter preview: %w", err)
	}
	if m.logger != nil {
		m.logger.Info("newsletter preview written", "path", m.path, "items", n.ItemCount())
	}
	return nil
}
