package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/cache"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/catalog"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets/xlsxsheet"
)

// Source provides the current contents of a profile's table.
// *app.Records satisfies it.
type Source interface {
	Snapshot(ctx context.Context, profile string) (catalog.Profile, cache.Snapshot, error)
}

// Uploader stores a finished export under key.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// Service provides table export functionality.
type Service struct {
	source   Source
	uploader Uploader
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates an export service. uploader may be nil, in which case
// exports are only returned to the caller.
func NewService(source Source, uploader Uploader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, uploader: uploader, now: time.Now, logger: logger}
}

// Export renders the profile's table, header row first, as a one-sheet
// workbook and uploads it when an uploader is configured.
func (s *Service) Export(ctx context.Context, profile string) (*Result, error) {
	p, snap, err := s.source.Snapshot(ctx, profile)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(snap.Rows)+1)
	if len(snap.Headers) > 0 {
		rows = append(rows, snap.Headers)
	}
	rows = append(rows, snap.Rows...)

	var buf bytes.Buffer
	if err := xlsxsheet.WriteTables(&buf, xlsxsheet.Table{Title: p.Table, Rows: rows}); err != nil {
		return nil, fmt.Errorf("render %s: %w", p.Key, err)
	}

	res := &Result{
		Data:     buf.Bytes(),
		Filename: fmt.Sprintf("%s-%s.xlsx", p.Key, s.now().UTC().Format("20060102-150405")),
		MimeType: MimeXLSX,
		Rows:     len(snap.Rows),
	}
	if s.uploader == nil {
		return res, nil
	}

	key := p.Key + "/" + res.Filename
	if err := s.uploader.Upload(ctx, key, res.Data, res.MimeType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	res.ObjectKey = key
	s.logger.Info("export uploaded", "profile", p.Key, "key", key, "rows", res.Rows)
	return res, nil
}
