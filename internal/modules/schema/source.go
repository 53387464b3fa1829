package schema

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind identifies one of the three portfolio data sources
type Kind string

const (
	KindEquities Kind = "equities"
	KindOptions  Kind = "options"
	KindSectors  Kind = "sectors"
)

// ErrNotConfigured is returned when a source has neither a configured URL nor
// an uploaded file.
var ErrNotConfigured = fmt.Errorf("source not configured")

// Sources resolves the raw tabular rows for each data source. A source can be
// a published CSV URL, a local file path, or an uploaded CSV body; an upload
// takes precedence over the configured URL until replaced.
type Sources struct {
	mu        sync.RWMutex
	overrides map[Kind][]byte
	urls      map[Kind]string
	client    *http.Client
	log       zerolog.Logger
}

// NewSources creates a source resolver from the configured URLs
func NewSources(equitiesURL, optionsURL, sectorsURL string, log zerolog.Logger) *Sources {
	return &Sources{
		overrides: make(map[Kind][]byte),
		urls: map[Kind]string{
			KindEquities: equitiesURL,
			KindOptions:  optionsURL,
			KindSectors:  sectorsURL,
		},
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log.With().Str("component", "sources").Logger(),
	}
}

// ParseKind validates a source kind from an API path segment
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindEquities:
		return KindEquities, nil
	case KindOptions:
		return KindOptions, nil
	case KindSectors:
		return KindSectors, nil
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}

// SetUpload stores an uploaded CSV body for a source. The upload is used for
// every subsequent refresh cycle until replaced.
func (s *Sources) SetUpload(kind Kind, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[kind] = data
	s.log.Info().Str("kind", string(kind)).Int("bytes", len(data)).Msg("Source upload stored")
}

// Configured reports whether a source has any usable origin
func (s *Sources) Configured(kind Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overrides[kind]) > 0 || s.urls[kind] != ""
}

// Rows loads and parses a source into raw string rows (header included).
// Returns ErrNotConfigured when the source has no origin at all.
func (s *Sources) Rows(ctx context.Context, kind Kind) ([][]string, error) {
	s.mu.RLock()
	override := s.overrides[kind]
	sourceURL := s.urls[kind]
	s.mu.RUnlock()

	var data []byte
	switch {
	case len(override) > 0:
		data = override
	case sourceURL != "":
		var err error
		data, err = s.fetch(ctx, sourceURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s source: %w", kind, err)
		}
	default:
		return nil, ErrNotConfigured
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s source is not valid CSV: %w", kind, err)
	}

	return rows, nil
}

func (s *Sources) fetch(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		// Local file path
		return os.ReadFile(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
