package loader

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"novella/internal/config"
	"novella/internal/fileutil"
	"novella/internal/logging"
	"novella/internal/scenario"
)

//go:embed default_scenario.json
var defaultScenario []byte

// BuiltinOrigin is the origin reported for the bundled scenario.
const BuiltinOrigin = "builtin:default"

// maxDocumentBytes bounds a fetched scenario or index document.
const maxDocumentBytes = 16 << 20

// ErrNoScenario means no candidate, index entry or fallback produced a
// playable scenario.
var ErrNoScenario = errors.New("no scenario could be loaded")

// Result is a loaded scenario and where it came from.
type Result struct {
	Scenario *scenario.Scenario
	// Origin is the location the document was read from, or BuiltinOrigin.
	Origin    string
	FromIndex bool
	Fallback  bool
	// Issues are the validation warnings of the loaded scenario.
	Issues []scenario.Issue
}

// Loader resolves scenario locations.
type Loader struct {
	location string
	index    string
	fallback bool
	client   *http.Client
	logger   *slog.Logger
}

// New builds a loader from the [scenario] section.
func New(cfg *config.Config, logger *slog.Logger) *Loader {
	timeout := 10 * time.Second
	l := &Loader{logger: logging.NewComponentLogger(logger, "loader")}
	if cfg != nil {
		l.location = cfg.Scenario.Location
		l.index = cfg.Scenario.Index
		l.fallback = cfg.Scenario.FallbackDefault
		if d := cfg.FetchTimeout(); d > 0 {
			timeout = d
		}
	}
	l.client = &http.Client{Timeout: timeout}
	return l
}

// WithClient replaces the HTTP client used for remote locations.
func (l *Loader) WithClient(client *http.Client) *Loader {
	if client != nil {
		l.client = client
	}
	return l
}

// Load tries candidate (or the configured location when candidate is empty),
// then the index, then the bundled scenario.
func (l *Loader) Load(ctx context.Context, candidate string) (*Result, error) {
	if strings.TrimSpace(candidate) == "" {
		candidate = l.location
	}
	var failures []error

	if candidate != "" {
		sc, issues, err := l.LoadFrom(ctx, candidate)
		if err == nil {
			return l.loaded(ctx, &Result{Scenario: sc, Origin: candidate, Issues: issues}), nil
		}
		l.warnFailed(ctx, candidate, err)
		failures = append(failures, err)
	}

	if l.index != "" {
		entry, err := l.indexEntry(ctx, l.index)
		if err == nil {
			sc, issues, loadErr := l.LoadFrom(ctx, entry)
			if loadErr == nil {
				return l.loaded(ctx, &Result{Scenario: sc, Origin: entry, FromIndex: true, Issues: issues}), nil
			}
			err = loadErr
			l.warnFailed(ctx, entry, err)
		} else {
			l.warnFailed(ctx, l.index, err)
		}
		failures = append(failures, err)
	}

	if l.fallback {
		sc, err := Default()
		if err != nil {
			return nil, err
		}
		logging.WarnWithContext(logging.WithContext(ctx, l.logger), "no scenario found, using the bundled default", "scenario_fallback",
			logging.String(logging.FieldErrorHint, "set scenario.location or provide a scenario index"),
			logging.String(logging.FieldImpact, "the bundled demo story is played"),
		)
		return l.loaded(ctx, &Result{Scenario: sc, Origin: BuiltinOrigin, Fallback: true, Issues: sc.Validate()}), nil
	}

	if len(failures) == 0 {
		return nil, ErrNoScenario
	}
	return nil, fmt.Errorf("%w: %w", ErrNoScenario, errors.Join(failures...))
}

// LoadFrom reads, parses and validates one location.
func (l *Loader) LoadFrom(ctx context.Context, location string) (*scenario.Scenario, []scenario.Issue, error) {
	data, err := l.Fetch(ctx, location)
	if err != nil {
		return nil, nil, err
	}
	sc, err := scenario.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", location, err)
	}
	issues := sc.Validate()
	if scenario.HasErrors(issues) {
		return nil, issues, fmt.Errorf("%s: %w: %s", location, scenario.ErrInvalidScenario, firstError(issues))
	}
	return sc, issues, nil
}

// Fetch reads a document from a URL or a file. Remote reads bypass caches.
func (l *Loader) Fetch(ctx context.Context, location string) ([]byte, error) {
	if !config.IsRemote(location) {
		data, err := fileutil.ReadFileLimited(location, maxDocumentBytes)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}
		return data, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", location, err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", location, resp.StatusCode)
	}
	data, err := fileutil.ReadLimited(resp.Body, maxDocumentBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}

// indexEntry returns the first scenario named by the index, resolved against
// the index location.
func (l *Loader) indexEntry(ctx context.Context, index string) (string, error) {
	data, err := l.Fetch(ctx, index)
	if err != nil {
		return "", err
	}
	entry, err := ParseIndex(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", index, err)
	}
	return resolveEntry(index, entry)
}

// ParseIndex returns the first entry of an index document, which is either a
// list of locations, {"default": location} or {"list": [locations]}.
func ParseIndex(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", errors.New("empty index")
	}
	if trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", fmt.Errorf("parse index: %w", err)
		}
		return firstNonEmpty(list)
	}
	var obj struct {
		Default string   `json:"default"`
		List    []string `json:"list"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", fmt.Errorf("parse index: %w", err)
	}
	if obj.Default != "" {
		return obj.Default, nil
	}
	return firstNonEmpty(obj.List)
}

func firstNonEmpty(list []string) (string, error) {
	if len(list) == 0 || strings.TrimSpace(list[0]) == "" {
		return "", errors.New("index lists no scenarios")
	}
	return list[0], nil
}

func resolveEntry(index, entry string) (string, error) {
	if config.IsRemote(entry) {
		return entry, nil
	}
	if config.IsRemote(index) {
		base, err := url.Parse(index)
		if err != nil {
			return "", fmt.Errorf("parse index url: %w", err)
		}
		ref, err := url.Parse(entry)
		if err != nil {
			return "", fmt.Errorf("parse index entry %q: %w", entry, err)
		}
		return base.ResolveReference(ref).String(), nil
	}
	if filepath.IsAbs(entry) {
		return entry, nil
	}
	return filepath.Join(filepath.Dir(index), entry), nil
}

// Default parses the bundled scenario.
func Default() (*scenario.Scenario, error) {
	sc, err := scenario.Parse(defaultScenario)
	if err != nil {
		return nil, fmt.Errorf("bundled scenario: %w", err)
	}
	return sc, nil
}

// DefaultDocument returns the bundled scenario source.
func DefaultDocument() []byte {
	out := make([]byte, len(defaultScenario))
	copy(out, defaultScenario)
	return out
}

func (l *Loader) loaded(ctx context.Context, res *Result) *Result {
	l.logger.InfoContext(ctx, "scenario loaded",
		logging.String("origin", res.Origin),
		logging.String("title", res.Scenario.Meta.Title),
		logging.Int("scenes", len(res.Scenario.Scenes)),
		logging.Int("warnings", len(res.Issues)),
		logging.Bool("from_index", res.FromIndex),
	)
	for _, issue := range res.Issues {
		l.logger.DebugContext(ctx, "scenario issue", logging.String("issue", issue.String()))
	}
	return res
}

func (l *Loader) warnFailed(ctx context.Context, location string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, l.logger), "scenario load failed", "scenario_load_failed",
		logging.String("location", location),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the path or URL and that the document is valid scenario JSON"),
		logging.String(logging.FieldImpact, "trying the next source"),
	)
}

func firstError(issues []scenario.Issue) string {
	for _, issue := range issues {
		if issue.Severity == scenario.SeverityError {
			return issue.Message
		}
	}
	return ""
}
