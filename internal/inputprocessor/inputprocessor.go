// Package inputprocessor turns CLI input (a file path, a URL or raw text)
// into a generation brief.
package inputprocessor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"autopress/internal/models"
	"autopress/internal/util"
)

const fetchTimeout = 15 * time.Second

// Result holds extracted content details
type Result struct {
	Body        string
	ContentType string
	FilePath    *string
	URL         *string
	InputType   string // "file", "url" or "raw"
}

// Processor defines the interface for processing input strings
type Processor interface {
	Process(ctx context.Context, input string) (Result, error)
	Brief(ctx context.Context, input string) (models.Brief, error)
}

// New creates a default processor implementation
func New() Processor {
	return &defaultProcessor{client: &http.Client{Timeout: fetchTimeout}}
}

type defaultProcessor struct {
	client *http.Client
}

// Process reads input as a file, fetches it as a URL, or keeps it as raw
// text, in that order.
func (p *defaultProcessor) Process(ctx context.Context, input string) (Result, error) {
	res := Result{}

	fi, err := os.Stat(input)
	switch {
	case err == nil && fi.IsDir():
		return res, fmt.Errorf("input '%s' is a directory, not a file", input)
	case err == nil:
		log.Debugf("Input '%s' detected as a file.", input)
		binary, err := util.IsLikelyBinary(input)
		if err != nil {
			return res, fmt.Errorf("failed to inspect file '%s': %w", input, err)
		}
		if binary {
			return res, fmt.Errorf("file '%s' looks binary", input)
		}
		data, err := os.ReadFile(input)
		if err != nil {
			if errors.Is(err, os.ErrPermission) {
				return res, fmt.Errorf("permission denied reading file '%s': %w", input, err)
			}
			return res, fmt.Errorf("failed to read file '%s': %w", input, err)
		}
		body, err := util.CleanText(data, input)
		if err != nil {
			return res, err
		}
		absPath, pathErr := filepath.Abs(input)
		if pathErr != nil {
			absPath = input
		}
		res.Body = body
		res.ContentType = contentTypeFor(absPath, data)
		res.FilePath = &absPath
		res.InputType = "file"
		return res, nil
	case !errors.Is(err, os.ErrNotExist) && looksLikePath(input):
		return res, fmt.Errorf("failed to stat input '%s': %w", input, err)
	}

	parsedURL, urlErr := url.Parse(input)
	if urlErr == nil && (parsedURL.Scheme == "http" || parsedURL.Scheme == "https") {
		return p.fetch(ctx, parsedURL)
	}

	body, err := util.CleanText([]byte(input), "argument")
	if err != nil {
		return res, err
	}
	res.Body = body
	res.ContentType = "text/plain; charset=utf-8"
	res.InputType = "raw"
	return res, nil
}

func (p *defaultProcessor) fetch(ctx context.Context, u *url.URL) (Result, error) {
	res := Result{}
	log.Debugf("Input '%s' detected as a URL.", u)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return res, fmt.Errorf("failed to create request for URL '%s': %w", u, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return res, fmt.Errorf("failed to fetch URL '%s': %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		hint, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return res, fmt.Errorf("failed to fetch URL '%s': status code %d %s - Body Hint: %s",
			u, resp.StatusCode, http.StatusText(resp.StatusCode), string(hint))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, fmt.Errorf("failed to read response body from URL '%s': %w", u, err)
	}
	body, err := util.CleanText(data, u.String())
	if err != nil {
		return res, err
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = contentTypeFor(u.Path, data)
	}
	urlStr := u.String()
	res.Body = body
	res.ContentType = ct
	res.URL = &urlStr
	res.InputType = "url"
	return res, nil
}

// Brief processes input and decodes it as JSON, YAML or labelled text.
func (p *defaultProcessor) Brief(ctx context.Context, input string) (models.Brief, error) {
	res, err := p.Process(ctx, input)
	if err != nil {
		return models.Brief{}, err
	}
	return ParseBrief(res)
}

// ParseBrief decodes a processed input into a brief.
func ParseBrief(res Result) (models.Brief, error) {
	var b models.Brief
	switch {
	case strings.Contains(res.ContentType, "json"):
		if err := json.Unmarshal([]byte(res.Body), &b); err != nil {
			return b, fmt.Errorf("decode brief json: %w", err)
		}
	case strings.Contains(res.ContentType, "yaml"):
		if err := yaml.Unmarshal([]byte(res.Body), &b); err != nil {
			return b, fmt.Errorf("decode brief yaml: %w", err)
		}
	default:
		b = parseLabelled(res.Body)
	}
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return b, fmt.Errorf("%w: brief has no title", models.ErrValidation)
	}
	return b, nil
}

var briefLabels = map[string]string{
	"post title":        "title",
	"title":             "title",
	"main keyword":      "keyword",
	"keyword":           "keyword",
	"short explanation": "idea",
	"idea":              "idea",
}

// parseLabelled reads "Label: value" lines. A value may continue on the
// following lines. Without any labels the first line is the title and the
// rest is the idea.
func parseLabelled(body string) models.Brief {
	var b models.Brief
	var current *string
	var extra []string
	var plain []string
	labelled := false

	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		plain = append(plain, line)
		if key, value, ok := strings.Cut(line, ":"); ok {
			if field, known := briefLabels[strings.ToLower(strings.TrimSpace(key))]; known {
				labelled = true
				switch field {
				case "title":
					current = &b.Title
				case "keyword":
					current = &b.Keyword
				case "idea":
					current = &b.Idea
				}
				*current = strings.TrimSpace(value)
				continue
			}
		}
		if current != nil && *current == "" {
			*current = line
			continue
		}
		extra = append(extra, line)
	}

	if !labelled {
		if len(plain) == 0 {
			return b
		}
		return models.Brief{Title: plain[0], Idea: strings.Join(plain[1:], "\n")}
	}
	b.Extra = strings.Join(extra, "\n")
	return b
}

// looksLikePath is false for multi-line or overlong input, which can only be
// raw text.
func looksLikePath(s string) bool {
	return len(s) < 1024 && !strings.ContainsAny(s, "\r\n")
}

func contentTypeFor(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".txt", ".md":
		return "text/plain; charset=utf-8"
	}
	return http.DetectContentType(data)
}

var _ Processor = (*defaultProcessor)(nil)
