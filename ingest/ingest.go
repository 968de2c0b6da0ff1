// Package ingest loads policy and reference documents from a directory of
// HTML and text files into the knowledge collection.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/clearcoat/paintdesk/catalog"
	"github.com/clearcoat/paintdesk/pkg/logging"
)

// DocumentWriter stores one knowledge document. *catalog.Store satisfies it.
type DocumentWriter interface {
	UpsertDocument(ctx context.Context, doc *catalog.Document) error
}

// knownTopics are matched against file names to tag policy documents so
// the get_policy tool can find them.
var knownTopics = []string{"returns", "warranty", "shipping", "refunds"}

// Loader walks a directory and upserts every supported file as a document.
type Loader struct {
	writer DocumentWriter
	logger *slog.Logger
}

// NewLoader creates a loader writing to w.
func NewLoader(w DocumentWriter) *Loader {
	return &Loader{
		writer: w,
		logger: logging.WithComponent("ingest"),
	}
}

// Run ingests every .html, .htm, .txt and .md file under dir. It returns
// the number of documents stored; a single bad file aborts the run.
func (l *Loader) Run(ctx context.Context, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedFile(path) {
			return nil
		}

		doc, err := l.load(dir, path)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		if doc.Content == "" {
			l.logger.Warn("skipping empty document", "file", path)
			return nil
		}

		if err := l.writer.UpsertDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to store %s: %w", path, err)
		}
		l.logger.Info("document ingested", "id", doc.ID, "topic", doc.Topic)
		count++
		return nil
	})
	return count, err
}

func (l *Loader) load(dir, path string) (*catalog.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := string(raw)
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		text, err = HTMLToText(text)
		if err != nil {
			return nil, err
		}
	}
	text = Preprocess(text)

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	return &catalog.Document{
		ID:      documentID(rel),
		Title:   documentTitle(rel, text),
		Topic:   documentTopic(rel),
		Content: text,
		Source:  rel,
	}, nil
}

func supportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".txt", ".md":
		return true
	}
	return false
}

// documentID slugs the relative path so re-ingesting a file replaces the
// previous version.
func documentID(rel string) string {
	base := strings.TrimSuffix(rel, filepath.Ext(rel))
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	return strings.Trim(slug, "-")
}

// documentTitle takes the first markdown heading when present, otherwise
// the file name.
func documentTitle(rel, text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
	}
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	return strings.ReplaceAll(base, "_", " ")
}

func documentTopic(rel string) string {
	name := strings.ToLower(filepath.Base(rel))
	for _, topic := range knownTopics {
		if strings.Contains(name, topic) {
			return topic
		}
	}
	return ""
}
