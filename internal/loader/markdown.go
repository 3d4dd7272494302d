package loader

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"docrag/internal/domain"
)

// MarkdownLoader reads Markdown files and strips formatting down to plain text.
type MarkdownLoader struct{}

func NewMarkdownLoader() *MarkdownLoader { return &MarkdownLoader{} }

func (l *MarkdownLoader) Extensions() []string { return []string{".md", ".markdown"} }

// Load returns the whole file as a single segment.
func (l *MarkdownLoader) Load(_ context.Context, path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read markdown %s: %w", path, err)
	}
	return domain.Document{
		Path:     path,
		Type:     "markdown",
		Segments: []domain.Segment{{Text: StripMarkdown(string(data)), Page: 0}},
	}, nil
}

var (
	mdFence       = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")
	mdInlineCode  = regexp.MustCompile("`([^`]+)`")
	mdImage       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	mdLink        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	mdBlockquote  = regexp.MustCompile(`(?m)^>[ \t]?`)
	mdRule        = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	mdBullet      = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	mdNumbered    = regexp.MustCompile(`(?m)^([ \t]*)\d+\.[ \t]+`)
	mdBold        = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	mdItalic      = regexp.MustCompile(`\*([^*\n]+)\*`)
	mdUnderscore  = regexp.MustCompile(`\b_{1,2}([^_\n]+?)_{1,2}\b`)
	mdHTMLTag     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	mdBlankRuns   = regexp.MustCompile(`\n{3,}`)
	mdTrailingSpc = regexp.MustCompile(`(?m)[ \t]+$`)
)

// StripMarkdown converts Markdown to readable plain text. Code block bodies and
// link texts are kept since they often carry the answer to a question.
func StripMarkdown(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = mdFence.ReplaceAllString(content, "$1")
	content = mdInlineCode.ReplaceAllString(content, "$1")
	content = mdImage.ReplaceAllString(content, "$1")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdBullet.ReplaceAllString(content, "$1")
	content = mdNumbered.ReplaceAllString(content, "$1")
	content = mdBold.ReplaceAllString(content, "$1")
	content = mdItalic.ReplaceAllString(content, "$1")
	content = mdUnderscore.ReplaceAllString(content, "$1")
	content = mdHTMLTag.ReplaceAllString(content, "")
	content = mdTrailingSpc.ReplaceAllString(content, "")
	content = mdBlankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
