// Package document renders note bodies for preview. Notes are stored as
// markdown; web captures are stored as extracted plain text and pass through
// unchanged.
package document

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"later/internal/models"
)

// Renderer converts stored content into preview HTML.
type Renderer struct {
	markdown goldmark.Markdown
}

// NewRenderer creates a preview renderer with GitHub-flavored markdown
// extensions. Raw HTML in note bodies is not rendered.
func NewRenderer() *Renderer {
	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
			),
			goldmark.WithRendererOptions(
				ghtml.WithHardWraps(),
			),
		),
	}
}

// PreviewHTML renders an item's body for display. Markdown applies to note
// captures only; everything else is escaped plain text.
func (r *Renderer) PreviewHTML(item *models.ContentItem) (string, error) {
	if item.Source != models.ContentSourceNote {
		return "<pre>" + html.EscapeString(item.OriginalContent) + "</pre>", nil
	}

	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(item.OriginalContent), &buf); err != nil {
		return "", fmt.Errorf("failed to render note markdown: %w", err)
	}
	return buf.String(), nil
}
