package notes

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/marcus/sheetnotes/internal/styles"
)

// markdownRenderer renders note bodies with glamour. Renderers are built
// per width and style, and output is memoized per note revision.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[renderKey]string
}

type renderKey struct {
	id, updated, content string
	width                int
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{cache: make(map[renderKey]string)}
}

// resolveStyle maps the configured style to a glamour style name or path.
func resolveStyle(configured string) string {
	if configured == "" || configured == "auto" {
		return styles.GetMarkdownTheme()
	}
	return configured
}

// Render returns content rendered at width. It falls back to the raw text
// if glamour cannot render it.
func (m *markdownRenderer) Render(key renderKey, style string, width int) string {
	width = max(10, width)
	if style != m.style || width != m.width || m.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return key.content
		}
		m.renderer, m.style, m.width = r, style, width
		clear(m.cache)
	}
	key.width = width
	if out, ok := m.cache[key]; ok {
		return out
	}
	out, err := m.renderer.Render(key.content)
	if err != nil {
		return key.content
	}
	out = strings.Trim(out, "\n")
	if len(m.cache) > 256 {
		clear(m.cache)
	}
	m.cache[key] = out
	return out
}
