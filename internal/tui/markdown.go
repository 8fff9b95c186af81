package tui

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/glamour"
)

// maxMarkdownCache bounds the memo before it is reset.
const maxMarkdownCache = 256

// Markdown renders item bodies with glamour and memoizes the output per
// (body, width). It is not safe for concurrent use.
type Markdown struct {
	style     string
	renderers map[int]*glamour.TermRenderer
	cache     map[uint64]string
	renders   int
}

// NewMarkdown creates a renderer for a glamour standard style
// ("dark", "light", "notty", "ascii").
func NewMarkdown(style string) *Markdown {
	return &Markdown{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		cache:     make(map[uint64]string),
	}
}

// Render returns body rendered for width columns. Empty bodies render empty.
func (m *Markdown) Render(body string, width int) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", nil
	}

	key := markdownKey(body, width)
	if out, ok := m.cache[key]; ok {
		return out, nil
	}

	r, err := m.renderer(width)
	if err != nil {
		return "", err
	}
	out, err := r.Render(body)
	if err != nil {
		return "", fmt.Errorf("tui: rendering markdown: %w", err)
	}
	out = strings.Trim(out, "\n")
	m.renders++

	if len(m.cache) >= maxMarkdownCache {
		m.cache = make(map[uint64]string)
	}
	m.cache[key] = out
	return out, nil
}

// Renders returns how many bodies were rendered rather than served from the memo.
func (m *Markdown) Renders() int {
	return m.renders
}

func (m *Markdown) renderer(width int) (*glamour.TermRenderer, error) {
	if r, ok := m.renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("tui: creating markdown renderer: %w", err)
	}
	m.renderers[width] = r
	return r, nil
}

// markdownKey hashes content and width into a memo key.
func markdownKey(content string, width int) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(content)
	_, _ = h.Write([]byte{byte(width >> 8), byte(width)})
	return h.Sum64()
}
