package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/cubone/collectionview"
	"github.com/smileynet/cubone/internal/itemfile"
)

// View styles accepted by NewFactory.
const (
	StyleCard = "card"
	StyleLine = "line"
)

// ErrCardReleased is returned when a view is removed twice.
var ErrCardReleased = errors.New("tui: view already released")

// Card draws one item as a bordered card with a markdown body.
type Card struct {
	slot  *Slot
	md    *Markdown
	width int
}

// Render draws item into the card's slot.
func (c *Card) Render(item *itemfile.Item) error {
	header := fmt.Sprintf("%s %s %s", StatusIcon(item.Status), PriorityBadge(item.Priority), titleStyle.Render(item.Title))

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(tagStyle.Render(item.ID + tagSuffix(item.Tags)))

	// Border and padding take four columns.
	inner := c.width - 4
	body, err := c.md.Render(item.Body, inner)
	if err != nil {
		return fmt.Errorf("tui: card %s: %w", item.ID, err)
	}
	if body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}

	c.slot.Set(cardBorder(item.Status).Width(inner + 2).Render(b.String()))
	return nil
}

// Remove releases the card's slot.
func (c *Card) Remove() error {
	if !c.slot.Release() {
		return ErrCardReleased
	}
	return nil
}

// Line draws one item as a single line.
type Line struct {
	slot  *Slot
	width int
}

// Render draws item into the line's slot.
func (l *Line) Render(item *itemfile.Item) error {
	text := fmt.Sprintf("%s %s %s %s", StatusIcon(item.Status), PriorityBadge(item.Priority), item.ID, item.Title)
	if len(item.Tags) > 0 {
		text += " " + tagStyle.Render(tagSuffix(item.Tags))
	}
	l.slot.Set(lipgloss.NewStyle().MaxWidth(l.width).Render(text))
	return nil
}

// Remove releases the line's slot.
func (l *Line) Remove() error {
	if !l.slot.Release() {
		return ErrCardReleased
	}
	return nil
}

// FactoryOption configures NewFactory.
type FactoryOption func(*factoryConfig)

type factoryConfig struct {
	md *Markdown
}

// WithMarkdown shares md between every card the factory builds.
func WithMarkdown(md *Markdown) FactoryOption {
	return func(c *factoryConfig) {
		c.md = md
	}
}

// NewFactory returns a factory that allocates one board slot per item and
// draws it in the given style. Unknown styles fall back to cards.
func NewFactory(board *Board, style string, width int, opts ...FactoryOption) collectionview.Factory[*itemfile.Item] {
	cfg := factoryConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.md == nil {
		cfg.md = NewMarkdown("dark")
	}

	if style == StyleLine {
		return func(*itemfile.Item) collectionview.View[*itemfile.Item] {
			return &Line{slot: board.Slot(), width: width}
		}
	}
	return func(*itemfile.Item) collectionview.View[*itemfile.Item] {
		return &Card{slot: board.Slot(), md: cfg.md, width: width}
	}
}

func tagSuffix(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " #" + strings.Join(tags, " #")
}
