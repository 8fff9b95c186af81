package tui

import "strings"

// Board is the render target shared by every item view. Each view owns one
// slot; slots keep the order in which they were allocated.
// It is not safe for concurrent use.
type Board struct {
	slots []*Slot
	draws int
}

// Slot is one view's region of the board.
type Slot struct {
	board   *Board
	content string
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{}
}

// Slot appends a new, empty slot.
func (b *Board) Slot() *Slot {
	s := &Slot{board: b}
	b.slots = append(b.slots, s)
	return s
}

// Set replaces the slot's content and counts one draw.
func (s *Slot) Set(content string) {
	s.content = content
	s.board.draws++
}

// Content returns the slot's last drawn content.
func (s *Slot) Content() string {
	return s.content
}

// Release removes the slot from its board. It reports false if the slot
// was already released.
func (s *Slot) Release() bool {
	b := s.board
	for i, cur := range b.slots {
		if cur == s {
			b.slots = append(b.slots[:i], b.slots[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of slots.
func (b *Board) Len() int {
	return len(b.slots)
}

// Draws returns the number of Set calls across all slots, released or not.
func (b *Board) Draws() int {
	return b.draws
}

// Contents returns each slot's content in board order.
func (b *Board) Contents() []string {
	out := make([]string, len(b.slots))
	for i, s := range b.slots {
		out[i] = s.content
	}
	return out
}

// String joins the slot contents, one slot per line block.
func (b *Board) String() string {
	return strings.Join(b.Contents(), "\n")
}
