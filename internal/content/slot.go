// Package content holds what the sign should currently show.
package content

import (
	"sync"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

// Item is one piece of content: a line of text with an optional icon
type Item struct {
	Text   string
	Color  ledmatrix.Color
	Sprite *ledmatrix.Sprite
}

// Slot hands the latest Item from producers (the poller) to the render
// loop. Readers never block each other.
type Slot struct {
	mu      sync.RWMutex
	item    Item
	version uint64
}

// NewSlot creates a slot holding initial
func NewSlot(initial Item) *Slot {
	return &Slot{item: initial}
}

// Set replaces the current item
func (s *Slot) Set(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.item = item
	s.version++
}

// Update replaces only the text and color, keeping the sprite
func (s *Slot) Update(text string, col ledmatrix.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item.Text == text && s.item.Color == col {
		return
	}
	s.item.Text = text
	s.item.Color = col
	s.version++
}

// Get returns the current item and its version. The version increases
// every time the content changes.
func (s *Slot) Get() (Item, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.item, s.version
}
