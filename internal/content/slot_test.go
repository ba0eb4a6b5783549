package content

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

func TestSlot(t *testing.T) {
	s := NewSlot(Item{Text: "TEST", Color: ledmatrix.Blue})

	item, v := s.Get()
	assert.Equal(t, "TEST", item.Text)
	assert.Equal(t, uint64(0), v)

	s.Set(Item{Text: "RD: delays", Color: ledmatrix.Red})
	item, v = s.Get()
	assert.Equal(t, "RD: delays", item.Text)
	assert.Equal(t, ledmatrix.Red, item.Color)
	assert.Equal(t, uint64(1), v)
}

func TestSlotUpdate(t *testing.T) {
	sprite := &ledmatrix.Sprite{}
	s := NewSlot(Item{Text: "a", Sprite: sprite})

	s.Update("a", ledmatrix.Black)
	_, v := s.Get()
	assert.Equal(t, uint64(0), v, "unchanged content keeps its version")

	s.Update("b", ledmatrix.Green)
	item, v := s.Get()
	assert.Equal(t, uint64(1), v)
	assert.Equal(t, "b", item.Text)
	assert.Same(t, sprite, item.Sprite)
}

func TestSlotConcurrent(t *testing.T) {
	s := NewSlot(Item{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set(Item{Text: fmt.Sprintf("%d-%d", i, j)})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Get()
			}
		}()
	}
	wg.Wait()

	_, v := s.Get()
	assert.Equal(t, uint64(400), v)
}
