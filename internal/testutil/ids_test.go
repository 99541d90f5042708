package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceIDs_Sequence(t *testing.T) {
	gen := NewSequenceIDs("f")

	assert.Equal(t, "f-1", gen.Generate())
	assert.Equal(t, "f-2", gen.Generate())
	assert.Equal(t, "f-3", gen.Generate())
}

func TestSequenceIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "fast-1", NewSequenceIDs("").Generate())
}

func TestSequenceIDs_Reset(t *testing.T) {
	gen := NewSequenceIDs("f")
	gen.Generate()
	gen.Generate()
	gen.Reset()

	assert.Equal(t, "f-1", gen.Generate())
}

func TestSequenceIDs_ConcurrentUnique(t *testing.T) {
	gen := NewSequenceIDs("f")

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}
