package bot

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTrackerLifecycle(t *testing.T) {
	tr := NewSearchTracker()

	assert.ErrorIs(t, tr.Start("a", "   "), ErrEmptyTerm)
	assert.Equal(t, 0, tr.Len())

	require.NoError(t, tr.Start("a", "ים"))
	require.NoError(t, tr.Start("a", " Boat "))
	term, ok := tr.Term("a")
	require.True(t, ok)
	assert.Equal(t, "Boat", term)

	assert.True(t, tr.Stop("a"))
	assert.False(t, tr.Stop("a"))
	assert.Equal(t, 0, tr.Len())
}

func TestSearchTrackerMatchIsCaseSensitivePrefix(t *testing.T) {
	tr := NewSearchTracker()
	require.NoError(t, tr.Start("a", "Boat"))
	require.NoError(t, tr.Start("b", "ים"))
	require.NoError(t, tr.Start("c", "Bo"))

	assert.Equal(t, []Match{{Sender: "a", Term: "Boat"}, {Sender: "c", Term: "Bo"}}, tr.Match("  Boat for sale"))
	assert.Empty(t, tr.Match("boat for sale"))
	assert.Empty(t, tr.Match("a Boat"))
	assert.Equal(t, []Match{{Sender: "b", Term: "ים"}}, tr.Match("ים"))
	assert.Empty(t, tr.Match("   "))
}

func TestSearchTrackerConcurrentAccess(t *testing.T) {
	tr := NewSearchTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			sender := fmt.Sprintf("s%d", i%5)
			_ = tr.Start(sender, "x")
			tr.Stop(sender)
		}(i)
		go func() {
			defer wg.Done()
			tr.Match("xyz")
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, tr.Len(), 5)
}
