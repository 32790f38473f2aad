package logqueue

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Queue_UndisplayedMarksEntries(t *testing.T) {
	queue := New()

	queue.Append("first")
	queue.Append("second")

	pending := queue.Undisplayed()
	require.Len(t, pending, 2)
	assert.Equal(t, "first", pending[0].Message)
	assert.Equal(t, "second", pending[1].Message)

	// A second drain returns nothing until new entries arrive.
	assert.Empty(t, queue.Undisplayed())

	queue.Append("third")
	pending = queue.Undisplayed()
	require.Len(t, pending, 1)
	assert.Equal(t, "third", pending[0].Message)
}

func Test_Queue_SnapshotKeepsDisplayFlags(t *testing.T) {
	queue := New()

	queue.Append("notice")
	_ = queue.Snapshot()

	pending := queue.Undisplayed()
	require.Len(t, pending, 1, "snapshot must not mark entries displayed")

	snapshot := queue.Snapshot()
	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].Displayed)
}

func Test_Queue_DropsOldestEntriesAtCap(t *testing.T) {
	queue := New()

	for i := 0; i < maxEntries+5; i++ {
		queue.Append(strconv.Itoa(i))
	}

	require.Equal(t, maxEntries, queue.Len())

	snapshot := queue.Snapshot()
	assert.Equal(t, "5", snapshot[0].Message, "oldest entries are dropped first")
	assert.Equal(t, strconv.Itoa(maxEntries+4), snapshot[len(snapshot)-1].Message)
}

func Test_Queue_AppendIsOrdered(t *testing.T) {
	queue := New()

	for _, message := range []string{"a", "b", "c"} {
		queue.Append(message)
	}

	snapshot := queue.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "a", snapshot[0].Message)
	assert.Equal(t, "c", snapshot[2].Message)
	assert.Equal(t, 3, queue.Len())
}
