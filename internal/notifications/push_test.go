package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	items := make([]int, 250)
	batches := chunk(items, 100)
	assert.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[2], 50)

	assert.Empty(t, chunk([]int{}, 100))
	assert.Len(t, chunk([]int{1, 2}, 0), 1)
}
