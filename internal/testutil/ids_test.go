package testutil

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/schema"
)

func TestDeterministicIDs_Sequence(t *testing.T) {
	ids := NewDeterministicIDs()
	assert.Equal(t, uint64(0), ids.Current())

	first := ids.ObjectID()
	second := ids.ObjectID()
	assert.NotEqual(t, first, second)
	assert.Equal(t, byte(1), first[11])
	assert.Equal(t, byte(2), second[11])

	ids.Reset()
	assert.Equal(t, first, ids.ObjectID(), "reset replays the same IDs")
}

func TestDeterministicIDs_UUIDIsVersion4(t *testing.T) {
	ids := NewDeterministicIDs()
	id := uuid.UUID(ids.UUID())
	assert.Equal(t, uuid.Version(4), id.Version())
	assert.Equal(t, uuid.RFC4122, id.Variant())
}

func TestDeterministicIDs_ConcurrentUse(t *testing.T) {
	ids := NewDeterministicIDs()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids.ObjectID()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), ids.Current())
}

func TestTaskSchema_Normalizes(t *testing.T) {
	s, err := schema.Normalize(TaskSchema())
	require.NoError(t, err)
	assert.Equal(t, TaskClasses, s.Names())
}
