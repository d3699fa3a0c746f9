package work

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	wt := &WorkType{ID: "experiment:projection", Priority: PriorityCritical}
	r.Register(wt)

	got := r.Get("experiment:projection")
	require.NotNil(t, got)
	assert.Equal(t, wt, got)
	assert.True(t, r.Has("experiment:projection"))
	assert.Nil(t, r.Get("missing"))
	assert.False(t, r.Has("missing"))
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()

	r.Register(&WorkType{ID: "cache:purge", Priority: PriorityLow})
	r.Register(&WorkType{ID: "cache:purge", Priority: PriorityMedium})

	assert.Equal(t, 1, r.Count())
	assert.Equal(t, PriorityMedium, r.Get("cache:purge").Priority)
}

func TestRegistry_ByPriority(t *testing.T) {
	r := NewRegistry()

	r.Register(&WorkType{ID: "experiments:prune", Priority: PriorityLow})
	r.Register(&WorkType{ID: "experiment:projection", Priority: PriorityCritical})
	r.Register(&WorkType{ID: "cache:purge", Priority: PriorityMedium})
	r.Register(&WorkType{ID: "experiment:phases", Priority: PriorityHigh})

	ordered := r.ByPriority()
	require.Len(t, ordered, 4)
	assert.Equal(t, "experiment:projection", ordered[0].ID)
	assert.Equal(t, "experiment:phases", ordered[1].ID)
	assert.Equal(t, "cache:purge", ordered[2].ID)
	assert.Equal(t, "experiments:prune", ordered[3].ID)
}

func TestRegistry_ByPriority_TiesSortedByID(t *testing.T) {
	r := NewRegistry()

	r.Register(&WorkType{ID: "b:work", Priority: PriorityMedium})
	r.Register(&WorkType{ID: "a:work", Priority: PriorityMedium})

	ordered := r.ByPriority()
	require.Len(t, ordered, 2)
	assert.Equal(t, "a:work", ordered[0].ID)
	assert.Equal(t, "b:work", ordered[1].ID)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()

	r.Register(&WorkType{ID: "cache:purge"})
	r.Remove("cache:purge")

	assert.False(t, r.Has("cache:purge"))
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.ByPriority())
}

func TestRegistry_IDs(t *testing.T) {
	r := NewRegistry()

	r.Register(&WorkType{ID: "experiment:projection"})
	r.Register(&WorkType{ID: "cache:purge"})

	assert.Equal(t, []string{"cache:purge", "experiment:projection"}, r.IDs())
}
