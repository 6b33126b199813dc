package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlabReusesSlotsWithNewGeneration(t *testing.T) {
	var s slab[string]
	a := s.insert("a")
	b := s.insert("b")
	assert.Equal(t, 2, s.len())

	assert.True(t, s.remove(a))
	assert.False(t, s.remove(a))
	_, ok := s.get(a)
	assert.False(t, ok)

	c := s.insert("c")
	assert.Equal(t, a.index, c.index)
	assert.NotEqual(t, a.generation, c.generation)

	_, ok = s.get(a)
	assert.False(t, ok, "stale handle must not see the new occupant")
	v, ok := s.get(c)
	assert.True(t, ok)
	assert.Equal(t, "c", v)
	v, _ = s.get(b)
	assert.Equal(t, "b", v)
}

func TestZeroHandlesAreInvalid(t *testing.T) {
	var s slab[int]
	s.insert(1)

	_, ok := s.get(handle{})
	assert.False(t, ok)
	assert.False(t, BodyHandle{}.IsValid())
	assert.False(t, FormHandle{}.IsValid())
	assert.True(t, BodyHandle{handle{generation: 1}}.IsValid())
}

func TestHandleOrdering(t *testing.T) {
	a := BodyHandle{handle{index: 1, generation: 3}}
	b := BodyHandle{handle{index: 2, generation: 1}}
	c := BodyHandle{handle{index: 2, generation: 2}}

	assert.True(t, a.less(b))
	assert.True(t, b.less(c))
	assert.False(t, c.less(a))
	assert.Equal(t, "body(2#1)", b.String())
}
