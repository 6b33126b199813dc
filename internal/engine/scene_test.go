package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneAddGameObject(t *testing.T) {
	scene := NewScene("Test")
	obj := NewGameObject("Player")

	scene.AddGameObject(obj)

	require.Len(t, scene.GameObjects, 1)
	assert.Same(t, obj, scene.GameObjects[0])
	assert.Same(t, scene, obj.Scene)
}

func TestSceneUIDLookup(t *testing.T) {
	scene := NewScene("Test")
	obj := NewGameObject("Player")
	scene.AddGameObject(obj)

	assert.Same(t, obj, scene.FindByUID(obj.UID))
	assert.Nil(t, scene.FindByUID(0))
}

func TestSceneRemoveGameObject(t *testing.T) {
	scene := NewScene("Test")
	obj1 := NewGameObject("Player")
	obj2 := NewGameObject("Enemy")
	scene.AddGameObject(obj1)
	scene.AddGameObject(obj2)

	scene.RemoveGameObject(obj1)

	require.Len(t, scene.GameObjects, 1)
	assert.Same(t, obj2, scene.GameObjects[0])
	assert.Nil(t, scene.FindByUID(obj1.UID))
	assert.Same(t, obj2, scene.FindByUID(obj2.UID))
	assert.Nil(t, obj1.Scene)
}

func TestSceneFindByName(t *testing.T) {
	scene := NewScene("Test")
	obj := NewGameObject("UniquePlayer")
	scene.AddGameObject(obj)

	assert.Same(t, obj, scene.FindByName("UniquePlayer"))
	assert.Nil(t, scene.FindByName("DoesNotExist"))
}

func TestSceneFindByTag(t *testing.T) {
	scene := NewScene("Test")
	obj1 := NewGameObject("Enemy1")
	obj2 := NewGameObject("Enemy2")
	obj3 := NewGameObject("Player")
	obj1.Tags = []string{"enemy", "ai"}
	obj2.Tags = []string{"enemy"}
	obj3.Tags = []string{"player"}
	scene.AddGameObject(obj1)
	scene.AddGameObject(obj2)
	scene.AddGameObject(obj3)

	assert.Len(t, scene.FindByTag("enemy"), 2)
	assert.Len(t, scene.FindByTag("player"), 1)
	assert.Empty(t, scene.FindByTag("nonexistent"))
}

func TestSceneRemoveWithChildren(t *testing.T) {
	scene := NewScene("Test")
	parent := NewGameObject("Parent")
	child := NewGameObject("Child")
	scene.AddGameObject(parent)
	scene.AddGameObject(child)
	parent.AddChild(child)

	counter := &destroyCounter{}
	child.AddComponent(counter)

	scene.RemoveGameObject(parent)

	assert.Empty(t, scene.GameObjects)
	assert.Nil(t, scene.FindByUID(parent.UID))
	assert.Nil(t, scene.FindByUID(child.UID))
	assert.Equal(t, 1, counter.destroyed)
}
