package coa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Identifier Format
// ============================================================

func TestContainerID(t *testing.T) {
	id := NewContainerID("My Group")
	assert.Equal(t, "My Group", ContainerName(id))

	idPart, name, ok := splitContainerID(id)
	require.True(t, ok)
	assert.NotEmpty(t, idPart)
	assert.Equal(t, "My Group", name)

	// Underscores in the name survive: only the first two separators
	// structure the identifier.
	withUnderscore := NewContainerID("left_wing")
	assert.Equal(t, "left_wing", ContainerName(withUnderscore))

	_, _, ok = splitContainerID("not-a-container")
	assert.False(t, ok)
}

func TestRegenerateContainerID(t *testing.T) {
	id := NewContainerID("Group")
	fresh := regenerateContainerID(id)
	assert.NotEqual(t, id, fresh)
	assert.Equal(t, "Group", ContainerName(fresh))
}

// ============================================================
// Grouping
// ============================================================

func TestCreateContainer(t *testing.T) {
	doc := NewDocument()
	a := doc.AddLayer("a.dds", 1)
	b := doc.AddLayer("b.dds", 1)
	c := doc.AddLayer("c.dds", 1)

	// Grouping a and c pulls them together; b is displaced.
	cid, err := doc.CreateContainer([]string{a, c}, "Group")
	require.NoError(t, err)

	members := doc.ContainerMembers(cid)
	assert.Equal(t, []string{a, c}, members)

	ai, _ := doc.LayerIndex(a)
	ci, _ := doc.LayerIndex(c)
	assert.Equal(t, ai+1, ci, "members end up contiguous")

	got, err := doc.LayerContainer(b)
	require.NoError(t, err)
	assert.Empty(t, got, "unrelated layers stay at root")
}

func TestDissolveContainer(t *testing.T) {
	doc := NewDocument()
	a := doc.AddLayer("a.dds", 1)
	b := doc.AddLayer("b.dds", 1)
	cid, err := doc.CreateContainer([]string{a, b}, "Group")
	require.NoError(t, err)

	order := doc.LayerIDs()
	require.NoError(t, doc.DissolveContainer(cid))

	assert.Empty(t, doc.Containers())
	assert.Equal(t, order, doc.LayerIDs(), "dissolving keeps positions")

	assert.ErrorIs(t, doc.DissolveContainer(cid), ErrContainerNotFound)
}

func TestDuplicateContainer(t *testing.T) {
	doc := NewDocument()
	a := doc.AddLayer("a.dds", 1)
	b := doc.AddLayer("b.dds", 1)
	cid, err := doc.CreateContainer([]string{a, b}, "Group")
	require.NoError(t, err)

	copyID, err := doc.DuplicateContainer(cid)
	require.NoError(t, err)
	assert.NotEqual(t, cid, copyID)
	assert.Equal(t, "Group", ContainerName(copyID), "the copy keeps the display name")

	assert.Equal(t, 4, doc.LayerCount())
	assert.Len(t, doc.ContainerMembers(copyID), 2)

	// Copies sit directly in front of the original group.
	lastOrig, _ := doc.LayerIndex(b)
	firstCopy, _ := doc.LayerIndex(doc.ContainerMembers(copyID)[0])
	assert.Equal(t, lastOrig+1, firstCopy)
}

func TestRenameContainer(t *testing.T) {
	doc := NewDocument()
	a := doc.AddLayer("a.dds", 1)
	b := doc.AddLayer("b.dds", 1)
	cid, err := doc.CreateContainer([]string{a, b}, "Old")
	require.NoError(t, err)

	oldIDPart, _, _ := splitContainerID(cid)

	newID, err := doc.RenameContainer(cid, "New")
	require.NoError(t, err)
	assert.Equal(t, "New", ContainerName(newID))

	newIDPart, _, _ := splitContainerID(newID)
	assert.Equal(t, oldIDPart, newIDPart, "identity portion never changes")

	// Every member moved in one step.
	assert.Len(t, doc.ContainerMembers(newID), 2)
	assert.Empty(t, doc.ContainerMembers(cid))
}

// ============================================================
// Contiguity Repair
// ============================================================

func TestValidateContainers_SplitsNonContiguous(t *testing.T) {
	doc := NewDocument()
	a := doc.AddLayer("a.dds", 1)
	doc.AddLayer("b.dds", 1)
	c := doc.AddLayer("c.dds", 1)

	cid := NewContainerID("Group")
	require.NoError(t, doc.SetLayerContainer(a, cid))
	require.NoError(t, doc.SetLayerContainer(c, cid))

	// a and c are separated by b: the scan splits the second run off.
	containers := doc.Containers()
	require.Len(t, containers, 2)

	assert.Equal(t, []string{a}, doc.ContainerMembers(containers[0]))
	assert.Equal(t, cid, containers[0], "first run keeps the identifier")
	assert.Equal(t, "Group", ContainerName(containers[1]), "split run keeps the name")
	second, _ := doc.LayerContainer(c)
	assert.NotEqual(t, cid, second)
}

func TestValidateContainers_MoveBreaksGroup(t *testing.T) {
	doc := NewDocument()
	a := doc.AddLayer("a.dds", 1)
	b := doc.AddLayer("b.dds", 1)
	doc.AddLayer("c.dds", 1)
	cid, err := doc.CreateContainer([]string{a, b}, "Group")
	require.NoError(t, err)

	// Moving a member to the top strands it in its own run.
	require.NoError(t, doc.MoveLayerToTop(a))

	members := doc.ContainerMembers(cid)
	assert.Len(t, members, 1, "only the first run keeps the identifier")

	aCont, _ := doc.LayerContainer(a)
	bCont, _ := doc.LayerContainer(b)
	assert.NotEqual(t, aCont, bCont)
	assert.Equal(t, ContainerName(aCont), ContainerName(bCont))
}

func TestValidateContainers_ContiguousUntouched(t *testing.T) {
	doc := NewDocument()
	a := doc.AddLayer("a.dds", 1)
	b := doc.AddLayer("b.dds", 1)
	_, err := doc.CreateContainer([]string{a, b}, "Group")
	require.NoError(t, err)

	splits := doc.ValidateContainers()
	assert.Empty(t, splits)
}

func TestRemoveLayer_RevalidatesContainers(t *testing.T) {
	doc := NewDocument()
	a := doc.AddLayer("a.dds", 1)
	b := doc.AddLayer("b.dds", 1)
	c := doc.AddLayer("c.dds", 1)
	cid, err := doc.CreateContainer([]string{a, b, c}, "Group")
	require.NoError(t, err)

	// Removing the middle member leaves a contiguous pair.
	require.NoError(t, doc.RemoveLayer(b))
	assert.Equal(t, []string{a, c}, doc.ContainerMembers(cid))
}
