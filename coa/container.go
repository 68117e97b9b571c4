package coa

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// containerPrefix leads every container identifier. The full format is
// container_{uuid}_{name}: a stable identity portion and a mutable
// display-name portion.
const containerPrefix = "container"

// NewContainerID mints a container identifier for the given display name.
func NewContainerID(name string) string {
	return fmt.Sprintf("%s_%s_%s", containerPrefix, uuid.NewString(), name)
}

// splitContainerID separates a container identifier into its identity and
// name portions.
func splitContainerID(id string) (idPart, name string, ok bool) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 || parts[0] != containerPrefix {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// ContainerName returns the display-name portion of a container
// identifier.
func ContainerName(id string) string {
	_, name, ok := splitContainerID(id)
	if !ok {
		return id
	}
	return name
}

// regenerateContainerID mints a fresh identity portion, keeping the name.
func regenerateContainerID(id string) string {
	return NewContainerID(ContainerName(id))
}

// ContainerSplit records one contiguity repair: a non-contiguous run of
// the old container moved to a freshly minted identifier.
type ContainerSplit struct {
	OldID      string
	NewID      string
	LayerCount int
}

// ============================================================
// Membership
// ============================================================

// LayerContainer returns the container identifier of a layer, or "" for
// root-level layers.
func (d *Document) LayerContainer(id string) (string, error) {
	l, err := d.layer(id)
	if err != nil {
		return "", err
	}
	return l.container, nil
}

// SetLayerContainer assigns a layer to a container, or to the root level
// when containerID is "". Container runs are re-validated afterward.
func (d *Document) SetLayerContainer(id, containerID string) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	l.container = containerID
	d.validateContainers()
	return nil
}

// Containers returns every container identifier with at least one member,
// ordered by first appearance in document order. A container exists only
// through its members.
func (d *Document) Containers() []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range d.order {
		c := d.layers[id].container
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ContainerMembers returns the member layer identifiers of a container in
// document order.
func (d *Document) ContainerMembers(containerID string) []string {
	var out []string
	for _, id := range d.order {
		if d.layers[id].container == containerID {
			out = append(out, id)
		}
	}
	return out
}

// ============================================================
// Container operations
// ============================================================

// CreateContainer groups the given layers under a new container. The
// members move together behind the frontmost of them, keeping their
// relative order, so the new group is contiguous from the start. Returns
// the new container identifier.
func (d *Document) CreateContainer(layerIDs []string, name string) (string, error) {
	if len(layerIDs) == 0 {
		return "", fmt.Errorf("cannot create a container from no layers")
	}

	// Order members by current position.
	var members []string
	for _, id := range d.order {
		for _, want := range layerIDs {
			if id == want {
				members = append(members, id)
			}
		}
	}
	if len(members) != len(layerIDs) {
		return "", fmt.Errorf("%w: container creation", ErrLayerNotFound)
	}

	containerID := NewContainerID(name)
	for i := 1; i < len(members); i++ {
		if err := d.MoveLayerAbove(members[i], members[i-1]); err != nil {
			return "", err
		}
	}
	for _, id := range members {
		d.layers[id].container = containerID
	}

	d.validateContainers()
	d.log.Debug().Str("container", containerID).Int("members", len(members)).Msg("container created")
	return containerID, nil
}

// DissolveContainer releases every member of a container to the root
// level. The layers keep their positions.
func (d *Document) DissolveContainer(containerID string) error {
	members := d.ContainerMembers(containerID)
	if len(members) == 0 {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
	}
	for _, id := range members {
		d.layers[id].container = ""
	}
	d.log.Debug().Str("container", containerID).Msg("container dissolved")
	return nil
}

// DuplicateContainer clones every member of a container, grouping the
// copies under a fresh identifier with the same name. The copies land
// directly in front of the original group. Returns the new container
// identifier.
func (d *Document) DuplicateContainer(containerID string) (string, error) {
	members := d.ContainerMembers(containerID)
	if len(members) == 0 {
		return "", fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
	}

	newID := regenerateContainerID(containerID)
	lastIdx, _ := d.LayerIndex(members[len(members)-1])

	for i, id := range members {
		dup := d.layers[id].clone(true)
		dup.container = newID
		d.insertLayer(lastIdx+1+i, dup)
	}

	d.validateContainers()
	d.log.Debug().Str("container", containerID).Str("copy", newID).Msg("container duplicated")
	return newID, nil
}

// RenameContainer rewrites the name portion of a container identifier on
// every member atomically; the identity portion never changes. Returns
// the updated identifier.
func (d *Document) RenameContainer(containerID, newName string) (string, error) {
	members := d.ContainerMembers(containerID)
	if len(members) == 0 {
		return "", fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
	}

	idPart, _, ok := splitContainerID(containerID)
	if !ok {
		return "", fmt.Errorf("malformed container identifier %q", containerID)
	}
	newID := fmt.Sprintf("%s_%s_%s", containerPrefix, idPart, newName)

	for _, id := range members {
		d.layers[id].container = newID
	}
	d.log.Debug().Str("container", containerID).Str("renamed", newID).Msg("container renamed")
	return newID, nil
}

// ============================================================
// Contiguity repair
// ============================================================

// ValidateContainers scans the layer order and repairs every container
// whose members are not one contiguous run: the first run keeps the
// identifier, each later run moves to a fresh identifier with the same
// name. Returns the splits performed. Structural mutations run this
// automatically; it is exposed for callers that edit containers through
// SetLayerContainer batches.
func (d *Document) ValidateContainers() []ContainerSplit {
	return d.validateContainers()
}

func (d *Document) validateContainers() []ContainerSplit {
	type run struct {
		start  int
		layers []string
	}

	// Collect member runs per container in one ordered scan.
	runsByContainer := make(map[string][]run)
	var containerOrder []string
	lastIdx := make(map[string]int)

	for idx, id := range d.order {
		c := d.layers[id].container
		if c == "" {
			continue
		}
		runs := runsByContainer[c]
		if runs == nil {
			containerOrder = append(containerOrder, c)
		}
		if len(runs) > 0 && lastIdx[c] == idx-1 {
			runs[len(runs)-1].layers = append(runs[len(runs)-1].layers, id)
		} else {
			runs = append(runs, run{start: idx, layers: []string{id}})
		}
		runsByContainer[c] = runs
		lastIdx[c] = idx
	}

	var splits []ContainerSplit
	for _, c := range containerOrder {
		runs := runsByContainer[c]
		for _, r := range runs[1:] {
			newID := regenerateContainerID(c)
			for _, id := range r.layers {
				d.layers[id].container = newID
			}
			splits = append(splits, ContainerSplit{OldID: c, NewID: newID, LayerCount: len(r.layers)})
			d.log.Debug().Str("container", c).Str("split", newID).
				Int("layers", len(r.layers)).Msg("non-contiguous container split")
		}
	}
	return splits
}
