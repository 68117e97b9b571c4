package coa

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by document operations.
var (
	// ErrLayerNotFound reports an operation addressed to a layer
	// identifier that is not in the document.
	ErrLayerNotFound = errors.New("layer not found")

	// ErrInstanceNotFound reports an instance index out of range.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrLastInstance reports an attempt to remove a layer's only
	// instance. Layers always hold at least one seed.
	ErrLastInstance = errors.New("cannot remove the last instance of a layer")

	// ErrMergeIncompatible reports an attempt to merge layers with
	// differing emblem textures.
	ErrMergeIncompatible = errors.New("layers with different textures cannot be merged")

	// ErrSplitSingleInstance reports an attempt to split a layer that
	// holds only one instance.
	ErrSplitSingleInstance = errors.New("cannot split a layer with a single instance")

	// ErrContainerNotFound reports an operation addressed to a container
	// identifier with no member layers.
	ErrContainerNotFound = errors.New("container not found")
)

// ParseError is a parse failure with source location.
type ParseError struct {
	Message string
	Pos     Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %s", e.Message, e.Pos)
}

// CeilingError reports a symmetry configuration rejected because it would
// derive more instances than a layer may carry.
type CeilingError struct {
	Seeds   int
	Derived int
	Limit   int
}

func (e *CeilingError) Error() string {
	return fmt.Sprintf("symmetry would produce %d instances (%d seeds + %d derived), limit is %d",
		e.Seeds+e.Derived, e.Seeds, e.Derived, e.Limit)
}
