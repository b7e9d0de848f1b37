// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

var (
	// ErrNotFound is returned when a user, article, category or edition does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSelfReference is returned when an article would be marked as a
	// duplicate of itself.
	ErrSelfReference = errors.New("article cannot duplicate itself")

	// ErrAlreadyScored is returned when an article was scored by another worker.
	ErrAlreadyScored = errors.New("article already scored")

	// ErrNoEmbedding is returned when an article has no usable embedding.
	ErrNoEmbedding = errors.New("no embedding")

	// ErrInvalidStructure is returned when an edition structure places an
	// article in more than one list.
	ErrInvalidStructure = errors.New("invalid edition structure")

	// ErrEvicted is returned when a regenerated structure would drop an
	// article already published in the stored edition.
	ErrEvicted = errors.New("edition would evict a published article")
)
