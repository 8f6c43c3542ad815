package votes

import "errors"

var (
	// ErrVoteNotFound indicates no vote exists for the voter/subject pair
	ErrVoteNotFound = errors.New("vote not found")

	// ErrVoteAlreadyExists is returned by a store when an insert loses a race
	// against a concurrent insert for the same voter/subject pair
	ErrVoteAlreadyExists = errors.New("vote already exists")

	// ErrInvalidMagnitude rejects zero-weight votes and weights with no absolute value
	ErrInvalidMagnitude = errors.New("invalid vote magnitude: must be non-zero")

	// ErrInvalidDirection indicates the vote direction is not "up" or "down"
	ErrInvalidDirection = errors.New("invalid vote direction: must be 'up' or 'down'")

	// ErrInvalidRef indicates a reference with an empty type tag or identifier
	ErrInvalidRef = errors.New("invalid entity reference")

	// ErrUnknownType indicates a type tag that was not registered for its role
	ErrUnknownType = errors.New("unknown entity type")
)
