package rag

import "errors"

// Error kinds surfaced by the sales pipeline. Wrap them with %w and test with
// errors.Is; the HTTP layer and the response generator switch on them.
var (
	// ErrStaleContext marks short memory that outlived its TTL. It is a state
	// transition, never a failed turn.
	ErrStaleContext = errors.New("short memory expired")

	// ErrAmbiguousSlot means a slot (amp, system) is needed to pick products
	// and the user has not given it yet.
	ErrAmbiguousSlot = errors.New("slot required for disambiguation")

	// ErrNoMatch means no catalog record passed the active filters.
	ErrNoMatch = errors.New("no catalog record matches the filters")

	// ErrUnderConstrained means fewer records matched than the user asked for.
	ErrUnderConstrained = errors.New("fewer matches than requested")

	// ErrValidationRejected marks a knowledge candidate dropped by the gate.
	ErrValidationRejected = errors.New("knowledge candidate rejected")

	// ErrUpstreamUnavailable means the LLM failed after the bounded retries.
	ErrUpstreamUnavailable = errors.New("llm upstream unavailable")

	// ErrKnowledgeCorrupted means a knowledge tier could not be parsed safely.
	ErrKnowledgeCorrupted = errors.New("knowledge file corrupted")

	// ErrEmptyMessage is returned for blank chat input.
	ErrEmptyMessage = errors.New("empty message")
)
