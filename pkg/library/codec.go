package library

// Codec supplies the engine with everything it needs to handle an opaque
// metadata type: serialization for the persisted documents, a default value
// for newly discovered files, and a merge policy for resolution conflicts.
//
// The engine never inspects metadata values beyond these operations; the
// type and its encoding are entirely the caller's.
type Codec[T any] interface {
	// Encode serializes a value into its persisted document form.
	Encode(value T) ([]byte, error)

	// Decode parses a persisted document. An error marks the document as
	// corrupt; the engine aborts the affected library load rather than
	// dropping the entry.
	Decode(data []byte) (T, error)

	// Default returns the value assigned to a freshly discovered,
	// previously untracked file.
	Default() T

	// Merge combines the value of an entry being resolved away (stale)
	// with the value already present at the resolution target. A false
	// second return value means the two cannot be combined; the engine
	// then leaves both entries in place for manual resolution.
	Merge(stale, existing T) (T, bool)

	// Describe renders a value for logs and diagnostics.
	Describe(value T) string
}
