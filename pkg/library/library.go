package library

// Library is one named root directory together with its tracked entries
// and library-level metadata.
//
// Libraries are created, addressed, and mutated through a Registry; the
// accessors here are read-only views. The dirty flag tracks whether the
// library record (name, root, metadata) diverged from the last written
// configuration document.
type Library[D, LD any] struct {
	name    string
	root    string
	data    LD
	exclude []string

	store *Store[D]
	dirty bool
}

// Name returns the library's registry name.
func (l *Library[D, LD]) Name() string {
	return l.name
}

// Root returns the library's absolute root path.
func (l *Library[D, LD]) Root() string {
	return l.root
}

// Metadata returns the library-level metadata value.
func (l *Library[D, LD]) Metadata() LD {
	return l.data
}

// Exclude returns the scan exclude patterns configured for this library.
func (l *Library[D, LD]) Exclude() []string {
	return append([]string(nil), l.exclude...)
}

// Store returns the library's entry store.
func (l *Library[D, LD]) Store() *Store[D] {
	return l.store
}

// Dirty reports whether the library record needs to be written back to the
// configuration document.
func (l *Library[D, LD]) Dirty() bool {
	return l.dirty
}
