package library

// Location identifies one tracked file: a library name plus the entry key
// (slash-separated path relative to that library's root).
type Location struct {
	Library string
	Key     string
}

// less orders locations lexicographically by library name, then key.
// Resolution tie-breaking and duplicate group ordering rely on it.
func (l Location) less(other Location) bool {
	if l.Library != other.Library {
		return l.Library < other.Library
	}
	return l.Key < other.Key
}

// Resolution is the outcome of reconciling one missing entry. It has
// exactly two variants: Remap and Missing.
type Resolution interface {
	isResolution()
}

// Remap records that the file backing OldKey was found relocated to Target
// (possibly in another library) and the entry model was updated accordingly.
type Remap struct {
	OldKey string
	Target Location
}

// Missing records that no relocation candidate was found for Key. The
// stale entry is left in place: absence of a match is no evidence of true
// deletion versus a not-yet-indexed relocation.
type Missing struct {
	Key string
}

func (Remap) isResolution()   {}
func (Missing) isResolution() {}

// Added is one (key, value) pair produced by a refresh scan for a
// previously untracked file.
type Added[D any] struct {
	Key   string
	Value D
}
