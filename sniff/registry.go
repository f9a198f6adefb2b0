package sniff

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

type entry struct {
	format string
	rule   Rule
}

// Registry is a mutable, ordered mapping from format identifier to Rule.
//
// Iteration order is registration order and it is part of the contract: when
// several rules could match, the one registered first wins. Replacing a rule
// with overwrite keeps its original position.
//
// A Registry is safe for concurrent use. Every mutation publishes a new
// immutable Snapshot; a detection pins one Snapshot for its whole duration.
type Registry struct {
	mu       sync.RWMutex
	entries  []entry
	index    map[string]int
	snapshot *Snapshot
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	r := &Registry{index: make(map[string]int)}
	r.publish()
	return r
}

// NewDefaultRegistry creates a registry seeded with the built-in signatures
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// The table has unique identifiers; this cannot fail on an empty registry.
	_ = RegisterBuiltins(r, false)
	return r
}

// Global default registry (lazy initialized)
var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry seeded with built-ins.
// Thread-safe, lazy initialization
func DefaultRegistry() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewDefaultRegistry()
	})
	return globalRegistry
}

// Add inserts a rule for format. If format is already registered, Add fails
// with a DuplicateFormat error unless overwrite is true, in which case the
// rule is replaced in place. The empty identifier and FormatUnknown are
// rejected with an InvalidFormat error.
func (r *Registry) Add(format string, rule Rule, overwrite bool) error {
	if strings.TrimSpace(format) == "" || format == FormatUnknown {
		return newInvalidFormatError(format)
	}
	rule = rule.clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, exists := r.index[format]; exists {
		if !overwrite {
			return newDuplicateFormatError(format)
		}
		r.entries[i].rule = rule
	} else {
		r.index[format] = len(r.entries)
		r.entries = append(r.entries, entry{format: format, rule: rule})
	}

	r.publish()
	return nil
}

// Remove deletes the rule for format. It is a no-op if format is absent.
func (r *Registry) Remove(format string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, exists := r.index[format]
	if !exists {
		return
	}

	r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
	delete(r.index, format)
	for j := i; j < len(r.entries); j++ {
		r.index[r.entries[j].format] = j
	}

	r.publish()
}

// Get returns a copy of the rule registered for format
func (r *Registry) Get(format string) (Rule, bool) {
	return r.Snapshot().Rule(format)
}

// Has returns true if a rule is registered for format
func (r *Registry) Has(format string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[format]
	return ok
}

// Formats returns the registered identifiers in registration order
func (r *Registry) Formats() []string {
	return r.Snapshot().Formats()
}

// Len returns the number of registered rules
func (r *Registry) Len() int {
	return r.Snapshot().Len()
}

// Snapshot returns the current immutable view of the registry.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// publish rebuilds the snapshot. Callers must hold the write lock.
func (r *Registry) publish() {
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	r.snapshot = newSnapshot(entries)
}

// ProbePlan describes the byte windows a detection needs for a rule set.
type ProbePlan struct {
	// HeadLen is the longest Start pattern.
	HeadLen int

	// OffsetStart and OffsetEnd bound the region covering every
	// start-anchored offset condition. Both are zero when there is none.
	OffsetStart int64
	OffsetEnd   int64

	// TailLen is the number of trailing bytes covering every End pattern and
	// end-anchored offset condition.
	TailLen int64
}

// PrefixLen is the number of leading bytes a sequential read must consume to
// evaluate every head and start-anchored offset condition.
func (p ProbePlan) PrefixLen() int64 {
	n := int64(p.HeadLen)
	if p.OffsetEnd > n {
		n = p.OffsetEnd
	}
	return n
}

// NeedsTail reports whether any rule depends on the end of the stream
func (p ProbePlan) NeedsTail() bool {
	return p.TailLen > 0
}

// Snapshot is an immutable, consistent view of a Registry.
type Snapshot struct {
	entries     []entry
	plan        ProbePlan
	fingerprint uint64
}

func newSnapshot(entries []entry) *Snapshot {
	s := &Snapshot{entries: entries}

	first := true
	for _, e := range entries {
		rule := e.rule
		if n := maxLen(rule.Start); n > s.plan.HeadLen {
			s.plan.HeadLen = n
		}
		if n := int64(maxLen(rule.End)); n > s.plan.TailLen {
			s.plan.TailLen = n
		}
		if rule.Offset == nil {
			continue
		}
		regionLen := int64(regionLength(rule.Offset))
		switch rule.Offset.Anchor {
		case AnchorEnd:
			if rule.Offset.Offset > s.plan.TailLen {
				s.plan.TailLen = rule.Offset.Offset
			}
		default:
			start, end := rule.Offset.Offset, rule.Offset.Offset+regionLen
			if first || start < s.plan.OffsetStart {
				s.plan.OffsetStart = start
			}
			if end > s.plan.OffsetEnd {
				s.plan.OffsetEnd = end
			}
			first = false
		}
	}

	s.fingerprint = fingerprint(entries)
	return s
}

// regionLength is the number of bytes an offset condition inspects
func regionLength(m *OffsetMatch) int {
	n := maxLen(m.Patterns)
	if m.Span > n {
		return m.Span
	}
	return n
}

// fingerprint hashes the rule set, order included, so two snapshots with the
// same fingerprint classify every stream identically.
func fingerprint(entries []entry) uint64 {
	h := xxhash.New()
	var buf [8]byte

	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	writeBytes := func(b []byte) {
		writeInt(int64(len(b)))
		_, _ = h.Write(b)
	}
	writePatterns := func(tag byte, patterns [][]byte) {
		_, _ = h.Write([]byte{tag})
		writeInt(int64(len(patterns)))
		for _, p := range patterns {
			writeBytes(p)
		}
	}

	for _, e := range entries {
		writeBytes([]byte(e.format))
		writePatterns('s', e.rule.Start)
		writePatterns('e', e.rule.End)
		if off := e.rule.Offset; off != nil {
			_, _ = h.Write([]byte{'o', byte(off.Anchor)})
			writeInt(off.Offset)
			writeInt(int64(off.Span))
			writePatterns('p', off.Patterns)
		}
		if rng := e.rule.Range; rng != nil {
			_, _ = h.Write([]byte{'r', rng.Low, rng.High})
		}
		_, _ = h.Write([]byte{'x'})
		writeInt(int64(len(e.rule.Extensions)))
		for _, ext := range e.rule.Extensions {
			writeBytes([]byte(ext))
		}
		writeBytes([]byte(e.rule.Evidence))
		writeBytes([]byte(e.rule.ExtensionEvidence))
	}

	return h.Sum64()
}

// Len returns the number of rules in the snapshot
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Formats returns the identifiers in registration order
func (s *Snapshot) Formats() []string {
	formats := make([]string, len(s.entries))
	for i, e := range s.entries {
		formats[i] = e.format
	}
	return formats
}

// Rule returns a copy of the rule registered for format
func (s *Snapshot) Rule(format string) (Rule, bool) {
	for _, e := range s.entries {
		if e.format == format {
			return e.rule.clone(), true
		}
	}
	return Rule{}, false
}

// Plan returns the probe windows this rule set requires
func (s *Snapshot) Plan() ProbePlan {
	return s.plan
}

// Fingerprint returns an xxhash digest identifying the rule set
func (s *Snapshot) Fingerprint() uint64 {
	return s.fingerprint
}
