// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package dict implements the process-lifetime string interner (C1 in the
// design notes): every schema identifier, namespace, and path component
// that flows through the compiler is acquired once here and compared by
// pointer identity afterwards, the same trick the teacher's
// parse.ArgInterner uses for schema-referring arguments, generalized to
// every dictionary-handle field in the schema model (module names,
// prefixes, descriptions, and the like).
package dict

import "sync"

// Handle is an opaque, pointer-equal reference to an interned byte string.
// Two handles compare equal with == iff they were acquired from the same
// underlying bytes.
type Handle struct {
	entry *entry
}

type entry struct {
	s     string
	mu    sync.Mutex
	count int
}

// Dictionary is a refcounted string interner. The zero value is ready to
// use. A Dictionary is not safe for concurrent mutation across goroutines
// without external serialization, matching the single-threaded-cooperative
// model of the rest of the core (spec §5).
type Dictionary struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns a ready-to-use Dictionary.
func New() *Dictionary {
	return &Dictionary{entries: make(map[string]*entry)}
}

// Intern returns a handle for s, incrementing its refcount. Identical byte
// sequences always yield pointer-equal handles (P1).
func (d *Dictionary) Intern(s string) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entries == nil {
		d.entries = make(map[string]*entry)
	}
	e, ok := d.entries[s]
	if !ok {
		e = &entry{s: s}
		d.entries[s] = e
	}
	e.mu.Lock()
	e.count++
	e.mu.Unlock()
	return Handle{entry: e}
}

// InternZeroCopy is identical to Intern, but documents that the caller is
// handing over bytes it will not mutate again (e.g. a buffer the grammar
// front-end owned); present as its own entry point because the teacher's
// ArgInterner distinguishes the "copy on intern" and "already-owned" paths
// for hot statement arguments.
func (d *Dictionary) InternZeroCopy(s string) Handle {
	return d.Intern(s)
}

// Drop releases one acquisition of h. When the refcount reaches zero the
// backing string is evicted from the dictionary. Dropping the zero Handle
// is a no-op.
func (d *Dictionary) Drop(h Handle) {
	if h.entry == nil {
		return
	}
	h.entry.mu.Lock()
	h.entry.count--
	c := h.entry.count
	h.entry.mu.Unlock()
	if c <= 0 {
		d.mu.Lock()
		if cur, ok := d.entries[h.entry.s]; ok && cur == h.entry {
			delete(d.entries, h.entry.s)
		}
		d.mu.Unlock()
	}
}

// String returns the interned byte string. Safe to call on the zero Handle
// (returns "").
func (h Handle) String() string {
	if h.entry == nil {
		return ""
	}
	return h.entry.s
}

// IsZero reports whether h is the zero Handle (no underlying string).
func (h Handle) IsZero() bool {
	return h.entry == nil
}

// RefCount reports the outstanding acquisition count for h's string. Exposed
// for tests validating P1.
func (d *Dictionary) RefCount(s string) int {
	d.mu.Lock()
	e, ok := d.entries[s]
	d.mu.Unlock()
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Len reports how many distinct strings are currently interned. Exposed for
// leak-detection in tests (P8: a failed load must release everything it
// acquired).
func (d *Dictionary) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
