// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package unres implements the deferred-resolution engine (C6): a queue of
// typed items that is iterated to a fixed point, exactly as spec §4.6 and
// the "Two-phase resolution" design note describe it. The queue itself
// carries no resolution logic - each Kind's actual resolver is supplied
// by the owning package (resolve, instantiate, augment, deviation) and
// wired together by lifecycle, so that unres has no import-time
// dependency on any of them (avoiding the cycle that would otherwise
// result from, e.g., resolve needing unres.Queue to enqueue a retry and
// unres needing resolve to resolve one).
//
// This generalizes the teacher's approach: sdcio-yang-parser's Compiler
// resolves everything in one forward pass ordered by tsort over imports
// (compile/compile.go's ExpandModules), which is adequate for acyclic
// import graphs but cannot express the fixed-point retries spec §4.6
// requires for uses-of-grouping-with-outstanding-unres, forward leafref
// targets, and the like. Here the *outer* loop is lifecycle.Load's
// recursive import resolution, guarded against cycles by the registry's
// BeginImport/EndImport rather than by tsort, and this queue is the
// *inner* one, matching the two-phase design the spec calls for.
package unres

import "github.com/yangforge/schema-compiler/internal/diag"

// Kind enumerates the deferred-item kinds from spec §3/§4.4's catalog.
type Kind int

const (
	Ident Kind = iota
	TypeLeafref
	TypeIdentref
	TypeDer
	TypeDerTpdf
	TypeDflt
	TypedefDflt
	Iffeature
	Uses
	ListKeys
	ListUnique
	ChoiceDflt
	Augment
	XPath
	Feature
	Ext
	ExtFinalize
	ModImplement
)

func (k Kind) String() string {
	names := [...]string{
		"identity-base", "type-leafref", "type-identityref", "type-derivation",
		"typedef-derivation", "type-default", "typedef-default", "if-feature",
		"uses", "list-keys", "list-unique", "choice-default", "augment",
		"xpath", "feature", "extension", "extension-finalize",
		"module-implement",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Outcome is a resolver's verdict for one attempt at an Item.
type Outcome int

const (
	Ok Outcome = iota
	Retry
	Err
)

// Item is one deferred-resolution entry: a kind, a back-pointer to the
// node or type awaiting resolution, and a kind-specific payload (spec
// §3's Unres item: "a back-pointer to the node or type being resolved,
// and kind-specific payload").
type Item struct {
	Kind Kind

	// Key identifies the subtree this item is attached to, for the
	// deep-copy duplication rule (spec §4.6: "unres_dup(old_key, new_key)
	// clones every outstanding entry whose key equals old_key"). It is
	// typically the schema.Node the item was created against.
	Key interface{}

	// Node is the back-pointer the resolver mutates on success (a
	// schema.Node, *schema.Type, *schema.Identity, *schema.Feature, or
	// *schema.Deviation depending on Kind).
	Node interface{}

	// Module is the owning module name, for diagnostics.
	Module string

	// Payload is kind-specific: a dictionary-interned identifier, a path
	// string, a secondary pointer, etc.
	Payload interface{}

	attempts int
}

// Resolver resolves one Item. Implementations live in resolve, instantiate,
// augment, and deviation; lifecycle registers one per Kind on a Queue
// before running it.
type Resolver interface {
	Resolve(q *Queue, it *Item) (Outcome, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(q *Queue, it *Item) (Outcome, error)

func (f ResolverFunc) Resolve(q *Queue, it *Item) (Outcome, error) { return f(q, it) }

// Queue is the per-module (per spec §3's Unres lifecycle note: "The
// Unres queue is per-module during load and freed when it drains")
// deferred-resolution queue.
type Queue struct {
	items     []*Item
	resolvers map[Kind]Resolver
	// onCount fires whenever an item is enqueued or retired, once
	// installed through SetCountHook. No caller installs it: spec §4.4's
	// Grouping.UnresCount ("each time an Unres is created inside a
	// Grouping's subtree, that Grouping's unres_count is incremented;
	// resolving it decrements") is kept by ingest's bumpGrouping and the
	// resolvers' retireInGrouping instead.
	onCount func(item *Item, delta int)
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{resolvers: make(map[Kind]Resolver)}
}

// SetCountHook installs the callback invoked on enqueue (+1) and on
// retirement (-1) for every item, regardless of kind.
func (q *Queue) SetCountHook(fn func(item *Item, delta int)) {
	q.onCount = fn
}

// Register installs the Resolver for a Kind. Calling Register twice for
// the same Kind replaces the previous one.
func (q *Queue) Register(k Kind, r Resolver) {
	q.resolvers[k] = r
}

// Enqueue adds it to the queue and fires the count hook.
func (q *Queue) Enqueue(it *Item) {
	q.items = append(q.items, it)
	if q.onCount != nil {
		q.onCount(it, +1)
	}
}

// Len reports the number of items still outstanding.
func (q *Queue) Len() int { return len(q.items) }

// Dup clones every outstanding entry whose Key equals oldKey to also
// point at newKey, per spec §4.6's duplication rule for deep-copied
// subtrees (uses-instantiation, deviation save-snapshot). The duplicate's
// Node pointer must already have been rebound by the caller (instantiate/
// deviation knows how to map the original node/type pointer to its copy);
// dup therefore takes a rebind function rather than guessing.
func (q *Queue) Dup(oldKey interface{}, newKey interface{}, rebindNode func(old interface{}) (interface{}, bool)) int {
	var added []*Item
	for _, it := range q.items {
		if it.Key != oldKey {
			continue
		}
		newNode, ok := rebindNode(it.Node)
		if !ok {
			continue
		}
		dup := &Item{
			Kind:    it.Kind,
			Key:     newKey,
			Node:    newNode,
			Module:  it.Module,
			Payload: it.Payload,
		}
		added = append(added, dup)
	}
	for _, it := range added {
		q.Enqueue(it)
	}
	return len(added)
}

// Run iterates the queue to a fixed point (spec §4.6: "iterates,
// attempting each item; items that fail with Retry stay enqueued; items
// that succeed are removed; items that fail definitively surface errors.
// A full pass that makes no progress and still has items is a hard
// error"). It returns the accumulated diagnostics; Run never returns a Go
// error itself, since a sweep failing to converge is reported as
// diagnostics, not as a single fatal error (callers decide whether any
// outstanding Reference diagnostic should abort the load).
func (q *Queue) Run() *diag.List {
	var out diag.List
	for len(q.items) > 0 {
		progressed := false
		remaining := q.items[:0:0]
		for _, it := range q.items {
			r, ok := q.resolvers[it.Kind]
			if !ok {
				out.Add(diag.New(diag.System, it.Module, nil,
					"no resolver registered for unres kind %s", it.Kind))
				continue
			}
			it.attempts++
			outcome, err := r.Resolve(q, it)
			switch outcome {
			case Ok:
				progressed = true
				if q.onCount != nil {
					q.onCount(it, -1)
				}
			case Retry:
				remaining = append(remaining, it)
			case Err:
				progressed = true
				if q.onCount != nil {
					q.onCount(it, -1)
				}
				if err != nil {
					out.Add(diag.New(diag.Reference, it.Module, nil, "%s", err))
				} else {
					out.Add(diag.Unresolved(it.Module, nil, it.Kind.String()))
				}
			}
		}
		q.items = remaining
		if !progressed {
			break
		}
	}
	// Whatever remains after a no-progress sweep is a hard error (one
	// per remaining item, spec §4.6/§7).
	for _, it := range q.items {
		out.Add(diag.Unresolved(it.Module, nil, it.Kind.String()))
	}
	q.items = nil
	return &out
}

// Pending returns a snapshot of the items still outstanding, for tests and
// for Grouping.UnresCount cross-checks.
func (q *Queue) Pending() []*Item {
	out := make([]*Item, len(q.items))
	copy(out, q.items)
	return out
}
