// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package augment implements the Augment Applier (C8): resolving an
// augment's target schema node-id, validating that the target accepts
// each augmented child's kind, inheriting config/extensions, and splicing
// the augment's children into the target's child list, per spec §4.8. It
// is grounded on the teacher's compile/augment.go (AugmentModule and its
// NodeAddChild-table walk), generalized into a unres.Resolver so the same
// target-resolution retry the type/leafref resolvers use also covers an
// augment whose target lives in a module not yet finished ingesting.
package augment

import (
	"fmt"
	"strings"

	"github.com/yangforge/schema-compiler/registry"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
)

// Payload carries the lookup context an Augment unres Item needs. Roots is
// nil for a top-level module augment (resolved by absolute schema node-id
// against the whole registry) and non-nil for an inner uses-augment
// (resolved relative to the uses-site's just-instantiated copy set - see
// instantiate.Resolver).
type Payload struct {
	OwningModule *schema.Module
	Roots        []schema.Node
}

// NewItem builds the Augment unres Item for a top-level module augment.
func NewItem(aug *schema.Augment, owningModule *schema.Module, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.Augment,
		Key:     key,
		Node:    aug,
		Module:  owningModule.Name.String(),
		Payload: &Payload{OwningModule: owningModule},
	}
}

// NewInnerItem builds the Augment unres Item for a uses' inner augment,
// resolved against roots (the uses-site's instantiated copy).
func NewInnerItem(aug *schema.Augment, owningModule *schema.Module, roots []schema.Node, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.Augment,
		Key:     key,
		Node:    aug,
		Module:  owningModule.Name.String(),
		Payload: &Payload{OwningModule: owningModule, Roots: roots},
	}
}

// Resolver resolves the Augment unres kind.
type Resolver struct {
	Ctx *registry.Context
}

func (r Resolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	aug := it.Node.(*schema.Augment)
	p := it.Payload.(*Payload)

	var target schema.Node
	var ok bool
	if p.Roots != nil {
		target, ok = findRel(p.Roots, aug.TargetPath)
	} else {
		target, ok = findAbs(r.Ctx, aug.TargetPath)
	}
	if !ok {
		return unres.Retry, nil
	}
	if err := Apply(aug, target); err != nil {
		return unres.Err, err
	}
	enqueueModImplement(r.Ctx, q, aug)
	return unres.Ok, nil
}

// allowedAugmentTarget reports whether a node of kind may be the target of
// an augment statement (spec §4.8 step 2).
func allowedAugmentTarget(k schema.Kind) bool {
	switch k {
	case schema.KindContainer, schema.KindList, schema.KindCase, schema.KindChoice,
		schema.KindInput, schema.KindOutput, schema.KindNotification:
		return true
	}
	return false
}

// allowedChildKind reports whether a child of kind childKind may be spliced
// into a target of kind targetKind, per spec §4.8 step 2's node-addchild
// table. A choice target treats its augment children as shorthand cases,
// same as a literal case child.
func allowedChildKind(targetKind, childKind schema.Kind) bool {
	switch childKind {
	case schema.KindContainer, schema.KindLeaf, schema.KindLeafList, schema.KindList,
		schema.KindChoice, schema.KindAnyData, schema.KindAnyXML, schema.KindUses:
		return true
	case schema.KindCase:
		return targetKind == schema.KindChoice
	case schema.KindNotification:
		return targetKind != schema.KindInput && targetKind != schema.KindOutput
	}
	return false
}

// onBoundary reports whether target or any of its ancestors strips config
// from its descendants (spec §4.8 step 3).
func onBoundary(target schema.Node) bool {
	for cur := target; cur != nil; cur = cur.Common().Parent {
		switch cur.Common().Kind {
		case schema.KindNotification, schema.KindInput, schema.KindOutput, schema.KindRpc, schema.KindAction:
			return true
		}
	}
	return false
}

func inheritExtensions(cc, tc *schema.Common) {
	for _, ext := range tc.Extensions {
		if ext.Inherit {
			cc.Extensions = append(cc.Extensions, ext)
		}
	}
}

// Apply splices aug's children into target, per spec §4.8 steps 2-7. It is
// idempotent: a second call on an already-applied augment is a no-op.
func Apply(aug *schema.Augment, target schema.Node) error {
	if aug.Applied {
		return nil
	}
	tc := target.Common()
	if !allowedAugmentTarget(tc.Kind) {
		return fmt.Errorf("augment %q: target %q does not accept augmentation", strings.Join(aug.TargetPath, "/"), strings.Join(schema.Path(target), "/"))
	}
	stripConfig := onBoundary(target)
	for _, ch := range aug.Common().Children() {
		cc := ch.Common()
		if !allowedChildKind(tc.Kind, cc.Kind) {
			return fmt.Errorf("augment %q: child %q of kind %s not permitted under a %s target", strings.Join(aug.TargetPath, "/"), cc.Name.String(), cc.Kind, tc.Kind)
		}
		if stripConfig {
			cc.Flags.ConfigTrue = false
			cc.Flags.ConfigExplicit = true
		} else if !cc.Flags.ConfigExplicit {
			cc.Flags.ConfigTrue = tc.Flags.ConfigTrue
		} else if cc.Flags.ConfigTrue && !tc.Flags.ConfigTrue {
			return fmt.Errorf("augment %q: child %q is config true under a config false target", strings.Join(aug.TargetPath, "/"), cc.Name.String())
		}
		inheritExtensions(cc, tc)
	}
	for _, ch := range aug.Common().Children() {
		schema.AddChild(target, ch)
	}
	aug.Applied = true
	return nil
}

// Unapply reverses Apply (spec §4.8 step 7, P3). It is a no-op when aug is
// not currently applied, so disable/enable cycles stay idempotent.
func Unapply(aug *schema.Augment) {
	if !aug.Applied {
		return
	}
	for _, ch := range aug.Common().Children() {
		if p := ch.Common().Parent; p != nil {
			schema.Unlink(p, ch)
		}
	}
	aug.Applied = false
}

// enqueueModImplement walks aug's newly-spliced subtree for leafrefs whose
// resolved target lives in an imported-but-not-implemented module, and
// enqueues that module for implementation (spec §4.8 step 6).
func enqueueModImplement(ctx *registry.Context, q *unres.Queue, aug *schema.Augment) {
	var walk func(n schema.Node)
	walk = func(n schema.Node) {
		switch t := n.(type) {
		case *schema.Leaf:
			checkLeafrefTarget(ctx, q, t.Type)
		case *schema.LeafList:
			checkLeafrefTarget(ctx, q, t.Type)
		}
		for _, ch := range n.Common().Children() {
			walk(ch)
		}
	}
	for _, ch := range aug.Common().Children() {
		walk(ch)
	}
}

func checkLeafrefTarget(ctx *registry.Context, q *unres.Queue, t *schema.Type) {
	if t == nil || t.Base != schema.BaseLeafref || t.LeafrefTarget == nil {
		return
	}
	modName := t.LeafrefTarget.Common().ModuleRef.String()
	mod := ctx.FindModule(modName, "", false)
	if mod == nil || mod.Implemented {
		return
	}
	q.Enqueue(&unres.Item{Kind: unres.ModImplement, Key: mod, Node: mod, Module: modName})
}

func splitPrefixed(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:]
		}
	}
	return "", s
}

func findTopLevel(m *schema.Module, name string) schema.Node {
	for _, n := range m.Data {
		if n.Common().Name.String() == name {
			return n
		}
	}
	for _, r := range m.Rpcs {
		if r.Name.String() == name {
			return r
		}
	}
	for _, nt := range m.Notifs {
		if nt.Name.String() == name {
			return nt
		}
	}
	return nil
}

// descend resolves one more path segment from cur, special-casing
// input/output (fields on Rpc/Action, not ordinary children).
func descend(cur schema.Node, name string) (schema.Node, bool) {
	switch n := cur.(type) {
	case *schema.Rpc:
		if name == "input" && n.Input != nil {
			return n.Input, true
		}
		if name == "output" && n.Output != nil {
			return n.Output, true
		}
		return nil, false
	case *schema.Action:
		if name == "input" && n.Input != nil {
			return n.Input, true
		}
		if name == "output" && n.Output != nil {
			return n.Output, true
		}
		return nil, false
	}
	return findByName(cur.Common().Children(), name)
}

// findByName looks through nodes for name, transparently descending into
// implicit case wrappers the way a refine/augment path expects.
func findByName(nodes []schema.Node, name string) (schema.Node, bool) {
	for _, n := range nodes {
		cc := n.Common()
		if cc.Name.String() == name {
			return n, true
		}
		if cc.Kind == schema.KindCase && cc.Flags.Implicit {
			if ch, ok := findByName(cc.Children(), name); ok {
				return ch, true
			}
		}
	}
	return nil, false
}

// findAbs resolves an absolute (module-prefixed) schema node-id against
// the registry.
func findAbs(ctx *registry.Context, path []string) (schema.Node, bool) {
	if len(path) == 0 {
		return nil, false
	}
	modName, rootName := splitPrefixed(path[0])
	if modName == "" {
		return nil, false
	}
	mod := ctx.FindModule(modName, "", false)
	if mod == nil {
		return nil, false
	}
	cur := findTopLevel(mod, rootName)
	if cur == nil {
		return nil, false
	}
	for _, seg := range path[1:] {
		_, local := splitPrefixed(seg)
		next, ok := descend(cur, local)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// findRel resolves path against roots (an inner uses-augment's descendant
// search, relative to the uses-site's instantiated copy).
func findRel(roots []schema.Node, path []string) (schema.Node, bool) {
	if len(path) == 0 {
		return nil, false
	}
	_, first := splitPrefixed(path[0])
	cur, ok := findByName(roots, first)
	if !ok {
		return nil, false
	}
	for _, seg := range path[1:] {
		_, local := splitPrefixed(seg)
		next, ok2 := descend(cur, local)
		if !ok2 {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
