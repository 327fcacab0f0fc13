// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package validate implements the Validator (C10): the tree-wide checks
// that only make sense once every unres item in a module has drained -
// identifier uniqueness among siblings, mandatory-node-under-a-choice's-
// default-case, and status monotonicity between parent and child - plus
// the three unres resolvers (list keys, list unique, choice default-case)
// that the fixed-point engine needs before any of that tree-wide pass can
// run, per spec §4.10. It is grounded on the teacher's
// compile/cardinality.go and schema/validation.go style of one small
// checker function per rule, walked once over the whole tree.
package validate

import (
	"fmt"
	"strings"

	"github.com/yangforge/schema-compiler/internal/diag"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
)

// KeysResolver resolves the ListKeys unres kind: binding a list's
// space-separated key-statement argument to its direct-child Leaf nodes
// (spec §4.10 / P7).
type KeysResolver struct{}

func (KeysResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	l := it.Node.(*schema.List)
	if len(l.KeysStr) == 0 {
		return unres.Err, fmt.Errorf("list %q: key statement is empty", l.Name.String())
	}
	seen := map[string]bool{}
	keys := make([]*schema.Leaf, 0, len(l.KeysStr))
	for _, name := range l.KeysStr {
		if seen[name] {
			return unres.Err, fmt.Errorf("list %q: key %q repeated", l.Name.String(), name)
		}
		seen[name] = true
		leaf := directChildLeaf(l, name)
		if leaf == nil {
			return unres.Retry, nil
		}
		keys = append(keys, leaf)
	}
	l.Keys = keys
	return unres.Ok, nil
}

func directChildLeaf(l *schema.List, name string) *schema.Leaf {
	for _, ch := range l.Common.Children() {
		if leaf, ok := ch.(*schema.Leaf); ok && leaf.Name.String() == name {
			return leaf
		}
	}
	return nil
}

// UniqueResolver resolves the ListUnique unres kind: confirming each
// unique-statement's schema-relative paths name an existing descendant
// leaf.
type UniqueResolver struct{}

func (UniqueResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	l := it.Node.(*schema.List)
	for _, group := range l.Unique {
		for _, path := range group {
			if findRelativeLeaf(l, strings.Split(path, "/")) == nil {
				return unres.Retry, nil
			}
		}
	}
	return unres.Ok, nil
}

func findRelativeLeaf(start schema.Node, segs []string) schema.Node {
	cur := start
	for _, seg := range segs {
		_, local := splitPrefixed(seg)
		next := findByName(cur.Common().Children(), local)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func splitPrefixed(s string) (string, string) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

func findByName(nodes []schema.Node, name string) schema.Node {
	for _, n := range nodes {
		cc := n.Common()
		if cc.Name.String() == name {
			return n
		}
		if cc.Kind == schema.KindCase && cc.Flags.Implicit {
			if ch := findByName(cc.Children(), name); ch != nil {
				return ch
			}
		}
	}
	return nil
}

// ChoiceDfltResolver resolves the ChoiceDflt unres kind: confirming a
// choice's default-statement argument names one of its direct case
// children (explicit or shorthand-wrapped, spec §4.10).
type ChoiceDfltResolver struct{}

func (ChoiceDfltResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	c := it.Node.(*schema.Choice)
	for _, ch := range c.Common.Children() {
		if cs, ok := ch.(*schema.Case); ok && cs.Name.String() == c.DefaultCase.String() {
			return unres.Ok, nil
		}
	}
	return unres.Retry, nil
}

// Validate runs the tree-wide checks of spec §4.10 over m, assuming its
// unres queue has already drained. It never mutates the schema; every
// failure becomes one diag.Record rather than aborting the walk, so a
// single load surfaces every violation at once.
func Validate(m *schema.Module) *diag.List {
	var out diag.List
	for _, n := range m.Data {
		walk(m, n, &out)
	}
	for _, r := range m.Rpcs {
		if r.Input != nil {
			walkChildren(m, r.Input, &out)
		}
		if r.Output != nil {
			walkChildren(m, r.Output, &out)
		}
	}
	for _, nt := range m.Notifs {
		walkChildren(m, nt, &out)
	}
	return &out
}

func walk(m *schema.Module, n schema.Node, out *diag.List) {
	checkSiblingUniqueness(m, n, out)
	checkChoiceDefault(m, n, out)
	checkStatusMonotonic(m, n, out)
	checkListKeys(m, n, out)
	walkChildren(m, n, out)
}

func walkChildren(m *schema.Module, n schema.Node, out *diag.List) {
	for _, ch := range n.Common().Children() {
		walk(m, ch, out)
	}
}

// checkSiblingUniqueness implements RFC 7950 §6.2.1's identifier
// uniqueness rules: every data node and every case (transparently
// through shorthand case wrappers) at one level must have a distinct
// name, regardless of which case branch it sits under.
func checkSiblingUniqueness(m *schema.Module, n schema.Node, out *diag.List) {
	if n.Common().Kind != schema.KindChoice {
		seen := map[string]bool{}
		for _, ch := range n.Common().Children() {
			for _, name := range visibleNames(ch) {
				if seen[name] {
					out.Add(diag.New(diag.Semantic, m.Name.String(), schema.Path(ch),
						"duplicate identifier %q among siblings", name))
				}
				seen[name] = true
			}
		}
		return
	}
	seen := map[string]bool{}
	for _, ch := range n.Common().Children() {
		cs, ok := ch.(*schema.Case)
		if !ok {
			continue
		}
		if !cs.Flags.Implicit {
			if seen[cs.Name.String()] {
				out.Add(diag.New(diag.Semantic, m.Name.String(), schema.Path(cs),
					"duplicate case name %q", cs.Name.String()))
			}
			seen[cs.Name.String()] = true
		}
		for _, gc := range cs.Common.Children() {
			for _, name := range visibleNames(gc) {
				if seen[name] {
					out.Add(diag.New(diag.Semantic, m.Name.String(), schema.Path(gc),
						"duplicate identifier %q across choice cases", name))
				}
				seen[name] = true
			}
		}
	}
}

// visibleNames returns the externally-visible name(s) a child contributes
// to its parent's namespace: itself, unless it is an implicit (shorthand)
// case wrapper, in which case it is transparent and contributes its own
// wrapped child's name instead.
func visibleNames(n schema.Node) []string {
	cc := n.Common()
	if cc.Kind == schema.KindCase && cc.Flags.Implicit {
		var out []string
		for _, gc := range cc.Children() {
			out = append(out, visibleNames(gc)...)
		}
		return out
	}
	return []string{cc.Name.String()}
}

// checkChoiceDefault implements RFC 7950 §7.9.3: none of the default
// case's descendants may be mandatory.
func checkChoiceDefault(m *schema.Module, n schema.Node, out *diag.List) {
	c, ok := n.(*schema.Choice)
	if !ok || !c.HasDefault {
		return
	}
	for _, ch := range c.Common.Children() {
		cs, ok := ch.(*schema.Case)
		if !ok || cs.Name.String() != c.DefaultCase.String() {
			continue
		}
		if hasMandatoryDescendant(cs) {
			out.Add(diag.New(diag.Semantic, m.Name.String(), schema.Path(c),
				"choice %q: default case %q contains a mandatory node", c.Name.String(), c.DefaultCase.String()))
		}
	}
}

func hasMandatoryDescendant(n schema.Node) bool {
	for _, ch := range n.Common().Children() {
		cc := ch.Common()
		if cc.Flags.MandatoryTrue {
			return true
		}
		if l, ok := ch.(*schema.List); ok && l.Min > 0 {
			return true
		}
		if ll, ok := ch.(*schema.LeafList); ok && ll.Min > 0 {
			return true
		}
		// A nested choice only forces a value if it too is mandatory;
		// otherwise its cases are optional and do not propagate.
		if cc.Kind == schema.KindChoice && !cc.Flags.MandatoryTrue {
			continue
		}
		if hasMandatoryDescendant(ch) {
			return true
		}
	}
	return false
}

// checkStatusMonotonic flags a node whose status is "fresher" than its
// parent's (a current node nested under a deprecated/obsolete one),
// which RFC 7950 treats as meaningless (spec §4.10).
func checkStatusMonotonic(m *schema.Module, n schema.Node, out *diag.List) {
	parent := n.Common().Parent
	if parent == nil {
		return
	}
	if n.Common().Flags.Status < parent.Common().Flags.Status {
		out.Add(diag.New(diag.Semantic, m.Name.String(), schema.Path(n),
			"node status %s is fresher than its %s parent", n.Common().Flags.Status, parent.Common().Flags.Status))
	}
}

// checkListKeys enforces P7: a config=true list must carry at least one
// key, and re-checks the shape of a resolved list's keys beyond what
// KeysResolver already bound - each key must be config-consistent with
// the list and must not itself be a leafref (RFC 7950 §7.8.2).
func checkListKeys(m *schema.Module, n schema.Node, out *diag.List) {
	l, ok := n.(*schema.List)
	if !ok {
		return
	}
	if len(l.Keys) == 0 {
		if l.Flags.ConfigTrue && len(l.KeysStr) == 0 {
			out.Add(diag.New(diag.Semantic, m.Name.String(), schema.Path(l),
				"list %q is config=true but has no key statement", l.Name.String()))
		}
		return
	}
	for _, k := range l.Keys {
		if k.Flags.ConfigTrue != l.Flags.ConfigTrue {
			out.Add(diag.New(diag.Semantic, m.Name.String(), schema.Path(k),
				"list key %q must share its list's config status", k.Name.String()))
		}
		if k.Type != nil && k.Type.Base == schema.BaseLeafref {
			out.Add(diag.New(diag.Semantic, m.Name.String(), schema.Path(k),
				"list key %q must not be a leafref", k.Name.String()))
		}
	}
}
