// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package instantiate implements the Uses/Grouping Instantiator (C7):
// deep-copying a grouping subtree into a uses site, applying refine and
// inner-augment overlays, and rebinding unres entries that reference the
// copy, per spec §4.7. It is grounded on the teacher's
// compile/grouping.go (expandGroupings/validateGrouping cycle check),
// generalized from the teacher's single forward pass into a
// unres.Resolver the fixed-point engine retries until the grouping's own
// unres has fully drained (spec §4.6's "Uses" kind: "aborts if
// grouping.unres_count > 0").
package instantiate

import (
	"fmt"

	"github.com/yangforge/schema-compiler/augment"
	"github.com/yangforge/schema-compiler/internal/dict"
	"github.com/yangforge/schema-compiler/registry"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
)

// usesPayload carries the lookup context a Uses unres Item needs.
type usesPayload struct {
	OwningModule *schema.Module
	EnclosingNode schema.Node // the node the uses statement is a direct child of
	InGrouping    *schema.Grouping
}

// NewUsesItem builds the Uses unres Item.
func NewUsesItem(u *schema.Uses, owningModule *schema.Module, enclosing schema.Node, inGrouping *schema.Grouping, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.Uses,
		Key:     key,
		Node:    u,
		Module:  owningModule.Name.String(),
		Payload: &usesPayload{OwningModule: owningModule, EnclosingNode: enclosing, InGrouping: inGrouping},
	}
}

// GroupingLookup is the same lexical-scope walk spec §4.5 step 2
// describes for typedefs, applied to groupings instead (nearest ancestor
// grouping slot, then module-level, then imported modules via prefix).
type GroupingLookup struct {
	Ctx *registry.Context
}

func (g GroupingLookup) Lookup(node schema.Node, owningModule *schema.Module, name string) (*schema.Grouping, bool) {
	modName, local := splitModName(name)
	if modName != "" && modName != owningModule.Name.String() {
		target := g.moduleFor(owningModule, modName)
		if target == nil {
			return nil, false
		}
		gr := target.GroupingByName(local)
		return gr, gr != nil
	}
	for cur := node; cur != nil; cur = cur.Common().Parent {
		for _, ch := range cur.Common().Children() {
			if gr, ok := ch.(*schema.Grouping); ok && gr.Name.String() == local {
				return gr, true
			}
		}
	}
	if gr := owningModule.GroupingByName(local); gr != nil {
		return gr, true
	}
	return nil, false
}

func (g GroupingLookup) moduleFor(owner *schema.Module, prefixOrName string) *schema.Module {
	if owner.PrefixModules != nil {
		if target, ok := owner.PrefixModules[prefixOrName]; ok {
			return g.Ctx.FindModule(target, "", false)
		}
	}
	return g.Ctx.FindModule(prefixOrName, "", false)
}

func splitModName(name string) (string, string) {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}

// Resolver resolves the Uses unres kind (spec §4.7's `instantiate`
// operation).
type Resolver struct {
	Lookup GroupingLookup
	Dict   *dict.Dictionary
}

func (r Resolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	u := it.Node.(*schema.Uses)
	p := it.Payload.(*usesPayload)

	gr, found := r.Lookup.Lookup(u.Common.Parent, p.OwningModule, u.GroupingRef)
	if !found {
		return unres.Retry, nil
	}
	if gr.UnresCount > 0 {
		return unres.Retry, nil // step 1: grouping still has outstanding unres
	}

	parent := u.Common.Parent
	if parent == nil {
		return unres.Err, fmt.Errorf("uses %q: no enclosing node to instantiate into", u.GroupingRef)
	}

	copies := Instantiate(gr, parent, u.Common.ModuleRef.String(), r.Dict)

	// Deep-copy unres duplication (spec §9's design note, §4.7 step 2's
	// "XPath dependency tagging is re-run for the copy via new Unres
	// entries"): every outstanding item keyed to a node or Type inside the
	// grouping's original subtree gets a duplicate pointed at the
	// corresponding copy, so resolving the original later (e.g. a leafref
	// the grouping shares with another uses site) does not leave this
	// copy's own XPath/leafref/identityref/list-keys/list-unique/choice-
	// default/augment items permanently unresolved.
	pairs := make(map[interface{}]interface{})
	orig := gr.Common.Children()
	for i, c := range copies {
		if i < len(orig) {
			collectDupPairs(orig[i], c, pairs)
		}
	}
	for oldKey, newKey := range pairs {
		q.Dup(oldKey, newKey, func(old interface{}) (interface{}, bool) {
			newVal, ok := pairs[old]
			return newVal, ok
		})
	}

	if err := ApplyRefines(copies, u.Refines, r.Dict); err != nil {
		return unres.Err, err
	}

	// Inner augments of this uses target descendants of the copy (spec
	// §4.7 step 4); the caller (lifecycle) installs its own Augment
	// resolver, so we simply enqueue them here with the copy as their
	// resolution root.
	for _, aug := range u.Augments {
		q.Enqueue(augment.NewInnerItem(aug, p.OwningModule, copies, aug))
	}

	for _, c := range copies {
		schema.AddChild(parent, c)
	}

	// Remove the uses placeholder itself from its parent's child list -
	// it has now been replaced by its instantiated children.
	schema.Unlink(parent, u)

	if p.InGrouping != nil {
		p.InGrouping.UnresCount--
	}
	return unres.Ok, nil
}

// Instantiate deep-copies grouping's children under newParent, adjusting
// module ownership and inheriting config/status per spec §4.7 step 2. It
// does not attach the copies to newParent (callers decide splice order);
// it returns them so ApplyRefines and inner-augment lookup can run first.
func Instantiate(gr *schema.Grouping, newParent schema.Node, newModuleRef string, d *dict.Dictionary) []schema.Node {
	parentFlags := newParent.Common().Flags
	moduleHandle := d.Intern(newModuleRef)
	out := make([]schema.Node, 0, len(gr.Common.Children()))
	for _, orig := range gr.Common.Children() {
		cp := orig.Clone(newParent)
		rebind(cp, moduleHandle, parentFlags, newParent.Common().Kind)
		out = append(out, cp)
	}
	return out
}

// rebind walks a freshly cloned subtree, applying the module-ownership and
// config/status inheritance rules of spec §4.7 step 2.
func rebind(n schema.Node, moduleRef dict.Handle, parentFlags schema.Flags, parentKind schema.Kind) {
	cc := n.Common()
	cc.ModuleRef = moduleRef

	erasesConfig := parentKind == schema.KindInput || parentKind == schema.KindOutput ||
		parentKind == schema.KindRpc || parentKind == schema.KindAction || parentKind == schema.KindNotification
	if !cc.Flags.ConfigExplicit && !erasesConfig {
		cc.Flags.ConfigTrue = parentFlags.ConfigTrue
	}
	if !cc.Flags.ConfigExplicit && erasesConfig {
		cc.Flags.ConfigTrue = false
	}

	if statusStronger(parentFlags.Status, cc.Flags.Status) {
		cc.Flags.Status = parentFlags.Status
	}

	for _, ch := range cc.Children() {
		rebind(ch, moduleRef, cc.Flags, cc.Kind)
	}
}

func statusStronger(a, b schema.Status) bool { return a > b }

// collectDupPairs walks orig (a node in the grouping's original subtree)
// and cp (its freshly cloned counterpart) in lockstep, registering every
// (original, copy) pointer pair - nodes, their Type (recursing into union
// Members), and their Typedefs - into pairs so the caller can drive
// unres.Queue.Dup off the result (spec §9's deep-copy duplication note).
func collectDupPairs(orig, cp schema.Node, pairs map[interface{}]interface{}) {
	pairs[orig] = cp
	collectTypeDupPairs(nodeType(orig), nodeType(cp), pairs)

	origTypedefs, cpTypedefs := nodeTypedefSlot(orig), nodeTypedefSlot(cp)
	for i, otd := range origTypedefs {
		if i >= len(cpTypedefs) {
			break
		}
		ctd := cpTypedefs[i]
		pairs[otd] = ctd
		collectTypeDupPairs(otd.Type, ctd.Type, pairs)
	}

	origChildren, cpChildren := orig.Common().Children(), cp.Common().Children()
	for i, oc := range origChildren {
		if i >= len(cpChildren) {
			break
		}
		collectDupPairs(oc, cpChildren[i], pairs)
	}
}

func collectTypeDupPairs(orig, cp *schema.Type, pairs map[interface{}]interface{}) {
	if orig == nil || cp == nil {
		return
	}
	pairs[orig] = cp
	for i, om := range orig.Members {
		if i >= len(cp.Members) {
			break
		}
		collectTypeDupPairs(om, cp.Members[i], pairs)
	}
}

// nodeType returns n's own Type field (Leaf/LeafList only - a Typedef's
// Type is reached via nodeTypedefSlot instead, since Typedef is not itself
// a schema.Node).
func nodeType(n schema.Node) *schema.Type {
	switch v := n.(type) {
	case *schema.Leaf:
		return v.Type
	case *schema.LeafList:
		return v.Type
	default:
		return nil
	}
}

func nodeTypedefSlot(n schema.Node) []*schema.Typedef {
	if s := schema.TypedefSlot(n); s != nil {
		return *s
	}
	return nil
}
