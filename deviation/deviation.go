// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package deviation implements the Deviation Applier (C9): resolving a
// deviation's target, applying its ordered deviate clauses (or detaching
// the target outright for not-supported), and reverting on module
// disable, per spec §4.9. It is grounded on the teacher's
// compile/deviation.go (the not-supported detach/reattach and
// add/replace/delete property table), reusing resolve.ValidateAgainstType
// (C5) to re-check defaults against a deviated type and enqueuing the
// same TypeDer unres kind a fresh type statement would.
//
// Unlike C8's augments, a deviation is not driven through the unres.Queue:
// it targets a node in another module entirely, and spec §4.11 ties its
// application to that module's implement/disable transitions rather than
// to a retry-until-found fixed point - lifecycle calls Apply/Revert
// directly once it knows the target module is implemented.
package deviation

import (
	"fmt"
	"strings"

	"github.com/yangforge/schema-compiler/internal/dict"
	"github.com/yangforge/schema-compiler/registry"
	"github.com/yangforge/schema-compiler/resolve"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
)

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
	for _, ch := range cur.Common().Children() {
		cc := ch.Common()
		if cc.Name.String() == name {
			return ch, true
		}
		if cc.Kind == schema.KindCase && cc.Flags.Implicit {
			if gc, ok := descend(ch, name); ok {
				return gc, true
			}
		}
	}
	return nil, false
}

// FindTarget resolves path (a JSON-form schema node-id, spec §4.9 step 1)
// against the registry.
func FindTarget(ctx *registry.Context, path string) (schema.Node, bool) {
	segs := strings.Split(path, "/")
	if len(segs) == 0 || segs[0] == "" {
		return nil, false
	}
	modName, rootName := splitPrefixed(segs[0])
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
	for _, seg := range segs[1:] {
		_, local := splitPrefixed(seg)
		next, ok := descend(cur, local)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func isListKey(target schema.Node) bool {
	parent, ok := target.Common().Parent.(*schema.List)
	if !ok {
		return false
	}
	for _, k := range parent.Keys {
		if schema.Node(k) == target {
			return true
		}
	}
	return false
}

// Apply resolves dev's target and applies every deviate clause, per spec
// §4.9. q is used to re-run C5 (TypeDer) when a deviate replaces the
// target's type, and to re-validate defaults (TypeDflt) afterward.
func Apply(ctx *registry.Context, q *unres.Queue, dev *schema.Deviation) error {
	if dev.Applied {
		return nil
	}
	target, ok := FindTarget(ctx, dev.TargetPath)
	if !ok {
		return fmt.Errorf("deviation %q: target not found", dev.TargetPath)
	}
	if target.Common().ModuleRef.String() == dev.ModuleRef {
		return fmt.Errorf("deviation %q: a module cannot deviate its own definitions", dev.TargetPath)
	}

	notSupported := false
	for _, dv := range dev.Deviates {
		if dv.Kind == schema.DeviateNotSupported {
			notSupported = true
		}
	}
	if notSupported {
		if len(dev.Deviates) != 1 {
			return fmt.Errorf("deviation %q: deviate not-supported must be the only deviate", dev.TargetPath)
		}
		return applyNotSupported(dev, target)
	}

	dev.OrigNode = target
	dev.PropSnapshot = snapshot(target)
	for _, dv := range dev.Deviates {
		if err := applyOne(ctx, q, dev, target, dv); err != nil {
			return fmt.Errorf("deviation %q: %w", dev.TargetPath, err)
		}
	}
	dev.Applied = true
	switch n := target.(type) {
	case *schema.Leaf:
		if n.HasDefault {
			q.Enqueue(resolve.NewLeafDefaultItem(n, dev.ModuleRef, n.Type, []string{n.Default.String()}, dev))
		}
	case *schema.LeafList:
		if len(n.Defaults) > 0 {
			q.Enqueue(resolve.NewLeafDefaultItem(n, dev.ModuleRef, n.Type, append([]string(nil), n.Defaults...), dev))
		}
	}
	return nil
}

func applyNotSupported(dev *schema.Deviation, target schema.Node) error {
	parent := target.Common().Parent
	if parent == nil {
		return fmt.Errorf("deviation %q: target has no parent to detach from", dev.TargetPath)
	}
	if isListKey(target) {
		return fmt.Errorf("deviation %q: target is a list key, cannot be not-supported", dev.TargetPath)
	}
	dev.OrigNode = target
	dev.OrigParent = parent
	dev.OrigIndex = schema.IndexOf(parent, target)
	schema.Unlink(parent, target)
	dev.Applied = true
	return nil
}

func applyOne(ctx *registry.Context, q *unres.Queue, dev *schema.Deviation, target schema.Node, dv schema.Deviate) error {
	switch dv.Kind {
	case schema.DeviateAdd:
		return applyAdd(ctx, q, dev, target, dv)
	case schema.DeviateReplace:
		return applyReplace(ctx, q, dev, target, dv)
	case schema.DeviateDelete:
		return applyDelete(target, dv)
	}
	return nil
}

func applyAdd(ctx *registry.Context, q *unres.Queue, dev *schema.Deviation, target schema.Node, dv schema.Deviate) error {
	cc := target.Common()
	if dv.Config != nil {
		cc.Flags.ConfigTrue = *dv.Config
		cc.Flags.ConfigExplicit = true
	}
	switch n := target.(type) {
	case *schema.Leaf:
		if len(dv.Default) > 0 {
			if n.HasDefault {
				return fmt.Errorf("deviate add: default already present")
			}
			n.Default = ctx.Dict.Intern(dv.Default[0])
			n.HasDefault = true
		}
		if dv.Units != nil {
			if !n.Units.IsZero() {
				return fmt.Errorf("deviate add: units already present")
			}
			n.Units = ctx.Dict.Intern(*dv.Units)
		}
		if dv.Mandatory != nil {
			if *dv.Mandatory && n.HasDefault {
				return fmt.Errorf("deviate add: mandatory true conflicts with a default")
			}
			n.Flags.MandatoryTrue = *dv.Mandatory
		}
		n.Musts = append(n.Musts, dv.Musts...)
		if dv.Type != nil {
			return fmt.Errorf("deviate add: leaf already has a type, use replace")
		}
	case *schema.LeafList:
		if len(dv.Default) > 0 {
			n.Defaults = append(n.Defaults, dv.Default...)
		}
		if dv.Units != nil {
			if !n.Units.IsZero() {
				return fmt.Errorf("deviate add: units already present")
			}
			n.Units = ctx.Dict.Intern(*dv.Units)
		}
		if dv.Min != nil {
			n.Min = *dv.Min
		}
		if dv.Max != nil {
			n.Max = *dv.Max
		}
		n.Musts = append(n.Musts, dv.Musts...)
	case *schema.List:
		if dv.Min != nil {
			n.Min = *dv.Min
		}
		if dv.Max != nil {
			n.Max = *dv.Max
		}
		n.Musts = append(n.Musts, dv.Musts...)
		n.Unique = append(n.Unique, dv.Unique...)
	case *schema.Container, *schema.AnyData, *schema.AnyXML:
		if musts := schema.MustSlot(n); musts != nil {
			*musts = append(*musts, dv.Musts...)
		}
	}
	if dv.Type != nil {
		installType(ctx, q, dev, target, dv.Type)
	}
	return nil
}

func applyReplace(ctx *registry.Context, q *unres.Queue, dev *schema.Deviation, target schema.Node, dv schema.Deviate) error {
	cc := target.Common()
	if dv.Config != nil {
		cc.Flags.ConfigTrue = *dv.Config
		cc.Flags.ConfigExplicit = true
	}
	switch n := target.(type) {
	case *schema.Leaf:
		if len(dv.Default) > 0 {
			if !n.HasDefault {
				return fmt.Errorf("deviate replace: default not present")
			}
			n.Default = ctx.Dict.Intern(dv.Default[0])
			n.HasDefault = true
		}
		if dv.Units != nil {
			if n.Units.IsZero() {
				return fmt.Errorf("deviate replace: units not present")
			}
			n.Units = ctx.Dict.Intern(*dv.Units)
		}
		if dv.Mandatory != nil {
			n.Flags.MandatoryTrue = *dv.Mandatory
		}
	case *schema.LeafList:
		if len(dv.Default) > 0 {
			if len(n.Defaults) == 0 {
				return fmt.Errorf("deviate replace: default not present")
			}
			n.Defaults = dv.Default
		}
		if dv.Units != nil {
			if n.Units.IsZero() {
				return fmt.Errorf("deviate replace: units not present")
			}
			n.Units = ctx.Dict.Intern(*dv.Units)
		}
		if dv.Min != nil {
			n.Min = *dv.Min
		}
		if dv.Max != nil {
			n.Max = *dv.Max
		}
	case *schema.List:
		if dv.Min != nil {
			n.Min = *dv.Min
		}
		if dv.Max != nil {
			n.Max = *dv.Max
		}
	}
	if dv.Type != nil {
		installType(ctx, q, dev, target, dv.Type)
	}
	return nil
}

// installType destroys the target's current type, installs replacement,
// and re-runs C5 on it (spec §4.9 step 3's "Type:" clause). The typedef
// lexical scope for the replacement type is the deviation's own module
// (where the deviate type statement was written), not the target's.
func installType(ctx *registry.Context, q *unres.Queue, dev *schema.Deviation, target schema.Node, replacement *schema.Type) {
	nt := *replacement
	switch n := target.(type) {
	case *schema.Leaf:
		n.Type = &nt
	case *schema.LeafList:
		n.Type = &nt
	default:
		return
	}
	if nt.PendingName != "" {
		q.Enqueue(&unres.Item{
			Kind:    unres.TypeDer,
			Key:     &nt,
			Node:    &nt,
			Module:  dev.ModuleRef,
			Payload: &resolve.TypeDerivePayload{Node: target, OwningModule: ctx.FindModule(dev.ModuleRef, "", false)},
		})
	}
}

func applyDelete(target schema.Node, dv schema.Deviate) error {
	switch n := target.(type) {
	case *schema.Leaf:
		if len(dv.Default) > 0 {
			if !n.HasDefault || n.Default.String() != dv.Default[0] {
				return fmt.Errorf("deviate delete: default %q does not match current value", dv.Default[0])
			}
			n.HasDefault = false
			n.Default = dict.Handle{}
		}
		if dv.Units != nil {
			if n.Units.IsZero() || n.Units.String() != *dv.Units {
				return fmt.Errorf("deviate delete: units %q does not match current value", *dv.Units)
			}
			n.Units = dict.Handle{}
		}
		if len(dv.Musts) > 0 {
			musts, err := removeMusts(n.Musts, dv.Musts)
			if err != nil {
				return err
			}
			n.Musts = musts
		}
	case *schema.LeafList:
		if len(dv.Default) > 0 {
			defaults, err := removeValues(n.Defaults, dv.Default)
			if err != nil {
				return err
			}
			n.Defaults = defaults
		}
		if dv.Units != nil {
			if n.Units.IsZero() || n.Units.String() != *dv.Units {
				return fmt.Errorf("deviate delete: units %q does not match current value", *dv.Units)
			}
			n.Units = dict.Handle{}
		}
		if len(dv.Musts) > 0 {
			musts, err := removeMusts(n.Musts, dv.Musts)
			if err != nil {
				return err
			}
			n.Musts = musts
		}
	case *schema.List:
		if len(dv.Unique) > 0 {
			unique, err := removeUnique(n.Unique, dv.Unique)
			if err != nil {
				return err
			}
			n.Unique = unique
		}
		if len(dv.Musts) > 0 {
			musts, err := removeMusts(n.Musts, dv.Musts)
			if err != nil {
				return err
			}
			n.Musts = musts
		}
	}
	return nil
}

// removeValues drops exactly the named values, one occurrence per match,
// avoiding the trailing-index off-by-one a length-based loop invites: it
// keeps whatever is not requested for removal rather than computing how
// many entries should remain. Per spec §4.9 step 3 / §7's "Deviation
// conflict" taxonomy, deleting a value that is not currently present is
// an error rather than a silent no-op.
func removeValues(have, remove []string) ([]string, error) {
	toRemove := map[string]int{}
	for _, v := range remove {
		toRemove[v]++
	}
	avail := map[string]int{}
	for _, v := range have {
		avail[v]++
	}
	for v, want := range toRemove {
		if avail[v] < want {
			return nil, fmt.Errorf("deviate delete: value %q does not match current value", v)
		}
	}
	var out []string
	for _, v := range have {
		if toRemove[v] > 0 {
			toRemove[v]--
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func removeMusts(have, remove []schema.Must) ([]schema.Must, error) {
	var out []schema.Must
	for _, h := range have {
		drop := false
		for _, r := range remove {
			if h.Expr == r.Expr {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, h)
		}
	}
	for _, r := range remove {
		found := false
		for _, h := range have {
			if h.Expr == r.Expr {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("deviate delete: must %q does not match current value", r.Expr)
		}
	}
	return out, nil
}

func removeUnique(have, remove [][]string) ([][]string, error) {
	for _, r := range remove {
		found := false
		for _, h := range have {
			if joinEq(h, r) {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("deviate delete: unique %q does not match current value", strings.Join(r, " "))
		}
	}
	var out [][]string
	for _, h := range have {
		drop := false
		for _, r := range remove {
			if joinEq(h, r) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, h)
		}
	}
	return out, nil
}

func joinEq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// snapshot captures the small set of mutable properties a deviate
// add/replace/delete may touch, so Revert can restore them byte-for-byte
// (P4).
func snapshot(n schema.Node) map[string]interface{} {
	cc := n.Common()
	m := map[string]interface{}{
		"config":         cc.Flags.ConfigTrue,
		"configExplicit": cc.Flags.ConfigExplicit,
		"mandatory":      cc.Flags.MandatoryTrue,
	}
	switch t := n.(type) {
	case *schema.Leaf:
		m["default"] = t.Default
		m["hasDefault"] = t.HasDefault
		m["units"] = t.Units
		m["musts"] = append([]schema.Must(nil), t.Musts...)
		m["type"] = t.Type
	case *schema.LeafList:
		m["defaults"] = append([]string(nil), t.Defaults...)
		m["units"] = t.Units
		m["min"] = t.Min
		m["max"] = t.Max
		m["musts"] = append([]schema.Must(nil), t.Musts...)
		m["type"] = t.Type
	case *schema.List:
		m["min"] = t.Min
		m["max"] = t.Max
		m["musts"] = append([]schema.Must(nil), t.Musts...)
		m["unique"] = append([][]string(nil), t.Unique...)
	case *schema.Container:
		m["musts"] = append([]schema.Must(nil), t.Musts...)
	case *schema.AnyData:
		m["musts"] = append([]schema.Must(nil), t.Musts...)
	case *schema.AnyXML:
		m["musts"] = append([]schema.Must(nil), t.Musts...)
	}
	return m
}

func restore(n schema.Node, m map[string]interface{}) {
	cc := n.Common()
	cc.Flags.ConfigTrue = m["config"].(bool)
	cc.Flags.ConfigExplicit = m["configExplicit"].(bool)
	cc.Flags.MandatoryTrue = m["mandatory"].(bool)
	switch t := n.(type) {
	case *schema.Leaf:
		t.Default = m["default"].(dict.Handle)
		t.HasDefault = m["hasDefault"].(bool)
		t.Units = m["units"].(dict.Handle)
		t.Musts = m["musts"].([]schema.Must)
		t.Type = m["type"].(*schema.Type)
	case *schema.LeafList:
		t.Defaults = m["defaults"].([]string)
		t.Units = m["units"].(dict.Handle)
		t.Min = m["min"].(uint64)
		t.Max = m["max"].(uint64)
		t.Musts = m["musts"].([]schema.Must)
		t.Type = m["type"].(*schema.Type)
	case *schema.List:
		t.Min = m["min"].(uint64)
		t.Max = m["max"].(uint64)
		t.Musts = m["musts"].([]schema.Must)
		t.Unique = m["unique"].([][]string)
	case *schema.Container:
		t.Musts = m["musts"].([]schema.Must)
	case *schema.AnyData:
		t.Musts = m["musts"].([]schema.Must)
	case *schema.AnyXML:
		t.Musts = m["musts"].([]schema.Must)
	}
}

// Revert is the inverse of Apply (spec §4.9's "Revert on module disable",
// P4): restore the property snapshot, or re-attach the detached subtree
// for not-supported.
func Revert(dev *schema.Deviation) {
	if !dev.Applied {
		return
	}
	notSupported := false
	for _, dv := range dev.Deviates {
		if dv.Kind == schema.DeviateNotSupported {
			notSupported = true
		}
	}
	if notSupported {
		schema.InsertChildAt(dev.OrigParent, dev.OrigNode, dev.OrigIndex)
	} else {
		restore(dev.OrigNode, dev.PropSnapshot)
	}
	dev.Applied = false
}
