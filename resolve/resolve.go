// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package resolve implements the Type Resolver (C5): resolving a type
// reference to its base/derived definition, propagating the built-in
// base, validating and tightening restrictions, flattening unions, and
// binding leafref paths, per spec §4.5. It is grounded on the teacher's
// restriction-kind tables (compile/compile.go's validRestrictionsType)
// and decimal64 boundary tables (schema/types.go's fdtab), generalized
// from the teacher's single-pass compile into unres.Resolver
// implementations the fixed-point engine (C6) drives to convergence.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yangforge/schema-compiler/internal/diag"
	"github.com/yangforge/schema-compiler/registry"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
	"github.com/yangforge/schema-compiler/xpath"
)

// builtins is the synthetic root namespace of the 19 YANG built-in type
// names (spec §4.5 step 2: "Built-ins live in a synthetic root
// namespace").
var builtins = map[string]schema.BaseType{
	"binary":              schema.BaseBinary,
	"bits":                schema.BaseBits,
	"boolean":             schema.BaseBoolean,
	"decimal64":           schema.BaseDecimal64,
	"empty":               schema.BaseEmpty,
	"enumeration":         schema.BaseEnumeration,
	"identityref":         schema.BaseIdentityref,
	"instance-identifier": schema.BaseInstanceIdentifier,
	"int8":                schema.BaseInt8,
	"int16":               schema.BaseInt16,
	"int32":               schema.BaseInt32,
	"int64":               schema.BaseInt64,
	"leafref":             schema.BaseLeafref,
	"string":              schema.BaseString,
	"uint8":               schema.BaseUint8,
	"uint16":              schema.BaseUint16,
	"uint32":              schema.BaseUint32,
	"uint64":              schema.BaseUint64,
	"union":               schema.BaseUnion,
}

// ScopeLookup resolves a lexical-scope typedef name the way ingest
// attaches it to a Type's enclosing node: nearest ancestor typedefs
// first, then module-level, then (if prefixed) imported modules. It
// does not look up groupings; `uses` targets are found by
// instantiate.GroupingLookup.
type ScopeLookup struct {
	Ctx *registry.Context
}

// parseTypeName splits a JSON-form type name ("[module_name:]local_name")
// per spec §4.5 step 1.
func parseTypeName(name string) (moduleName, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// LookupTypedef finds a typedef visible from node under the given
// (possibly module-qualified) name, per spec §4.5 step 2.
func (s ScopeLookup) LookupTypedef(node schema.Node, owningModule *schema.Module, name string) (*schema.Typedef, bool) {
	modName, local := parseTypeName(name)
	if modName != "" && modName != owningModule.Name.String() {
		target := s.moduleForPrefixOrName(owningModule, modName)
		if target == nil {
			return nil, false
		}
		return target.TopLevelTypedefLookup(local), target.TopLevelTypedefLookup(local) != nil
	}
	for cur := node; cur != nil; cur = cur.Common().Parent {
		if slot := schema.TypedefSlot(cur); slot != nil {
			for _, td := range *slot {
				if td.Name.String() == local {
					return td, true
				}
			}
		}
	}
	if td := owningModule.TopLevelTypedefLookup(local); td != nil {
		return td, true
	}
	return nil, false
}

func (s ScopeLookup) moduleForPrefixOrName(owner *schema.Module, prefixOrName string) *schema.Module {
	if owner.PrefixModules != nil {
		if target, ok := owner.PrefixModules[prefixOrName]; ok {
			return s.Ctx.FindModule(target, "", false)
		}
	}
	return s.Ctx.FindModule(prefixOrName, "", false)
}

// TypeDerivePayload is the Item.Payload carried by a TypeDer/TypeDerTpdf
// unres entry.
type TypeDerivePayload struct {
	Node         schema.Node // the Leaf/LeafList/Typedef/union-member owning the Type
	OwningModule *schema.Module
	InGrouping   *schema.Grouping // non-nil if Node lives inside a grouping (unres_count bookkeeping)
}

// TypeDeriveResolver resolves the TypeDer and TypeDerTpdf unres kinds
// (spec §4.5).
type TypeDeriveResolver struct {
	Scope ScopeLookup
}

func typeOf(node interface{}) *schema.Type {
	switch n := node.(type) {
	case *schema.Leaf:
		return n.Type
	case *schema.LeafList:
		return n.Type
	case *schema.Typedef:
		return n.Type
	case *schema.Type:
		return n
	}
	return nil
}

func (r TypeDeriveResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	payload := it.Payload.(*TypeDerivePayload)
	t := typeOf(it.Node)
	if t == nil {
		return unres.Err, fmt.Errorf("type-derivation unres attached to non-type node")
	}
	if t.PendingName == "" {
		return unres.Ok, nil // already resolved inline (a direct builtin)
	}
	version := schema.Version1_1
	if payload.OwningModule != nil {
		version = payload.OwningModule.Version
	}
	modName, local := parseTypeName(t.PendingName)
	if bt, ok := builtins[local]; ok && modName == "" {
		t.Base = bt
		t.PendingName = ""
		if err := r.tighten(t, version); err != nil {
			return unres.Err, err
		}
		r.retireInGrouping(payload)
		return unres.Ok, nil
	}
	td, found := r.Scope.LookupTypedef(payload.Node, payload.OwningModule, t.PendingName)
	if !found {
		return unres.Retry, nil
	}
	if td.Type.PendingName != "" {
		return unres.Retry, nil // the typedef's own base isn't resolved yet
	}
	if !schema.StatusCompatible(statusOfOwner(it.Node), td.Common.Flags.Status) {
		return unres.Err, fmt.Errorf("%s: type derives from a type of incompatible status", t.PendingName)
	}
	t.Der = td
	if t.Base == schema.BaseDerived {
		t.Base = td.Type.Base
	}
	t.PendingName = ""
	if err := r.tighten(t, version); err != nil {
		return unres.Err, err
	}
	r.retireInGrouping(payload)
	return unres.Ok, nil
}

func statusOfOwner(node interface{}) schema.Status {
	if n, ok := node.(schema.Node); ok {
		return n.Common().Flags.Status
	}
	return schema.Current
}

func (r TypeDeriveResolver) retireInGrouping(p *TypeDerivePayload) {
	if p.InGrouping != nil {
		p.InGrouping.UnresCount--
	}
}

// tighten performs spec §4.5 step 6's base-specific restriction
// validation and inheritance, plus step 7 (bit sort). It does not
// propagate valid_ext up the derivation chain, and no other code sets
// Flags.ValidExt either.
func (r TypeDeriveResolver) tighten(t *schema.Type, version schema.Version) error {
	switch t.Base {
	case schema.BaseString, schema.BaseBinary:
		if t.Der != nil && t.Length != nil && t.Der.Type.Length != nil {
			if !rangeNarrows(t.Der.Type.Length, t.Length) {
				return fmt.Errorf("length restriction does not narrow base type")
			}
		}
	case schema.BaseInt8, schema.BaseInt16, schema.BaseInt32, schema.BaseInt64,
		schema.BaseUint8, schema.BaseUint16, schema.BaseUint32, schema.BaseUint64:
		if t.Der != nil && t.Range != nil && t.Der.Type.Range != nil {
			if !rangeNarrows(t.Der.Type.Range, t.Range) {
				return fmt.Errorf("range restriction does not narrow base type")
			}
		}
	case schema.BaseDecimal64:
		if t.Der == nil {
			if t.Digits < 1 || t.Digits > 18 {
				return fmt.Errorf("decimal64 directly deriving from the builtin requires fraction-digits in 1..18")
			}
		} else {
			if t.Digits != 0 {
				return fmt.Errorf("fraction-digits is only valid when deriving decimal64 directly from the builtin")
			}
			t.Digits = t.Der.Type.Digits
			t.Divisor = t.Der.Type.Divisor
		}
		if t.Digits != 0 && t.Divisor == 0 {
			t.Divisor = pow10(t.Digits)
		}
	case schema.BaseEnumeration:
		if err := r.tightenEnum(t, version); err != nil {
			return err
		}
	case schema.BaseBits:
		if err := r.tightenBits(t, version); err != nil {
			return err
		}
		sort.Slice(t.Bits, func(i, j int) bool { return t.Bits[i].Position < t.Bits[j].Position })
	case schema.BaseUnion:
		hasPtr := false
		for _, m := range t.Members {
			if m.Base == schema.BaseLeafref || m.Base == schema.BaseInstanceIdentifier || m.HasPointerType {
				hasPtr = true
			}
		}
		t.HasPointerType = hasPtr
	}
	return nil
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

func rangeNarrows(base, derived *schema.Range) bool {
	if base == nil || len(base.Parts) == 0 {
		return true
	}
	for _, dp := range derived.Parts {
		ok := false
		for _, bp := range base.Parts {
			if partWithin(bp, dp) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func partWithin(outer, inner schema.RangePart) bool {
	if outer.Unsigned || inner.Unsigned {
		return inner.MinU >= outer.MinU && inner.MaxU <= outer.MaxU
	}
	return inner.Min >= outer.Min && inner.Max <= outer.Max
}

func (r TypeDeriveResolver) tightenEnum(t *schema.Type, version schema.Version) error {
	directlyDerived := t.Der == nil
	if directlyDerived {
		if len(t.Enums) == 0 {
			return fmt.Errorf("enumeration directly deriving from the builtin requires at least one enum")
		}
		var next int64
		for i := range t.Enums {
			if !t.Enums[i].Explicit {
				t.Enums[i].Value = next
			}
			next = t.Enums[i].Value + 1
		}
		seen := map[int64]bool{}
		for _, e := range t.Enums {
			if seen[e.Value] {
				return fmt.Errorf("duplicate enum value %d", e.Value)
			}
			seen[e.Value] = true
		}
		return nil
	}
	if len(t.Enums) == 0 {
		t.Enums = append([]schema.EnumValue(nil), t.Der.Type.Enums...)
		return nil
	}
	if version == schema.Version1_0 {
		return fmt.Errorf("enum restriction of a type not directly derived from the builtin is only allowed in YANG 1.1")
	}
	base := map[string]schema.EnumValue{}
	for _, e := range t.Der.Type.Enums {
		base[e.Name] = e
	}
	for i, e := range t.Enums {
		be, ok := base[e.Name]
		if !ok {
			return fmt.Errorf("restricted enum %q does not appear in the base type", e.Name)
		}
		if e.Explicit {
			if e.Value != be.Value {
				return fmt.Errorf("restricted enum %q value must match the base type's value", e.Name)
			}
		} else {
			t.Enums[i].Value = be.Value
		}
	}
	return nil
}

func (r TypeDeriveResolver) tightenBits(t *schema.Type, version schema.Version) error {
	directlyDerived := t.Der == nil
	if directlyDerived {
		if len(t.Bits) == 0 {
			return fmt.Errorf("bits directly deriving from the builtin requires at least one bit")
		}
		var next uint32
		for i := range t.Bits {
			if !t.Bits[i].Explicit {
				t.Bits[i].Position = next
			}
			next = t.Bits[i].Position + 1
		}
		seen := map[uint32]bool{}
		for _, b := range t.Bits {
			if seen[b.Position] {
				return fmt.Errorf("duplicate bit position %d", b.Position)
			}
			seen[b.Position] = true
		}
		return nil
	}
	if len(t.Bits) == 0 {
		t.Bits = append([]schema.BitValue(nil), t.Der.Type.Bits...)
		return nil
	}
	if version == schema.Version1_0 {
		return fmt.Errorf("bit restriction of a type not directly derived from the builtin is only allowed in YANG 1.1")
	}
	base := map[string]schema.BitValue{}
	for _, b := range t.Der.Type.Bits {
		base[b.Name] = b
	}
	for i, b := range t.Bits {
		bb, ok := base[b.Name]
		if !ok {
			return fmt.Errorf("restricted bit %q does not appear in the base type", b.Name)
		}
		if b.Explicit {
			if b.Position != bb.Position {
				return fmt.Errorf("restricted bit %q position must match the base type's position", b.Name)
			}
		} else {
			t.Bits[i].Position = bb.Position
		}
	}
	return nil
}

// IdentResolver resolves the Ident unres kind: binding an identity's
// `base` substatement(s) to the named identity definitions.
type IdentResolver struct {
	Ctx *registry.Context
}

func (r IdentResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	id := it.Node.(*schema.Identity)
	if len(id.Bases) == len(id.BaseNames) {
		return unres.Ok, nil
	}
	resolved := make([]*schema.Identity, 0, len(id.BaseNames))
	for _, name := range id.BaseNames {
		modName, local := parseTypeName(name)
		var owner *schema.Module
		if modName == "" || modName == id.ModuleRef {
			owner = r.Ctx.FindModule(id.ModuleRef, "", false)
		} else {
			owner = r.Ctx.FindModule(modName, "", false)
		}
		if owner == nil {
			return unres.Retry, nil
		}
		base := owner.IdentityByName(local)
		if base == nil {
			return unres.Retry, nil
		}
		if base == id || base.DerivesFrom(id) {
			return unres.Err, fmt.Errorf("identity %q: circular base reference through %q", id.Name, local)
		}
		resolved = append(resolved, base)
	}
	id.Bases = resolved
	for _, b := range resolved {
		b.DerivedSet = append(b.DerivedSet, id)
	}
	return unres.Ok, nil
}

// TypeIdentrefResolver resolves an identityref type's `base`
// substatement(s) (spec §4.5 step 6, identityref case).
type TypeIdentrefResolver struct {
	Ctx     *registry.Context
	Version func(moduleRef string) schema.Version
}

func (r TypeIdentrefResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	t := it.Node.(*schema.Type)
	names, ok := it.Payload.(*identrefPayload)
	if !ok {
		return unres.Err, fmt.Errorf("malformed identityref unres payload")
	}
	resolved := make([]*schema.Identity, 0, len(names.Names))
	for _, name := range names.Names {
		modName, local := parseTypeName(name)
		var owner *schema.Module
		if modName == "" {
			owner = r.Ctx.FindModule(names.OwningModule, "", false)
		} else {
			owner = r.Ctx.FindModule(modName, "", false)
		}
		if owner == nil {
			return unres.Retry, nil
		}
		id := owner.IdentityByName(local)
		if id == nil {
			return unres.Retry, nil
		}
		resolved = append(resolved, id)
	}
	if r.Version(names.OwningModule) == schema.Version1_0 && len(resolved) != 1 {
		return unres.Err, fmt.Errorf("identityref in YANG 1.0 requires exactly one base")
	}
	if len(resolved) == 0 {
		return unres.Err, fmt.Errorf("identityref requires at least one base")
	}
	t.Bases = resolved
	return unres.Ok, nil
}

// identrefPayload is the Item.Payload for an identityref's base names.
type identrefPayload struct {
	Names        []string
	OwningModule string
}

// NewIdentrefItem builds the TypeIdentref unres Item for t's base names.
func NewIdentrefItem(t *schema.Type, module string, baseNames []string, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.TypeIdentref,
		Key:     key,
		Node:    t,
		Module:  module,
		Payload: &identrefPayload{Names: baseNames, OwningModule: module},
	}
}

// LeafrefResolver resolves the TypeLeafref unres kind via the external
// xpath.Engine (spec §4.5 step 6, leafref case; §1's XPathEngine
// boundary).
type LeafrefResolver struct {
	Ctx *registry.Context
}

type leafrefPayload struct {
	Module     string
	SchemaPath []string
}

// NewLeafrefItem builds the TypeLeafref unres Item.
func NewLeafrefItem(t *schema.Type, module string, schemaPath []string, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.TypeLeafref,
		Key:     key,
		Node:    t,
		Module:  module,
		Payload: &leafrefPayload{Module: module, SchemaPath: schemaPath},
	}
}

func (r LeafrefResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	t := it.Node.(*schema.Type)
	p := it.Payload.(*leafrefPayload)
	abs, ok, err := r.Ctx.XPathEngine.ResolveLeafrefPath(t.Path, xpath.ContextNode{
		ModulePrefix: p.Module,
		SchemaPath:   p.SchemaPath,
	})
	if err != nil {
		return unres.Err, err
	}
	if !ok {
		return unres.Retry, nil
	}
	target := r.walkAbsPath(abs)
	if target == nil {
		return unres.Retry, nil
	}
	t.LeafrefTarget = target
	// Backlink registration (spec §3's Leaf.backlinks) is finished by the
	// caller that owns both the leafref's enclosing Leaf/LeafList and this
	// Type, since Type itself carries no pointer back to its owner; see
	// lifecycle.registerBacklinks, run by Load once the queue's Run returns.
	return unres.Ok, nil
}

// walkAbsPath is a minimal resolver from an absolute prefix:name path to a
// schema.Node, walking each loaded module's top-level Data and descending
// via Children(); a real deployment's xpath.Engine would hand back
// something richer, but the core only needs the final node.
func (r LeafrefResolver) walkAbsPath(abs []string) schema.Node {
	if len(abs) == 0 {
		return nil
	}
	modName, rootName := parseTypeName(abs[0])
	if modName == "" {
		return nil
	}
	mod := r.Ctx.FindModule(modName, "", false)
	if mod == nil {
		return nil
	}
	var cur schema.Node
	for _, top := range mod.Data {
		if top.Common().Name.String() == rootName {
			cur = top
			break
		}
	}
	if cur == nil {
		return nil
	}
	for _, seg := range abs[1:] {
		_, local := parseTypeName(seg)
		var next schema.Node
		for _, ch := range cur.Common().Children() {
			if ch.Common().Name.String() == local {
				next = ch
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}
