// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"math"
	"strconv"

	"github.com/yangforge/schema-compiler/parse"
	"github.com/yangforge/schema-compiler/resolve"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
)

// buildTypedef ingests a typedef statement. enclosing is the lexical
// parent (container/list/grouping/rpc/...) used for typedef-scope
// lookups; nil at module level.
func (in *Ingest) buildTypedef(n parse.Node, m *schema.Module, enclosing schema.Node, inGrouping *schema.Grouping) *schema.Typedef {
	d := in.dict()
	td := &schema.Typedef{Common: schema.Common{
		Name:      d.Intern(n.Name()),
		ModuleRef: m.Name,
		Dsc:       d.Intern(n.Desc()),
		Ref:       d.Intern(n.Ref()),
	}}
	td.Parent = enclosing

	if tn := n.ChildByType(parse.NodeTyp); tn != nil {
		td.Type = in.buildType(tn, td, m, inGrouping)
	} else {
		td.Type = &schema.Type{}
		in.errf(m.Name.String(), schema.Path(td), "typedef %q is missing a type statement", td.Name.String())
	}

	if dn := n.ChildByType(parse.NodeDefault); dn != nil {
		in.Queue.Enqueue(resolve.NewTypedefDefaultItem(td, m.Name.String(), []string{dn.Name()}, td))
		in.bumpGrouping(inGrouping)
	}
	return td
}

// buildType ingests a type statement into a schema.Type, attaching every
// restriction present directly and enqueuing the TypeDer unres item that
// binds PendingName to its builtin/typedef definition (spec §4.5 step
// 1-2). owner is the enclosing Leaf/LeafList/Typedef/union-member's
// lexical-scope anchor for typedef lookup.
func (in *Ingest) buildType(tn parse.Node, owner schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.Type {
	t := &schema.Type{}
	idref := tn.ArgIdRef()
	t.PendingName = in.jsonForm(m, idref)

	if rn := tn.ChildByType(parse.NodeRange); rn != nil {
		t.Range = in.buildRange(rn)
	}
	if ln := tn.ChildByType(parse.NodeLength); ln != nil {
		t.Length = in.buildLength(ln)
	}
	for _, pn := range tn.ChildrenByType(parse.NodePattern) {
		t.Patterns = append(t.Patterns, in.buildPattern(pn))
	}
	for _, en := range tn.ChildrenByType(parse.NodeEnum) {
		t.Enums = append(t.Enums, in.buildEnum(en))
	}
	for _, bn := range tn.ChildrenByType(parse.NodeBit) {
		t.Bits = append(t.Bits, in.buildBit(bn))
	}
	if fd := tn.ChildByType(parse.NodeFractionDigits); fd != nil {
		t.Digits = fd.FracDigit()
	}

	if pn := tn.ChildByType(parse.NodePath); pn != nil {
		t.Path = pn.Name()
		t.RequireInstance = true
		if ri := tn.ChildByType(parse.NodeRequireInstance); ri != nil {
			t.RequireInstance = ri.ArgBool()
		}
		in.Queue.Enqueue(resolve.NewLeafrefItem(t, m.Name.String(), schema.Path(owner), t))
		in.bumpGrouping(inGrouping)
	}

	var identBases []string
	for _, bn := range tn.ChildrenByType(parse.NodeBase) {
		identBases = append(identBases, in.jsonForm(m, bn.ArgIdRef()))
	}
	if len(identBases) > 0 {
		in.Queue.Enqueue(resolve.NewIdentrefItem(t, m.Name.String(), identBases, t))
		in.bumpGrouping(inGrouping)
	}

	for _, un := range tn.ChildrenByType(parse.NodeTyp) {
		t.Members = append(t.Members, in.buildType(un, owner, m, inGrouping))
	}

	in.Queue.Enqueue(&unres.Item{
		Kind:    unres.TypeDer,
		Key:     t,
		Node:    t,
		Module:  m.Name.String(),
		Payload: &resolve.TypeDerivePayload{Node: owner, OwningModule: m, InGrouping: inGrouping},
	})
	in.bumpGrouping(inGrouping)
	return t
}

// parseBoundary parses one range/length boundary token into both its
// signed and (when non-negative) unsigned forms, so whichever base type
// the type eventually derives to finds the field it needs already
// populated (spec §4.5's range-narrowing check branches on the resolved
// base, not on anything ingest can know yet).
func parseBoundary(s string) (signed int64, unsigned uint64) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		signed = i
		if i >= 0 {
			unsigned = uint64(i)
		}
		return
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		unsigned = u
		signed = math.MaxInt64
	}
	return
}

func (in *Ingest) buildRange(rn parse.Node) *schema.Range {
	errMsg := firstChildString(rn, parse.NodeErrorMessage)
	errTag := firstChildString(rn, parse.NodeErrorAppTag)
	r := &schema.Range{}
	for _, rb := range rn.ArgRange() {
		var part schema.RangePart
		if rb.Min {
			part.Min, part.MinU = math.MinInt64, 0
		} else {
			part.Min, part.MinU = parseBoundary(rb.Start)
		}
		if rb.Max {
			part.Max, part.MaxU = math.MaxInt64, math.MaxUint64
		} else {
			part.Max, part.MaxU = parseBoundary(rb.End)
		}
		part.ErrorMessage = errMsg
		part.ErrorAppTag = errTag
		r.Parts = append(r.Parts, part)
	}
	return r
}

func (in *Ingest) buildLength(ln parse.Node) *schema.Range {
	errMsg := firstChildString(ln, parse.NodeErrorMessage)
	errTag := firstChildString(ln, parse.NodeErrorAppTag)
	r := &schema.Range{}
	for _, lb := range ln.ArgLength() {
		part := schema.RangePart{Unsigned: true}
		if !lb.Min {
			part.MinU = lb.Start
		}
		if lb.Max {
			part.MaxU = math.MaxUint64
		} else {
			part.MaxU = lb.End
		}
		part.ErrorMessage = errMsg
		part.ErrorAppTag = errTag
		r.Parts = append(r.Parts, part)
	}
	return r
}

// buildPattern ingests one pattern statement. The retained grammar front-
// end has no support for YANG 1.1's invert-match modifier (no NodeModifier
// statement type at all), so Inverted is always false; documented as a
// known grammar-layer limitation alongside the action/anydata gaps.
func (in *Ingest) buildPattern(pn parse.Node) schema.Pattern {
	return schema.Pattern{
		Source:       pn.Name(),
		Re:           pn.ArgPattern(),
		ErrorAppTag:  firstChildString(pn, parse.NodeErrorAppTag),
		ErrorMessage: firstChildString(pn, parse.NodeErrorMessage),
	}
}

func (in *Ingest) buildEnum(en parse.Node) schema.EnumValue {
	ev := schema.EnumValue{
		Name:   en.Name(),
		Status: statusOf(en.Status()),
		Dsc:    en.Desc(),
		Ref:    en.Ref(),
	}
	if vn := en.ChildByType(parse.NodeValue); vn != nil {
		ev.Value = int64(vn.ArgInt())
		ev.Explicit = true
	}
	return ev
}

func (in *Ingest) buildBit(bn parse.Node) schema.BitValue {
	bv := schema.BitValue{
		Name:   bn.Name(),
		Status: statusOf(bn.Status()),
		Dsc:    bn.Desc(),
		Ref:    bn.Ref(),
	}
	if pn := bn.ChildByType(parse.NodePosition); pn != nil {
		bv.Position = uint32(pn.ArgUint())
		bv.Explicit = true
	}
	return bv
}
