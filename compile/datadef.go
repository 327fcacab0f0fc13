// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"strings"

	"github.com/yangforge/schema-compiler/instantiate"
	"github.com/yangforge/schema-compiler/parse"
	"github.com/yangforge/schema-compiler/resolve"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
)

// buildDataDef dispatches one data-definition statement (or a nested
// grouping) to its kind-specific builder, attaching the result to parent
// (nil for a top-level module child). Returns nil for any statement type
// isDataDefType did not already accept, so callers can range over mixed
// children without filtering twice.
func (in *Ingest) buildDataDef(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) schema.Node {
	switch nd.Type() {
	case parse.NodeContainer:
		return in.buildContainer(nd, parent, m, inGrouping)
	case parse.NodeLeaf:
		return in.buildLeaf(nd, parent, m, inGrouping)
	case parse.NodeLeafList:
		return in.buildLeafList(nd, parent, m, inGrouping)
	case parse.NodeList:
		return in.buildList(nd, parent, m, inGrouping)
	case parse.NodeChoice:
		return in.buildChoice(nd, parent, m, inGrouping)
	case parse.NodeAnyxml:
		return in.buildAnyxml(nd, parent, m, inGrouping)
	case parse.NodeUses:
		return in.buildUses(nd, parent, m, inGrouping)
	case parse.NodeGrouping:
		return in.buildGrouping(nd, parent, m, inGrouping)
	default:
		return nil
	}
}

func (in *Ingest) newNamed(kind schema.Kind, nd parse.Node, m *schema.Module) schema.Node {
	return schema.NewNode(kind, in.dict().Intern(nd.Name()), m.Name)
}

func (in *Ingest) buildContainer(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.Container {
	c := in.newNamed(schema.KindContainer, nd, m).(*schema.Container)
	if parent != nil {
		schema.AddChild(parent, c)
	}
	in.applyCommon(&c.Common, nd, m, inGrouping)
	c.When = in.buildWhen(nd)
	c.Musts = in.buildMusts(nd)
	in.tagXPath(c, m, inGrouping)
	if pn := nd.ChildByType(parse.NodePresence); pn != nil {
		c.Presence = true
		c.PresenceMsg = in.dict().Intern(pn.Name())
	}
	for _, td := range nd.ChildrenByType(parse.NodeTypedef) {
		c.Typedefs = append(c.Typedefs, in.buildTypedef(td, m, c, inGrouping))
	}
	for _, gr := range nd.ChildrenByType(parse.NodeGrouping) {
		in.buildGrouping(gr, c, m, inGrouping)
	}
	for _, ch := range nd.Children() {
		if in.isDataDefType(ch.Type()) && ch.Type() != parse.NodeGrouping {
			in.buildDataDef(ch, c, m, inGrouping)
		}
	}
	for _, notif := range nd.ChildrenByType(parse.NodeNotification) {
		in.buildNotification(notif, c, m, inGrouping)
	}
	return c
}

func (in *Ingest) buildLeaf(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.Leaf {
	l := in.newNamed(schema.KindLeaf, nd, m).(*schema.Leaf)
	if parent != nil {
		schema.AddChild(parent, l)
	}
	in.applyCommon(&l.Common, nd, m, inGrouping)
	l.When = in.buildWhen(nd)
	l.Musts = in.buildMusts(nd)
	in.tagXPath(l, m, inGrouping)
	l.Units = in.dict().Intern(nd.Units())

	if tn := nd.ChildByType(parse.NodeTyp); tn != nil {
		l.Type = in.buildType(tn, l, m, inGrouping)
	} else {
		l.Type = &schema.Type{}
		in.errf(m.Name.String(), schema.Path(l), "leaf %q is missing a type statement", l.Name.String())
	}

	if nd.HasDef() {
		def := nd.Def()
		l.Default = in.dict().Intern(def)
		l.HasDefault = true
		in.Queue.Enqueue(resolve.NewLeafDefaultItem(l, m.Name.String(), l.Type, []string{def}, l))
		in.bumpGrouping(inGrouping)
	}
	if nd.Mandatory() {
		if l.HasDefault {
			in.errf(m.Name.String(), schema.Path(l), "leaf %q cannot be both mandatory and carry a default", l.Name.String())
		} else {
			l.Flags.MandatoryTrue = true
		}
	}
	return l
}

func (in *Ingest) buildLeafList(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.LeafList {
	ll := in.newNamed(schema.KindLeafList, nd, m).(*schema.LeafList)
	if parent != nil {
		schema.AddChild(parent, ll)
	}
	in.applyCommon(&ll.Common, nd, m, inGrouping)
	ll.When = in.buildWhen(nd)
	ll.Musts = in.buildMusts(nd)
	in.tagXPath(ll, m, inGrouping)
	ll.Units = in.dict().Intern(nd.Units())
	ll.Min, ll.Max = uint64(nd.Min()), uint64(nd.Max())
	if nd.OrdBy() == "user" {
		ll.Flags.UserOrdered = true
	}

	if tn := nd.ChildByType(parse.NodeTyp); tn != nil {
		ll.Type = in.buildType(tn, ll, m, inGrouping)
	} else {
		ll.Type = &schema.Type{}
		in.errf(m.Name.String(), schema.Path(ll), "leaf-list %q is missing a type statement", ll.Name.String())
	}

	for _, dn := range nd.ChildrenByType(parse.NodeDefault) {
		ll.Defaults = append(ll.Defaults, dn.Name())
	}
	if len(ll.Defaults) > 0 {
		if m.Version == schema.Version1_0 && len(ll.Defaults) > 1 {
			in.errf(m.Name.String(), schema.Path(ll), "leaf-list %q: multiple defaults require YANG 1.1", ll.Name.String())
		}
		in.Queue.Enqueue(resolve.NewLeafDefaultItem(ll, m.Name.String(), ll.Type, append([]string(nil), ll.Defaults...), ll))
		in.bumpGrouping(inGrouping)
	}
	return ll
}

func (in *Ingest) buildList(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.List {
	l := in.newNamed(schema.KindList, nd, m).(*schema.List)
	if parent != nil {
		schema.AddChild(parent, l)
	}
	in.applyCommon(&l.Common, nd, m, inGrouping)
	l.When = in.buildWhen(nd)
	l.Musts = in.buildMusts(nd)
	in.tagXPath(l, m, inGrouping)
	l.Min, l.Max = uint64(nd.Min()), uint64(nd.Max())
	if nd.OrdBy() == "user" {
		l.Flags.UserOrdered = true
	}
	l.KeysStr = nd.Keys()

	for _, un := range nd.ChildrenByType(parse.NodeUnique) {
		var one []string
		for _, segs := range un.ArgUnique() {
			one = append(one, strings.Join(in.jsonPath(m, segs), "/"))
		}
		l.Unique = append(l.Unique, one)
	}

	for _, td := range nd.ChildrenByType(parse.NodeTypedef) {
		l.Typedefs = append(l.Typedefs, in.buildTypedef(td, m, l, inGrouping))
	}
	for _, gr := range nd.ChildrenByType(parse.NodeGrouping) {
		in.buildGrouping(gr, l, m, inGrouping)
	}
	for _, ch := range nd.Children() {
		if in.isDataDefType(ch.Type()) && ch.Type() != parse.NodeGrouping {
			in.buildDataDef(ch, l, m, inGrouping)
		}
	}
	for _, notif := range nd.ChildrenByType(parse.NodeNotification) {
		in.buildNotification(notif, l, m, inGrouping)
	}

	if len(l.KeysStr) > 0 {
		in.Queue.Enqueue(&unres.Item{Kind: unres.ListKeys, Key: l, Node: l, Module: m.Name.String()})
		in.bumpGrouping(inGrouping)
	}
	if len(l.Unique) > 0 {
		in.Queue.Enqueue(&unres.Item{Kind: unres.ListUnique, Key: l, Node: l, Module: m.Name.String()})
		in.bumpGrouping(inGrouping)
	}
	return l
}

func (in *Ingest) buildChoice(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.Choice {
	c := in.newNamed(schema.KindChoice, nd, m).(*schema.Choice)
	if parent != nil {
		schema.AddChild(parent, c)
	}
	in.applyCommon(&c.Common, nd, m, inGrouping)
	c.When = in.buildWhen(nd)
	in.tagXPath(c, m, inGrouping)
	if nd.HasDef() {
		c.DefaultCase = in.dict().Intern(nd.Def())
		c.HasDefault = true
	}
	if nd.Mandatory() {
		c.Flags.MandatoryTrue = true
	}
	for _, ch := range nd.Children() {
		switch {
		case ch.Type() == parse.NodeCase:
			in.buildCase(ch, c, m, inGrouping)
		case in.isDataDefType(ch.Type()):
			in.buildImplicitCase(ch, c, m, inGrouping)
		}
	}
	if c.HasDefault {
		in.Queue.Enqueue(&unres.Item{Kind: unres.ChoiceDflt, Key: c, Node: c, Module: m.Name.String()})
		in.bumpGrouping(inGrouping)
	}
	return c
}

// buildCase ingests a case statement. parent is typically the enclosing
// Choice, but an augment whose target is a choice also contains literal
// case children directly (RFC 7950 §7.17: "If the target node is a
// choice node, the 'case' ... statements are copied"), so this takes the
// general schema.Node rather than *schema.Choice.
func (in *Ingest) buildCase(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.Case {
	cs := in.newNamed(schema.KindCase, nd, m).(*schema.Case)
	schema.AddChild(parent, cs)
	in.applyCommon(&cs.Common, nd, m, inGrouping)
	cs.When = in.buildWhen(nd)
	in.tagXPath(cs, m, inGrouping)
	for _, ch := range nd.Children() {
		if in.isDataDefType(ch.Type()) {
			in.buildDataDef(ch, cs, m, inGrouping)
		}
	}
	return cs
}

// buildImplicitCase wraps a choice's shorthand data-def child (RFC 7950
// §7.9.2: "If a case is added using a short-hand notation ... the
// identifier of the case node is the identifier of the short-hand node")
// in a Case named after the shorthand node and carrying Flags.Implicit,
// so augment/refine target
// paths (which always name the wrapped node directly, never a synthetic
// case) can tell the two apart; see instantiate.findByName.
func (in *Ingest) buildImplicitCase(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.Case {
	cs := &schema.Case{Common: schema.Common{
		Name:      in.dict().Intern(nd.Name()),
		ModuleRef: m.Name,
		Kind:      schema.KindCase,
	}}
	cs.Flags.Implicit = true
	schema.AddChild(parent, cs)
	in.buildDataDef(nd, cs, m, inGrouping)
	return cs
}

func (in *Ingest) buildAnyxml(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.AnyXML {
	a := in.newNamed(schema.KindAnyXML, nd, m).(*schema.AnyXML)
	if parent != nil {
		schema.AddChild(parent, a)
	}
	in.applyCommon(&a.Common, nd, m, inGrouping)
	a.When = in.buildWhen(nd)
	a.Musts = in.buildMusts(nd)
	in.tagXPath(a, m, inGrouping)
	if nd.Mandatory() {
		a.Flags.MandatoryTrue = true
	}
	return a
}

func (in *Ingest) buildUses(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.Uses {
	u := in.newNamed(schema.KindUses, nd, m).(*schema.Uses)
	if parent != nil {
		schema.AddChild(parent, u)
	}
	in.applyCommon(&u.Common, nd, m, inGrouping)
	u.When = in.buildWhen(nd)
	in.tagXPath(u, m, inGrouping)
	u.GroupingRef = in.jsonForm(m, nd.ArgIdRef())

	for _, rn := range nd.ChildrenByType(parse.NodeRefine) {
		u.Refines = append(u.Refines, in.buildRefine(rn, m))
	}
	for _, an := range nd.ChildrenByType(parse.NodeAugment) {
		u.Augments = append(u.Augments, in.buildInnerAugment(an, m))
	}

	in.Queue.Enqueue(instantiate.NewUsesItem(u, m, parent, inGrouping, u))
	in.bumpGrouping(inGrouping)
	return u
}

func (in *Ingest) buildRefine(nd parse.Node, m *schema.Module) *schema.Refine {
	rf := &schema.Refine{TargetPath: in.jsonPath(m, nd.ArgSchema())}
	if d := nd.ChildByType(parse.NodeDescription); d != nil {
		s := d.Name()
		rf.Dsc = &s
	}
	if r := nd.ChildByType(parse.NodeReference); r != nil {
		s := r.Name()
		rf.Ref = &s
	}
	if cf := nd.ChildByType(parse.NodeConfig); cf != nil {
		b := cf.ArgBool()
		rf.Config = &b
	}
	if md := nd.ChildByType(parse.NodeMandatory); md != nil {
		b := md.ArgBool()
		rf.Mandatory = &b
	}
	if dn := nd.ChildByType(parse.NodeDefault); dn != nil {
		s := dn.Name()
		rf.Default = &s
	}
	if mn := nd.ChildByType(parse.NodeMinElements); mn != nil {
		v := uint64(nd.Min())
		rf.Min = &v
	}
	if mx := nd.ChildByType(parse.NodeMaxElements); mx != nil {
		v := uint64(nd.Max())
		rf.Max = &v
	}
	if pr := nd.ChildByType(parse.NodePresence); pr != nil {
		s := pr.Name()
		rf.Presence = &s
	}
	rf.AddMusts = in.buildMusts(nd)
	rf.IfFeatures = in.ifFeatureNames(m, nd)
	return rf
}

func (in *Ingest) buildGrouping(nd parse.Node, parent schema.Node, m *schema.Module, inGrouping *schema.Grouping) *schema.Grouping {
	g := in.newNamed(schema.KindGrouping, nd, m).(*schema.Grouping)
	if parent != nil {
		schema.AddChild(parent, g)
	}
	in.applyCommon(&g.Common, nd, m, inGrouping)
	for _, td := range nd.ChildrenByType(parse.NodeTypedef) {
		g.Typedefs = append(g.Typedefs, in.buildTypedef(td, m, g, inGrouping))
	}
	for _, gr := range nd.ChildrenByType(parse.NodeGrouping) {
		in.buildGrouping(gr, g, m, inGrouping)
	}
	for _, ch := range nd.Children() {
		if in.isDataDefType(ch.Type()) && ch.Type() != parse.NodeGrouping {
			in.buildDataDef(ch, g, m, g)
		}
	}
	for _, notif := range nd.ChildrenByType(parse.NodeNotification) {
		in.buildNotification(notif, g, m, g)
	}
	return g
}
