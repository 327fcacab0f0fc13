// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package compile implements the Statement Ingest (C4) stage: turning a
// parsed parse.Node AST into a schema.Module and its typedefs,
// identities, features, data tree, rpcs, notifications, augments and
// deviations, deferring every reference that cannot be resolved
// immediately onto the shared unres.Queue for the augment/deviation/
// validate/lifecycle packages to pick up later. It is grounded on the
// teacher's compile/compile.go (the Compiler/ExpandModules/BuildModules
// pipeline), reshaped around the explicit unres.Queue fixed-point engine
// instead of the teacher's single tsort-ordered forward pass.
package compile

import (
	"encoding/xml"
	"fmt"

	"github.com/yangforge/schema-compiler/instantiate"
	"github.com/yangforge/schema-compiler/internal/dict"
	"github.com/yangforge/schema-compiler/internal/diag"
	"github.com/yangforge/schema-compiler/parse"
	"github.com/yangforge/schema-compiler/registry"
	"github.com/yangforge/schema-compiler/resolve"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
)

// Ingest walks one parsed module/submodule tree into a schema.Module,
// deferring every reference that cannot be resolved immediately onto the
// shared unres.Queue (spec §4.4).
type Ingest struct {
	Ctx   *registry.Context
	Queue *unres.Queue
	Diags *diag.List
}

// NewIngest returns an Ingest sharing ctx's dictionary and writing into q.
func NewIngest(ctx *registry.Context, q *unres.Queue) *Ingest {
	return &Ingest{Ctx: ctx, Queue: q, Diags: &diag.List{}}
}

func (in *Ingest) dict() *dict.Dictionary { return in.Ctx.Dict }

func (in *Ingest) errf(module string, path []string, format string, args ...interface{}) {
	in.Diags.Add(diag.New(diag.Semantic, module, path, format, args...))
}

// Module ingests root (a NodeModule or NodeSubmodule) into a fresh
// schema.Module. Errors returned here are fatal parse-shape problems
// (wrong root statement); ordinary semantic problems are appended to
// in.Diags instead so the caller can decide whether to keep going.
func (in *Ingest) Module(root parse.Node, filepath string) (*schema.Module, error) {
	m := &schema.Module{Filepath: filepath, PrefixModules: make(map[string]string)}
	d := in.dict()

	switch root.Type() {
	case parse.NodeModule:
		m.Kind = schema.KindModule
	case parse.NodeSubmodule:
		m.Kind = schema.KindSubmodule
	default:
		return nil, fmt.Errorf("ingest: root statement %q is neither module nor submodule", root.Statement())
	}

	m.Name = d.Intern(root.Name())

	if m.Kind == schema.KindSubmodule {
		bt := root.ChildByType(parse.NodeBelongsTo)
		if bt == nil {
			in.errf(root.Name(), nil, "submodule is missing a belongs-to statement")
		} else {
			m.BelongsTo = bt.Name()
			m.Prefix = d.Intern(bt.Prefix())
		}
	} else {
		m.Namespace = d.Intern(root.Ns())
		m.Prefix = d.Intern(root.Prefix())
	}

	if yv := root.ChildByType(parse.NodeYangVersion); yv != nil && yv.Name() == "1.1" {
		m.Version = schema.Version1_1
	}

	m.Org = d.Intern(firstChildString(root, parse.NodeOrganization))
	m.Contact = d.Intern(firstChildString(root, parse.NodeContact))
	m.Dsc = d.Intern(root.Desc())
	m.Ref = d.Intern(root.Ref())

	in.ingestRevisions(m, root)
	in.ingestImportsIncludes(m, root)
	if !m.Prefix.IsZero() {
		m.PrefixModules[m.Prefix.String()] = m.Name.String()
	}

	for _, td := range root.ChildrenByType(parse.NodeTypedef) {
		m.Typedefs = append(m.Typedefs, in.buildTypedef(td, m, nil, nil))
	}

	for _, idn := range root.ChildrenByType(parse.NodeIdentity) {
		m.Identities = append(m.Identities, in.buildIdentity(idn, m))
	}
	for _, f := range root.ChildrenByType(parse.NodeFeature) {
		m.Features = append(m.Features, in.buildFeature(f, m))
	}
	for _, ext := range root.ChildrenByType(parse.NodeExtension) {
		m.Extensions = append(m.Extensions, in.buildExtensionDef(ext, m))
	}

	for _, ch := range root.Children() {
		if in.isDataDefType(ch.Type()) {
			node := in.buildDataDef(ch, nil, m, nil)
			if node != nil {
				m.Data = append(m.Data, node)
			}
		}
	}

	for _, rpc := range root.ChildrenByType(parse.NodeRpc) {
		m.Rpcs = append(m.Rpcs, in.buildRpc(rpc, m))
	}
	for _, notif := range root.ChildrenByType(parse.NodeNotification) {
		m.Notifs = append(m.Notifs, in.buildNotification(notif, nil, m, nil))
	}
	for _, aug := range root.ChildrenByType(parse.NodeAugment) {
		m.Augments = append(m.Augments, in.buildAugment(aug, m))
	}
	for _, dev := range root.ChildrenByType(parse.NodeDeviation) {
		m.Deviations = append(m.Deviations, in.buildDeviation(dev, m))
	}

	return m, nil
}

func firstChildString(n parse.Node, t parse.NodeType) string {
	ch := n.ChildByType(t)
	if ch == nil {
		return ""
	}
	return ch.Name()
}

func (in *Ingest) ingestRevisions(m *schema.Module, root parse.Node) {
	for _, r := range root.ChildrenByType(parse.NodeRevision) {
		m.Revisions = append(m.Revisions, schema.Revision{
			Date:        r.Name(),
			Description: r.Desc(),
			Reference:   r.Ref(),
		})
	}
	// Newest-first (P2); YYYY-MM-DD sorts lexicographically.
	for i := 1; i < len(m.Revisions); i++ {
		for j := i; j > 0 && m.Revisions[j].Date > m.Revisions[j-1].Date; j-- {
			m.Revisions[j], m.Revisions[j-1] = m.Revisions[j-1], m.Revisions[j]
		}
	}
}

func (in *Ingest) ingestImportsIncludes(m *schema.Module, root parse.Node) {
	for _, imp := range root.ChildrenByType(parse.NodeImport) {
		pfx := imp.Prefix()
		m.Imports = append(m.Imports, schema.Import{
			ModuleRef: imp.Name(),
			Prefix:    pfx,
			RevDate:   imp.Revision(),
		})
		if pfx != "" {
			m.PrefixModules[pfx] = imp.Name()
		}
	}
	for _, inc := range root.ChildrenByType(parse.NodeInclude) {
		m.Includes = append(m.Includes, schema.Include{
			SubmoduleRef: inc.Name(),
			RevDate:      inc.Revision(),
		})
	}
}

// isDataDefType reports whether t is one of the concrete data-definition
// node kinds (or a grouping, ingested alongside data nodes so lexical
// scope walks find it via Module.Data - see schema.Module.GroupingByName).
func (in *Ingest) isDataDefType(t parse.NodeType) bool {
	switch t {
	case parse.NodeContainer, parse.NodeLeaf, parse.NodeLeafList, parse.NodeList,
		parse.NodeChoice, parse.NodeAnyxml, parse.NodeUses, parse.NodeGrouping:
		return true
	}
	return false
}

// jsonForm renders a prefix-qualified identifier as a JSON-form
// (module-qualified) name, resolving the prefix through m's own
// PrefixModules table (spec §4.4 step 3). An unknown prefix is passed
// through unchanged: the resolver that eventually looks it up will fail
// to find the module and retry/error through the ordinary unres path
// rather than ingest itself guessing.
func (in *Ingest) jsonForm(m *schema.Module, id xml.Name) string {
	if id.Space == "" || id.Space == m.Prefix.String() {
		return m.Name.String() + ":" + id.Local
	}
	if modName, ok := m.PrefixModules[id.Space]; ok {
		return modName + ":" + id.Local
	}
	return id.Space + ":" + id.Local
}

func (in *Ingest) jsonPath(m *schema.Module, names []xml.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = in.jsonForm(m, n)
	}
	return out
}

func (in *Ingest) ifFeatureNames(m *schema.Module, n parse.Node) []string {
	var out []string
	for _, f := range n.ChildrenByType(parse.NodeIfFeature) {
		out = append(out, in.jsonForm(m, f.ArgIdRef()))
	}
	return out
}

func (in *Ingest) enqueueIffeature(node schema.Node, m *schema.Module, names []string, inGrouping *schema.Grouping) {
	if len(names) == 0 {
		return
	}
	in.Queue.Enqueue(resolve.NewIffeatureItem(node, m.Name.String(), names, node))
	if inGrouping != nil {
		inGrouping.UnresCount++
	}
}

func statusOf(s string) schema.Status {
	switch s {
	case "deprecated":
		return schema.Deprecated
	case "obsolete":
		return schema.Obsolete
	default:
		return schema.Current
	}
}

func (in *Ingest) buildMusts(n parse.Node) []schema.Must {
	var out []schema.Must
	for _, mn := range n.ChildrenByType(parse.NodeMust) {
		out = append(out, schema.Must{
			Expr:         mn.Name(),
			ErrorAppTag:  firstChildString(mn, parse.NodeErrorAppTag),
			ErrorMessage: firstChildString(mn, parse.NodeErrorMessage),
			Dsc:          mn.Desc(),
			Ref:          mn.Ref(),
		})
	}
	return out
}

func (in *Ingest) buildWhen(n parse.Node) *schema.When {
	wn := n.ChildByType(parse.NodeWhen)
	if wn == nil {
		return nil
	}
	return &schema.When{Expr: wn.Name(), Dsc: wn.Desc(), Ref: wn.Ref()}
}

// tagXPath enqueues an unres.XPath item per when/must expression already
// attached to owner (via schema.WhenSlot/MustSlot), for the external
// xpath.Engine to syntax-check and dependency-tag (spec §4.4's "when/must
// XPath" row; §4.6's XPath kind). Called once per node-building function,
// right after that function has assigned its When/Musts fields.
func (in *Ingest) tagXPath(owner schema.Node, m *schema.Module, inGrouping *schema.Grouping) {
	moduleName := m.Name.String()
	if ws := schema.WhenSlot(owner); ws != nil && *ws != nil {
		in.Queue.Enqueue(resolve.NewXPathItem(owner, moduleName, (*ws).Expr, owner))
		in.bumpGrouping(inGrouping)
	}
	if ms := schema.MustSlot(owner); ms != nil {
		for _, mst := range *ms {
			in.Queue.Enqueue(resolve.NewXPathItem(owner, moduleName, mst.Expr, owner))
			in.bumpGrouping(inGrouping)
		}
	}
}

func (in *Ingest) bumpGrouping(g *schema.Grouping) {
	if g != nil {
		g.UnresCount++
	}
}

func (in *Ingest) applyCommon(cc *schema.Common, n parse.Node, m *schema.Module, inGrouping *schema.Grouping) {
	d := in.dict()
	cc.ModuleRef = m.Name
	cc.Dsc = d.Intern(n.Desc())
	cc.Ref = d.Intern(n.Ref())
	cc.Flags.Status = statusOf(n.Status())
	if n.HasConfig() {
		cc.Flags.ConfigExplicit = true
		cc.Flags.ConfigTrue = n.Config()
	} else {
		cc.Flags.ConfigTrue = true
	}
	cc.IfFeatures = in.ifFeatureNames(m, n)
	cc.Extensions = in.buildExtensions(n, m, inGrouping)
}

// buildExtensions ingests every unrecognized ("extension") substatement
// attached to n - spec §3's "Extension: ... instance (occurrence at a
// parent site)" - enqueuing an unres.Ext item per instance to bind it to
// its declaring module's extension statement (spec §4.4's "extension
// instance body" deferred-resolution row). Nested unknown substatements
// become the instance's Body, recursively.
func (in *Ingest) buildExtensions(n parse.Node, m *schema.Module, inGrouping *schema.Grouping) []*schema.ExtensionInstance {
	var out []*schema.ExtensionInstance
	i := 0
	for _, ex := range n.Children() {
		if !ex.Type().IsExtensionNode() {
			continue
		}
		ei := &schema.ExtensionInstance{
			DefName:        in.jsonFormStatement(m, ex.Statement()),
			Argument:       ex.Name(),
			Insubstmt:      schema.InSubstmtSelf,
			InsubstmtIndex: i,
			Body:           in.buildExtensions(ex, m, inGrouping),
		}
		in.Queue.Enqueue(&unres.Item{Kind: unres.Ext, Key: ei, Node: ei, Module: m.Name.String()})
		in.bumpGrouping(inGrouping)
		out = append(out, ei)
		i++
	}
	return out
}

// jsonFormStatement is jsonForm's counterpart for a raw "prefix:name"
// keyword string (an extension statement's own identifier, which the
// retained grammar hands back as Statement() rather than as the
// xml.Name-typed arguments jsonForm normally rewrites).
func (in *Ingest) jsonFormStatement(m *schema.Module, stmt string) string {
	for i := 0; i < len(stmt); i++ {
		if stmt[i] != ':' {
			continue
		}
		prefix, local := stmt[:i], stmt[i+1:]
		if prefix == m.Prefix.String() {
			return m.Name.String() + ":" + local
		}
		if modName, ok := m.PrefixModules[prefix]; ok {
			return modName + ":" + local
		}
		return prefix + ":" + local
	}
	return m.Name.String() + ":" + stmt
}

func (in *Ingest) buildIdentity(n parse.Node, m *schema.Module) *schema.Identity {
	id := &schema.Identity{
		Name:       n.Name(),
		ModuleRef:  m.Name.String(),
		Status:     statusOf(n.Status()),
		Dsc:        n.Desc(),
		Ref:        n.Ref(),
		IfFeatures: in.ifFeatureNames(m, n),
	}
	for _, b := range n.ChildrenByType(parse.NodeBase) {
		id.BaseNames = append(id.BaseNames, in.jsonForm(m, b.ArgIdRef()))
	}
	if len(id.BaseNames) > 0 {
		in.Queue.Enqueue(&unres.Item{Kind: unres.Ident, Key: id, Node: id, Module: m.Name.String()})
	}
	return id
}

func (in *Ingest) buildFeature(n parse.Node, m *schema.Module) *schema.Feature {
	f := &schema.Feature{
		Name:       n.Name(),
		ModuleRef:  m.Name.String(),
		Status:     statusOf(n.Status()),
		Dsc:        n.Desc(),
		Ref:        n.Ref(),
		IfFeatures: in.ifFeatureNames(m, n),
		Enabled:    true,
	}
	if len(f.IfFeatures) > 0 {
		f.Enabled = false
		in.Queue.Enqueue(resolve.NewFeatureItem(f, m.Name.String(), f))
	}
	return f
}

func (in *Ingest) buildExtensionDef(n parse.Node, m *schema.Module) *schema.ExtensionDef {
	ed := &schema.ExtensionDef{
		Name:      n.Name(),
		ModuleRef: m.Name.String(),
		Status:    statusOf(n.Status()),
		Dsc:       n.Desc(),
		Ref:       n.Ref(),
	}
	if argn := n.ChildByType(parse.NodeArgument); argn != nil {
		ed.ArgumentName = argn.Name()
		ed.ArgumentIsYin = argn.ChildByType(parse.NodeYinElement) != nil && argn.ChildByType(parse.NodeYinElement).ArgBool()
	}
	return ed
}

// registry.Context wiring helper: looks up the owning module for a
// ScopeLookup/GroupingLookup without importing resolve/instantiate from
// schema (avoiding an import cycle), shared by type and uses building.
func (in *Ingest) scope() resolve.ScopeLookup       { return resolve.ScopeLookup{Ctx: in.Ctx} }
func (in *Ingest) groupingScope() instantiate.GroupingLookup {
	return instantiate.GroupingLookup{Ctx: in.Ctx}
}
