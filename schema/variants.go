// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package schema

import "github.com/yangforge/schema-compiler/internal/dict"

// Must is a single must-statement, carrying the raw XPath string (handed
// to the external xpath.Engine, never evaluated by the core itself).
type Must struct {
	Expr         string
	ErrorAppTag  string
	ErrorMessage string
	Dsc, Ref     string
}

// When is a single when-statement, same shape as Must minus the
// error-message overrides RFC 7950 doesn't give it.
type When struct {
	Expr     string
	Dsc, Ref string
}

// Typedef is a module- or node-scoped type definition (spec §3's
// Container/List/Grouping/Rpc/Input/Output "typedefs[]").
type Typedef struct {
	Common
	Type *Type
}

func (t *Typedef) Clone(parent Node) Node {
	n := *t
	n.Parent = parent
	n.children = nil
	n.Type = t.Type.Clone()
	return &n
}

// Container is spec §3's Container variant.
type Container struct {
	Common
	Presence bool
	PresenceMsg dict.Handle
	When     *When
	Musts    []Must
	Typedefs []*Typedef
}

func (c *Container) Clone(parent Node) Node {
	n := *c
	n.Parent = parent
	n.children = nil
	cloneChildrenInto(&n, c.Common.children)
	return &n
}

// Leaf is spec §3's Leaf variant.
type Leaf struct {
	Common
	Type      *Type
	Units     dict.Handle
	Default   dict.Handle
	HasDefault bool
	When      *When
	Musts     []Must
	Backlinks []*Leaf // leafrefs elsewhere in the schema that target this leaf
}

func (l *Leaf) Clone(parent Node) Node {
	n := *l
	n.Parent = parent
	n.children = nil
	n.Backlinks = nil
	n.Type = l.Type.Clone()
	return &n
}

// LeafList is spec §3's LeafList variant.
type LeafList struct {
	Common
	Type      *Type
	Units     dict.Handle
	Defaults  []string
	Min, Max  uint64
	When      *When
	Musts     []Must
	Backlinks []*Leaf
}

func (l *LeafList) Clone(parent Node) Node {
	n := *l
	n.Parent = parent
	n.children = nil
	n.Backlinks = nil
	n.Defaults = append([]string(nil), l.Defaults...)
	n.Type = l.Type.Clone()
	return &n
}

// List is spec §3's List variant.
type List struct {
	Common
	Keys       []*Leaf // resolved key leaves, in schema-source order
	KeysStr    []string
	Unique     [][]string // each entry a list of schema-relative paths
	Min, Max   uint64
	When       *When
	Musts      []Must
	Typedefs   []*Typedef
}

func (l *List) Clone(parent Node) Node {
	n := *l
	n.Parent = parent
	n.children = nil
	n.Keys = nil // rebound by unres.ListKeys against the copy
	cloneChildrenInto(&n, l.Common.children)
	return &n
}

// Choice is spec §3's Choice variant.
type Choice struct {
	Common
	DefaultCase dict.Handle
	HasDefault  bool
	When        *When
}

func (c *Choice) Clone(parent Node) Node {
	n := *c
	n.Parent = parent
	n.children = nil
	cloneChildrenInto(&n, c.Common.children)
	return &n
}

// Case is spec §3's Case variant.
type Case struct {
	Common
	When *When
}

func (c *Case) Clone(parent Node) Node {
	n := *c
	n.Parent = parent
	n.children = nil
	cloneChildrenInto(&n, c.Common.children)
	return &n
}

// AnyData / AnyXML share a shape.
type AnyData struct {
	Common
	When  *When
	Musts []Must
}

func (a *AnyData) Clone(parent Node) Node {
	n := *a
	n.Parent = parent
	n.children = nil
	return &n
}

type AnyXML struct {
	Common
	When  *When
	Musts []Must
}

func (a *AnyXML) Clone(parent Node) Node {
	n := *a
	n.Parent = parent
	n.children = nil
	return &n
}

// Refine is one overlay a uses-site applies to a descendant of its
// grouping copy (spec §4.7 step 3).
type Refine struct {
	TargetPath   []string
	Default      *string
	Config       *bool
	Mandatory    *bool
	Min, Max     *uint64
	AddMusts     []Must
	Dsc, Ref     *string
	Presence     *string
	IfFeatures   []string
}

// Uses is spec §3's Uses variant.
type Uses struct {
	Common
	GroupingRef string // JSON-form (module-qualified) grouping name
	Refines     []*Refine
	Augments    []*Augment // inner augments of this uses, targeting the copy
	When        *When
}

func (u *Uses) Clone(parent Node) Node {
	n := *u
	n.Parent = parent
	n.children = nil
	return &n
}

// Grouping is spec §3's Grouping variant. UnresCount tracks how many
// still-outstanding unres items live inside this subtree (incremented by
// ingest whenever one is enqueued there, decremented by the resolver that
// retires it); a Uses unres item must retry until it reaches zero (spec
// §4.6 "Uses" kind).
type Grouping struct {
	Common
	Typedefs   []*Typedef
	UnresCount int
}

func (g *Grouping) Clone(parent Node) Node {
	n := *g
	n.Parent = parent
	n.children = nil
	cloneChildrenInto(&n, g.Common.children)
	return &n
}

// Input / Output are the (possibly implicit) request/response subtrees of
// an Rpc/Action.
type Input struct {
	Common
	Typedefs []*Typedef
	Musts    []Must
}

func (i *Input) Clone(parent Node) Node {
	n := *i
	n.Parent = parent
	n.children = nil
	cloneChildrenInto(&n, i.Common.children)
	return &n
}

type Output struct {
	Common
	Typedefs []*Typedef
	Musts    []Must
}

func (o *Output) Clone(parent Node) Node {
	n := *o
	n.Parent = parent
	n.children = nil
	cloneChildrenInto(&n, o.Common.children)
	return &n
}

// Rpc / Action share a shape: typedefs plus an Input and Output, the
// latter implicit (empty, synthesized) when absent from the source.
type Rpc struct {
	Common
	Typedefs []*Typedef
	Input    *Input
	Output   *Output
}

func (r *Rpc) Clone(parent Node) Node {
	n := *r
	n.Parent = parent
	n.children = nil
	if r.Input != nil {
		n.Input = r.Input.Clone(&n).(*Input)
	}
	if r.Output != nil {
		n.Output = r.Output.Clone(&n).(*Output)
	}
	return &n
}

type Action struct {
	Common
	Typedefs []*Typedef
	Input    *Input
	Output   *Output
}

func (a *Action) Clone(parent Node) Node {
	n := *a
	n.Parent = parent
	n.children = nil
	if a.Input != nil {
		n.Input = a.Input.Clone(&n).(*Input)
	}
	if a.Output != nil {
		n.Output = a.Output.Clone(&n).(*Output)
	}
	return &n
}

// Notification is spec §3's Notification variant.
type Notification struct {
	Common
	Typedefs []*Typedef
	Musts    []Must
}

func (n *Notification) Clone(parent Node) Node {
	nn := *n
	nn.Parent = parent
	nn.children = nil
	cloneChildrenInto(&nn, n.Common.children)
	return &nn
}

// Augment is spec §3's Augment variant: it owns the children it contains
// pre-application (so it can be re-applied after a disable/enable cycle)
// and, once Applied, those same child pointers are also reachable from the
// target's child list (spliced in, not copied - see augment.Apply).
type Augment struct {
	Common
	TargetPath []string
	When       *When
	Applied    bool
}

func (a *Augment) Clone(parent Node) Node {
	n := *a
	n.Parent = parent
	n.children = nil
	cloneChildrenInto(&n, a.Common.children)
	return &n
}

// cloneChildrenInto deep-copies src's children as children of owner,
// used by every branching variant's Clone. This is the "deep-copy
// subtree" primitive instantiate.Instantiate builds on.
func cloneChildrenInto(owner Node, src []Node) {
	oc := owner.Common()
	for _, ch := range src {
		oc.children = append(oc.children, ch.Clone(owner))
	}
}
