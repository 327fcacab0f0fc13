// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package schema implements the in-memory schema model (C3): the tagged
// node variants, type system, and module/feature/identity/extension
// entities of spec §3, following the "variant over inheritance" design
// note - a shared common header (Common) embedded into each node kind,
// with per-kind accessors instead of a base-struct-plus-cast hierarchy.
// The sibling-list shape is grounded on the teacher's schema/tree.go,
// which keeps a doubly-linked ring of children; we keep a plain slice
// instead (documented below) since the ring's only payoff in the
// teacher - O(1) splice without reallocation - matters far less here
// than being able to reason about the list with ordinary slice ops
// during augment/uses splicing.
package schema

import "github.com/yangforge/schema-compiler/internal/dict"

// Kind tags the variant a Node carries, mirroring parse.NodeType's
// enumeration (parse/ntypes.go) but trimmed to the node kinds spec §3
// actually defines schema-tree entities for.
type Kind int

const (
	KindContainer Kind = iota
	KindLeaf
	KindLeafList
	KindList
	KindChoice
	KindCase
	KindAnyData
	KindAnyXML
	KindUses
	KindGrouping
	KindRpc
	KindAction
	KindInput
	KindOutput
	KindNotification
	KindAugment
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindLeaf:
		return "leaf"
	case KindLeafList:
		return "leaf-list"
	case KindList:
		return "list"
	case KindChoice:
		return "choice"
	case KindCase:
		return "case"
	case KindAnyData:
		return "anydata"
	case KindAnyXML:
		return "anyxml"
	case KindUses:
		return "uses"
	case KindGrouping:
		return "grouping"
	case KindRpc:
		return "rpc"
	case KindAction:
		return "action"
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindNotification:
		return "notification"
	case KindAugment:
		return "augment"
	default:
		return "unknown"
	}
}

// IsDataNode reports whether k is one of the "data definition" node kinds
// that may appear as children of a container/list/case/etc (RFC 7950
// data-def-stmt), as opposed to the structural kinds (input/output,
// notification, augment) that only appear at fixed positions.
func (k Kind) IsDataNode() bool {
	switch k {
	case KindContainer, KindLeaf, KindLeafList, KindList, KindChoice, KindAnyData, KindAnyXML, KindUses:
		return true
	}
	return false
}

// Status is the current/deprecated/obsolete lifecycle flag (spec §3).
type Status int

const (
	Current Status = iota
	Deprecated
	Obsolete
)

func (s Status) String() string {
	switch s {
	case Deprecated:
		return "deprecated"
	case Obsolete:
		return "obsolete"
	default:
		return "current"
	}
}

// compatibleWith reports whether a node with status s may reference (type
// derivation, uses, leafref target) a node with status other, per spec
// §4.5 step 5: "a current type cannot derive from obsolete; deprecated
// cannot derive from obsolete".
func (s Status) compatibleWith(other Status) bool {
	if other == Obsolete {
		return s == Obsolete
	}
	return true
}

// StatusCompatible is the exported form of compatibleWith, used by the
// validator and type resolver.
func StatusCompatible(referrer, referee Status) bool {
	return referrer.compatibleWith(referee)
}

// Flags packs the small boolean/tri-state properties shared by every node
// kind (spec §3 "Common fields: ... flags").
type Flags struct {
	ConfigTrue      bool
	ConfigExplicit  bool // config was set directly on this node, not inherited
	Status          Status
	MandatoryTrue   bool
	Implicit        bool // e.g. an implicit case wrapping a shorthand augment child
	UserOrdered     bool
	ValidExt        bool // an extension flagged validation-relevant applies transitively
	IncludesState   bool // subtree contains a config=false descendant
	NotApplied      bool // augment/deviation bookkeeping
	ConfigDep       bool // a when/must on this node references a config node (unres.XPath tagging)
	StateDep        bool // a when/must on this node references a state (config=false) node
}

// Common is the header embedded into every node variant.
type Common struct {
	Name       dict.Handle
	ModuleRef  dict.Handle // owning module name, rebound on grouping copy
	Kind       Kind
	Parent     Node
	Flags      Flags
	IfFeatures []string // if-feature expressions, resolved via unres.Iffeature
	Extensions []*ExtensionInstance
	Dsc        dict.Handle
	Ref        dict.Handle

	children []Node
}

// Node is implemented by every schema node variant. Accessors that only
// make sense on some variants (Musts, When, Type, ...) live on the
// concrete struct and are reached by a type switch or kind-specific
// interface, per the "variant over inheritance" design note.
type Node interface {
	Common() *Common
	Clone(parent Node) Node
}

// Common satisfies the Node interface for every variant that embeds
// Common by value; the method is promoted to each concrete type.
func (c *Common) Common() *Common { return c }

// Children returns the live child slice. Callers must not retain it across
// a mutating call (AddChild/Unlink); take a copy if you need a stable
// snapshot.
func (c *Common) Children() []Node { return c.children }

// ChildrenOfKind filters Children by kind, mirroring the teacher's
// ChildrenByType.
func (c *Common) ChildrenOfKind(k Kind) []Node {
	var out []Node
	for _, ch := range c.children {
		if ch.Common().Kind == k {
			out = append(out, ch)
		}
	}
	return out
}

// LookupChild finds the first direct child with the given kind and name.
func (c *Common) LookupChild(k Kind, name string) Node {
	for _, ch := range c.children {
		cc := ch.Common()
		if cc.Kind == k && cc.Name.String() == name {
			return ch
		}
	}
	return nil
}

// AddChild appends child as the new last child of parent, the "addchild"
// contract from the design notes: children keep insertion order, and the
// child's Parent is set to parent. We use a slice instead of a ring (see
// package doc); append is O(1) amortized and matches the ring's ordering
// guarantee without requiring prev-of-first-points-to-last bookkeeping.
func AddChild(parent Node, child Node) {
	pc := parent.Common()
	cc := child.Common()
	cc.Parent = parent
	pc.children = append(pc.children, child)
}

// InsertChildAt splices child into parent's children at index i (used by
// augment/uses to preserve the grouping's or augment's internal order when
// merging into an existing list).
func InsertChildAt(parent Node, child Node, i int) {
	pc := parent.Common()
	cc := child.Common()
	cc.Parent = parent
	if i < 0 || i > len(pc.children) {
		i = len(pc.children)
	}
	pc.children = append(pc.children, nil)
	copy(pc.children[i+1:], pc.children[i:])
	pc.children[i] = child
}

// Unlink removes child from parent's child list. It is the inverse of
// AddChild/InsertChildAt and is what augment-unapply and deviation-revert
// use to make a splice reversible (P3/P4).
func Unlink(parent Node, child Node) bool {
	pc := parent.Common()
	for i, ch := range pc.children {
		if ch == child {
			pc.children = append(pc.children[:i], pc.children[i+1:]...)
			child.Common().Parent = nil
			return true
		}
	}
	return false
}

// IndexOf returns child's position in parent's children, or -1.
func IndexOf(parent Node, child Node) int {
	for i, ch := range parent.Common().children {
		if ch == child {
			return i
		}
	}
	return -1
}

// Path renders the absolute schema node-id from the module root to n,
// module-prefixed, for diagnostics (spec §6.4's "path" field).
func Path(n Node) []string {
	var segs []string
	for cur := n; cur != nil; cur = cur.Common().Parent {
		cc := cur.Common()
		segs = append([]string{cc.ModuleRef.String() + ":" + cc.Name.String()}, segs...)
	}
	return segs
}
