// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package schema

import "github.com/yangforge/schema-compiler/internal/dict"

// NewNode allocates a zero-valued node of the given kind; compile.Ingest's
// newNamed uses it for the "open_<kind>" callbacks (spec §4.3's
// constructor contract), though buildImplicitCase builds its Case
// directly. The returned Node has no parent and no
// children yet; callers attach it with AddChild (or leave it top-level,
// e.g. a Module's Data/Rpcs/Notifs/Augments lists).
func NewNode(kind Kind, name dict.Handle, moduleRef dict.Handle) Node {
	common := Common{Name: name, ModuleRef: moduleRef, Kind: kind}
	switch kind {
	case KindContainer:
		return &Container{Common: common}
	case KindLeaf:
		return &Leaf{Common: common}
	case KindLeafList:
		return &LeafList{Common: common}
	case KindList:
		return &List{Common: common}
	case KindChoice:
		return &Choice{Common: common}
	case KindCase:
		return &Case{Common: common}
	case KindAnyData:
		return &AnyData{Common: common}
	case KindAnyXML:
		return &AnyXML{Common: common}
	case KindUses:
		return &Uses{Common: common}
	case KindGrouping:
		return &Grouping{Common: common}
	case KindRpc:
		return &Rpc{Common: common}
	case KindAction:
		return &Action{Common: common}
	case KindInput:
		return &Input{Common: common}
	case KindOutput:
		return &Output{Common: common}
	case KindNotification:
		return &Notification{Common: common}
	case KindAugment:
		return &Augment{Common: common}
	default:
		panic("schema: unknown node kind")
	}
}

// ChildSlotKind distinguishes the several overloaded "child slot"
// categories spec §4.3 calls out: ordinary data children, typedefs, and
// complex-extension-instance bodies all live in separate slices even
// though they're all "children" of the same parent node.
type ChildSlotKind int

const (
	SlotData ChildSlotKind = iota
	SlotTypedef
	SlotExtension
)

// TypedefSlot returns the mutable typedefs slice for parent, or nil if
// parent's kind has none. This is the "overloaded slot" accessor spec
// §4.3 calls for, generalized across every kind that carries typedefs
// (Container, List, Grouping, Rpc/Action via Input/Output, Notification).
func TypedefSlot(parent Node) *[]*Typedef {
	switch n := parent.(type) {
	case *Container:
		return &n.Typedefs
	case *List:
		return &n.Typedefs
	case *Grouping:
		return &n.Typedefs
	case *Input:
		return &n.Typedefs
	case *Output:
		return &n.Typedefs
	case *Notification:
		return &n.Typedefs
	case *Rpc:
		return &n.Typedefs
	case *Action:
		return &n.Typedefs
	default:
		return nil
	}
}

// MustSlot returns the mutable musts slice for parent, or nil.
func MustSlot(parent Node) *[]Must {
	switch n := parent.(type) {
	case *Container:
		return &n.Musts
	case *Leaf:
		return &n.Musts
	case *LeafList:
		return &n.Musts
	case *List:
		return &n.Musts
	case *AnyData:
		return &n.Musts
	case *AnyXML:
		return &n.Musts
	case *Input:
		return &n.Musts
	case *Output:
		return &n.Musts
	case *Notification:
		return &n.Musts
	default:
		return nil
	}
}

// WhenSlot returns the settable when-pointer for parent, or nil.
func WhenSlot(parent Node) **When {
	switch n := parent.(type) {
	case *Container:
		return &n.When
	case *Leaf:
		return &n.When
	case *LeafList:
		return &n.When
	case *List:
		return &n.When
	case *Choice:
		return &n.When
	case *Case:
		return &n.When
	case *AnyData:
		return &n.When
	case *AnyXML:
		return &n.When
	case *Uses:
		return &n.When
	case *Augment:
		return &n.When
	default:
		return nil
	}
}

// EnsureImplicitOutput synthesizes an empty Output for an Rpc/Action that
// declared none, per spec §3's "Output (implicit if absent)".
func EnsureImplicitOutput(owner Node, moduleRef dict.Handle) *Output {
	out := &Output{Common: Common{Name: dict.Handle{}, ModuleRef: moduleRef, Kind: KindOutput, Parent: owner}}
	return out
}

// EnsureImplicitInput is the Input analog of EnsureImplicitOutput.
func EnsureImplicitInput(owner Node, moduleRef dict.Handle) *Input {
	return &Input{Common: Common{Name: dict.Handle{}, ModuleRef: moduleRef, Kind: KindInput, Parent: owner}}
}
