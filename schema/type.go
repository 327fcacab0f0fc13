// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package schema

import "regexp"

// BaseType enumerates the 19 YANG built-ins plus the derived/compound
// kinds spec §3 lists for Type.Base.
type BaseType int

const (
	BaseBinary BaseType = iota
	BaseBits
	BaseBoolean
	BaseDecimal64
	BaseEmpty
	BaseEnumeration
	BaseIdentityref
	BaseInstanceIdentifier
	BaseInt8
	BaseInt16
	BaseInt32
	BaseInt64
	BaseLeafref
	BaseString
	BaseUint8
	BaseUint16
	BaseUint32
	BaseUint64
	BaseUnion
	BaseDerived // a named typedef whose own Base has not yet propagated
)

func (b BaseType) String() string {
	names := [...]string{
		"binary", "bits", "boolean", "decimal64", "empty", "enumeration",
		"identityref", "instance-identifier", "int8", "int16", "int32",
		"int64", "leafref", "string", "uint8", "uint16", "uint32", "uint64",
		"union", "derived",
	}
	if int(b) < len(names) {
		return names[b]
	}
	return "unknown"
}

// IsNumeric reports whether b takes a range restriction.
func (b BaseType) IsNumeric() bool {
	switch b {
	case BaseInt8, BaseInt16, BaseInt32, BaseInt64, BaseUint8, BaseUint16, BaseUint32, BaseUint64, BaseDecimal64:
		return true
	}
	return false
}

// Rb / Urb are signed/unsigned range boundaries, named after the
// teacher's schema/types.go Rb/Urb helper types for the builtin integer
// range tables.
type Rb struct{ Min, Max int64 }
type Urb struct{ Min, Max uint64 }

// RangePart is one (possibly single-valued) part of a range/length
// restriction, e.g. "1..4" or "10".
type RangePart struct {
	Min, Max         int64
	MinU, MaxU       uint64
	Unsigned         bool
	ErrorAppTag      string
	ErrorMessage     string
}

// Range is a full range or length restriction: an ordered, non-overlapping
// list of parts, required to narrow monotonically across a derivation
// chain (spec §4.5: "ensure range narrows").
type Range struct {
	Parts []RangePart
}

// Pattern is one compiled pattern restriction (spec §3: "patterns[] (each
// a compiled regex plus original source and invert-flag)").
type Pattern struct {
	Source  string
	Re      *regexp.Regexp
	Inverted bool // YANG 1.1 modifier "invert-match"
	ErrorAppTag  string
	ErrorMessage string
}

// EnumValue is one enum substatement's resolved (name, value) pair.
type EnumValue struct {
	Name         string
	Value        int64
	Explicit     bool // value was given in source, not auto-incremented
	Status       Status
	Dsc, Ref     string
}

// BitValue is one bit substatement's resolved (name, position) pair.
type BitValue struct {
	Name     string
	Position uint32
	Explicit bool
	Status   Status
	Dsc, Ref string
}

// Type is spec §3's Type entity: a base type plus base-specific
// restriction/derivation info. It is intentionally one flat struct rather
// than an interface-per-base hierarchy (mirroring the "variant over
// inheritance" note) since almost every operation in resolve and validate
// needs to branch on Base directly.
type Type struct {
	Base BaseType
	Der  *Typedef // the typedef this type derives from, nil if direct builtin use

	// numeric / decimal64
	Range *Range

	// string / binary
	Length   *Range
	Patterns []Pattern

	// decimal64
	Digits  int // 1..18
	Divisor int64

	// enumeration
	Enums []EnumValue

	// bits
	Bits []BitValue

	// leafref
	Path            string
	RequireInstance bool
	LeafrefTarget   Node // resolved *Leaf or *LeafList; filled by unres.TypeLeafref

	// identityref
	Bases []*Identity

	// union
	Members       []*Type
	HasPointerType bool

	// the directly-named type string, JSON-form (module:local), pending
	// resolution; consumed and cleared by resolve.TypeDeriveResolver.
	PendingName string
}

// IsBuiltin reports whether t names a built-in directly (Der == nil).
func (t *Type) IsBuiltin() bool { return t.Der == nil }

// Clone deep-copies t, recursing into union Members so that each member
// Type is its own distinct object rather than shared with the original
// (spec §9's "Deep-copy unres duplication" note: an outstanding unres item
// keyed to a member Type pointer must be duplicatable against a member
// pointer that actually differs from the original once a grouping is
// copied under uses). Slice fields that are never mutated in place after
// being set (Patterns, Enums, Bits, Bases) are copied by value/slice-copy
// rather than deep-cloned element by element, since nothing in resolve/
// validate mutates their elements through a shared pointer.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	n := *t
	if t.Range != nil {
		r := *t.Range
		r.Parts = append([]RangePart(nil), t.Range.Parts...)
		n.Range = &r
	}
	if t.Length != nil {
		l := *t.Length
		l.Parts = append([]RangePart(nil), t.Length.Parts...)
		n.Length = &l
	}
	n.Patterns = append([]Pattern(nil), t.Patterns...)
	n.Enums = append([]EnumValue(nil), t.Enums...)
	n.Bits = append([]BitValue(nil), t.Bits...)
	n.Bases = append([]*Identity(nil), t.Bases...)
	if t.Members != nil {
		n.Members = make([]*Type, len(t.Members))
		for i, m := range t.Members {
			n.Members[i] = m.Clone()
		}
	}
	return &n
}
