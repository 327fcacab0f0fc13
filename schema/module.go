// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package schema

import "github.com/yangforge/schema-compiler/internal/dict"

// ModuleKind distinguishes a module from a submodule (spec §3).
type ModuleKind int

const (
	KindModule ModuleKind = iota
	KindSubmodule
)

// DeviatedState is the deviation-lifecycle tri-state from spec §3.
type DeviatedState int

const (
	DeviatedNone DeviatedState = iota
	DeviatedActive
	DeviatedSuspended
)

// Import is one import-statement (spec §3).
type Import struct {
	ModuleRef string // the imported module's name
	Prefix    string
	RevDate   string // optional; "" if unspecified
}

// Include is one include-statement (spec §3).
type Include struct {
	SubmoduleRef string
	RevDate      string
}

// Revision is one revision-statement.
type Revision struct {
	Date        string // "YYYY-MM-DD"
	Description string
	Reference   string
}

// Version is the yang-version (spec §3).
type Version int

const (
	Version1_0 Version = iota
	Version1_1
)

// Module is spec §3's Module entity: the root container for a compiled
// YANG module, owning every node, type, feature, identity and extension
// defined in it (or in a submodule that belongs to it).
type Module struct {
	Name      dict.Handle
	Namespace dict.Handle
	Prefix    dict.Handle
	Org       dict.Handle
	Contact   dict.Handle
	Dsc       dict.Handle
	Ref       dict.Handle

	Version Version
	Kind    ModuleKind
	// BelongsTo is only meaningful for a submodule (Kind == KindSubmodule):
	// the name of the module it belongs to.
	BelongsTo string

	Revisions []Revision // sorted newest-first after ingest (P2)

	Imports  []Import
	Includes []Include

	Typedefs   []*Typedef
	Features   []*Feature
	Identities []*Identity
	Extensions []*ExtensionDef

	Data      []Node // top-level data-definition nodes
	Rpcs      []*Rpc
	Notifs    []*Notification
	Augments  []*Augment
	Deviations []*Deviation

	Implemented bool
	Disabled    bool
	Deviated    DeviatedState

	Filepath string

	// Prefixes usable within this module (self + every Import), keyed by
	// prefix string, resolved during ingest's prefix->JSON-form pass
	// (spec §4.4 step 3).
	PrefixModules map[string]string
}

// FirstRevision returns the "the" revision per spec §3, or "" if the
// module has none.
func (m *Module) FirstRevision() string {
	if len(m.Revisions) == 0 {
		return ""
	}
	return m.Revisions[0].Date
}

// TopLevelTypedefLookup finds a module-level typedef by name.
func (m *Module) TopLevelTypedefLookup(name string) *Typedef {
	for _, td := range m.Typedefs {
		if td.Name.String() == name {
			return td
		}
	}
	return nil
}

// FeatureByName finds a module-level feature by name.
func (m *Module) FeatureByName(name string) *Feature {
	for _, f := range m.Features {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IdentityByName finds a module-level identity by name.
func (m *Module) IdentityByName(name string) *Identity {
	for _, id := range m.Identities {
		if id.Name == name {
			return id
		}
	}
	return nil
}

// ExtensionDefByName finds a module-level extension declaration by name.
func (m *Module) ExtensionDefByName(name string) *ExtensionDef {
	for _, ed := range m.Extensions {
		if ed.Name == name {
			return ed
		}
	}
	return nil
}

// GroupingByName searches module-level groupings in Data (groupings are
// ingested as ordinary Data entries tagged KindGrouping so lexical-scope
// walks - ingest, resolve, and instantiate all need "nearest enclosing
// grouping" lookups - can treat them uniformly with other children).
func (m *Module) GroupingByName(name string) *Grouping {
	for _, n := range m.Data {
		if g, ok := n.(*Grouping); ok && g.Name.String() == name {
			return g
		}
	}
	return nil
}
