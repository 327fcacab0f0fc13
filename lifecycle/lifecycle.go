// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package lifecycle implements the Module Lifecycle (C11): load, implement,
// disable, and remove, plus the glue that wires every other package's
// unres.Resolver onto one Queue per load and drives it to a fixed point,
// per spec §4.11. It is grounded on the teacher's compile/compile.go
// (Compiler.AddModuleByName/LoadModule's import-resolution and
// cycle-detection loop) and compile/deviation.go's apply-on-load
// ordering, reshaped around the explicit two-phase unres.Queue design the
// rest of this module uses instead of the teacher's single tsort pass.
package lifecycle

import (
	"fmt"

	"github.com/yangforge/schema-compiler/augment"
	"github.com/yangforge/schema-compiler/compile"
	"github.com/yangforge/schema-compiler/deviation"
	"github.com/yangforge/schema-compiler/instantiate"
	"github.com/yangforge/schema-compiler/internal/diag"
	"github.com/yangforge/schema-compiler/parse"
	"github.com/yangforge/schema-compiler/registry"
	"github.com/yangforge/schema-compiler/resolve"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
	"github.com/yangforge/schema-compiler/validate"
)

// Manager owns a registry.Context and drives its load/implement/disable/
// remove operations.
type Manager struct {
	Ctx *registry.Context
}

// NewManager returns a Manager wrapping ctx.
func NewManager(ctx *registry.Context) *Manager {
	return &Manager{Ctx: ctx}
}

// newQueue builds a fresh unres.Queue with every Kind's Resolver
// registered, the one assembly point for the whole deferred-resolution
// catalog (spec §4.4's kind list).
func (mgr *Manager) newQueue() *unres.Queue {
	ctx := mgr.Ctx
	q := unres.New()

	scope := resolve.ScopeLookup{Ctx: ctx}
	q.Register(unres.TypeDer, resolve.TypeDeriveResolver{Scope: scope})
	q.Register(unres.TypeDerTpdf, resolve.TypeDeriveResolver{Scope: scope})
	q.Register(unres.Ident, resolve.IdentResolver{Ctx: ctx})
	q.Register(unres.TypeIdentref, resolve.TypeIdentrefResolver{
		Ctx: ctx,
		Version: func(moduleRef string) schema.Version {
			if m := ctx.FindModule(moduleRef, "", true); m != nil {
				return m.Version
			}
			return schema.Version1_1
		},
	})
	q.Register(unres.TypeLeafref, resolve.LeafrefResolver{Ctx: ctx})
	q.Register(unres.TypeDflt, resolve.DefaultResolver{})
	q.Register(unres.TypedefDflt, resolve.DefaultResolver{})
	q.Register(unres.Feature, resolve.FeatureResolver{Ctx: ctx})
	q.Register(unres.Iffeature, resolve.IffeatureResolver{Ctx: ctx})
	q.Register(unres.Uses, instantiate.Resolver{
		Lookup: instantiate.GroupingLookup{Ctx: ctx},
		Dict:   ctx.Dict,
	})
	q.Register(unres.Augment, augment.Resolver{Ctx: ctx})
	q.Register(unres.ListKeys, validate.KeysResolver{})
	q.Register(unres.ListUnique, validate.UniqueResolver{})
	q.Register(unres.ChoiceDflt, validate.ChoiceDfltResolver{})
	q.Register(unres.ModImplement, modImplementResolver{mgr: mgr})
	q.Register(unres.XPath, resolve.XPathResolver{Ctx: ctx})
	q.Register(unres.Ext, resolve.ExtResolver{Ctx: ctx})
	q.Register(unres.ExtFinalize, resolve.ExtFinalizeResolver{})
	return q
}

// modImplementResolver resolves the ModImplement unres kind: a leafref
// whose target module is loaded but not yet implemented requests that
// the target be implemented (spec §4.11's "a leafref into an import
// implicitly implements it" rule), enqueued by augment.checkLeafrefTarget.
type modImplementResolver struct{ mgr *Manager }

func (r modImplementResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	mod := it.Node.(*schema.Module)
	if mod.Implemented {
		return unres.Ok, nil
	}
	mod.Implemented = true
	r.mgr.applyModuleDeviations(mod)
	r.mgr.Ctx.NoteImplementChange()
	return unres.Ok, nil
}

// Load parses source as a YANG module/submodule, ingests it, resolves its
// imports (recursively loading any that the registry does not already
// have, per the configured Importer), drains the resulting unres.Queue to
// a fixed point, registers leafref backlinks, runs the Validator, and
// registers the module (spec §4.11 steps 1-6).
func (mgr *Manager) Load(source []byte, format, filepath string) (*schema.Module, *diag.List, error) {
	if format != "" && format != "yang" {
		return nil, nil, fmt.Errorf("lifecycle: unsupported module format %q (only yang is parsed)", format)
	}
	tree, err := parse.Parse(filepath, string(source), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("lifecycle: parse %s: %w", filepath, err)
	}

	q := mgr.newQueue()
	in := compile.NewIngest(mgr.Ctx, q)
	m, err := in.Module(tree.Root, filepath)
	if err != nil {
		return nil, nil, err
	}

	if err := mgr.Ctx.BeginImport(m.Name.String()); err != nil {
		return nil, in.Diags, err
	}
	defer mgr.Ctx.EndImport(m.Name.String())

	if err := mgr.resolveImports(m); err != nil {
		return m, in.Diags, err
	}

	diags := q.Run()
	in.Diags.AddAll(diags)

	registerBacklinks(m)

	if mgr.Ctx.AllImplemented {
		m.Implemented = true
	}
	// A deviation only takes effect once the module declaring it is
	// implemented (RFC 7950); if that has not happened yet, Implement
	// applies them later via applyModuleDeviations.
	if m.Implemented {
		in.Diags.AddAll(mgr.applyModuleDeviations(m))
	}

	in.Diags.AddAll(validate.Validate(m))

	// P8: a failed load releases every handle it acquired and registers
	// nothing. The dictionary itself is refcounted (internal/dict), so
	// simply not registering m - and letting it and its handles become
	// unreachable - satisfies the release half; nothing here must undo
	// intern() calls by hand.
	if !in.Diags.Empty() {
		return m, in.Diags, fmt.Errorf("lifecycle: load %s failed: %w", filepath, in.Diags)
	}

	mgr.Ctx.Register(m)
	return m, in.Diags, nil
}

// resolveImports ensures every module m.Imports names is present in the
// registry, loading it through the configured Importer (recursively)
// when it is not already known (spec §4.11 step 1's import-resolution
// loop; the cycle guard is Ctx.BeginImport/EndImport).
func (mgr *Manager) resolveImports(m *schema.Module) error {
	for _, imp := range m.Imports {
		if mgr.Ctx.FindModule(imp.ModuleRef, imp.RevDate, true) != nil {
			continue
		}
		importer := mgr.Ctx.ImporterFunc()
		if importer == nil {
			return fmt.Errorf("lifecycle: module %q imports %q, which is not loaded and no importer is configured", m.Name, imp.ModuleRef)
		}
		src, format, ok := importer(imp.ModuleRef, imp.RevDate)
		if !ok {
			return fmt.Errorf("lifecycle: import %q (revision %q) could not be resolved", imp.ModuleRef, imp.RevDate)
		}
		if _, _, err := mgr.Load(src, format, imp.ModuleRef+".yang"); err != nil {
			return fmt.Errorf("lifecycle: loading import %q: %w", imp.ModuleRef, err)
		}
	}
	return nil
}

// registerBacklinks is the post-Run() pass LeafrefResolver's own doc
// comment defers to: every Leaf whose type resolved to a leafref target
// gets appended to that target's Backlinks, deduplicated by pointer
// (spec §3's Leaf.backlinks). Backlinks holds *Leaf only, so a LeafList
// whose type is a leafref is not recorded as a referrer.
func registerBacklinks(m *schema.Module) {
	for _, n := range m.Data {
		registerBacklinksIn(n)
	}
	for _, r := range m.Rpcs {
		if r.Input != nil {
			for _, n := range r.Input.Common.Children() {
				registerBacklinksIn(n)
			}
		}
		if r.Output != nil {
			for _, n := range r.Output.Common.Children() {
				registerBacklinksIn(n)
			}
		}
	}
	for _, nt := range m.Notifs {
		registerBacklinksIn(nt)
	}
}

func registerBacklinksIn(n schema.Node) {
	switch leaf := n.(type) {
	case *schema.Leaf:
		linkBacklink(leaf.Type, leaf)
	case *schema.LeafList:
		linkBacklink(leaf.Type, nil)
	}
	for _, ch := range n.Common().Children() {
		registerBacklinksIn(ch)
	}
}

func linkBacklink(t *schema.Type, owner *schema.Leaf) {
	if t == nil || t.Base != schema.BaseLeafref || t.LeafrefTarget == nil || owner == nil {
		return
	}
	var backlinks *[]*schema.Leaf
	switch target := t.LeafrefTarget.(type) {
	case *schema.Leaf:
		backlinks = &target.Backlinks
	case *schema.LeafList:
		backlinks = &target.Backlinks
	default:
		return
	}
	for _, b := range *backlinks {
		if b == owner {
			return
		}
	}
	*backlinks = append(*backlinks, owner)
}

// Implement marks the named module implemented and applies its own
// deviation statements (RFC 7950: a deviation takes effect once the
// module declaring it is implemented, not merely imported), bumping the
// module-set version (P9).
func (mgr *Manager) Implement(name, revision string) (*diag.List, error) {
	m := mgr.Ctx.FindModule(name, revision, false)
	if m == nil {
		return nil, fmt.Errorf("lifecycle: module %q (revision %q) is not loaded", name, revision)
	}
	if m.Implemented {
		return &diag.List{}, nil
	}
	m.Implemented = true
	diags := mgr.applyModuleDeviations(m)
	mgr.Ctx.NoteImplementChange()
	return diags, nil
}

func (mgr *Manager) applyModuleDeviations(m *schema.Module) *diag.List {
	if len(m.Deviations) == 0 {
		return &diag.List{}
	}
	q := mgr.newQueue()
	var out diag.List
	for _, dev := range m.Deviations {
		if err := deviation.Apply(mgr.Ctx, q, dev); err != nil {
			out.Add(diag.New(diag.DeviationConflict, m.Name.String(), nil, "%s", err))
		}
	}
	out.AddAll(q.Run())
	return &out
}

// Disable reverts the named module's own deviations and any augments it
// contributed elsewhere, marks it disabled and not implemented, and
// bumps the module-set version (P9, spec §4.11).
func (mgr *Manager) Disable(name, revision string) error {
	m := mgr.Ctx.FindModule(name, revision, false)
	if m == nil {
		return fmt.Errorf("lifecycle: module %q (revision %q) is not loaded", name, revision)
	}
	for _, dep := range mgr.Ctx.ModuleIter() {
		if dep == m || !dep.Implemented {
			continue
		}
		for _, imp := range dep.Imports {
			if imp.ModuleRef == m.Name.String() {
				return fmt.Errorf("lifecycle: module %q is imported by implemented module %q, cannot disable", name, dep.Name)
			}
		}
	}
	for i := len(m.Deviations) - 1; i >= 0; i-- {
		deviation.Revert(m.Deviations[i])
	}
	for _, aug := range m.Augments {
		augment.Unapply(aug)
	}
	m.Implemented = false
	m.Disabled = true
	mgr.Ctx.NoteImplementChange()
	return nil
}

// Remove disables m (reverting its deviations/augments) and then drops
// it from the registry entirely (spec §4.2/§4.11); unlike Disable it
// refuses if any other loaded module - implemented or not - still
// imports it, since a removed module cannot be re-resolved on demand.
func (mgr *Manager) Remove(name, revision string) error {
	m := mgr.Ctx.FindModule(name, revision, true)
	if m == nil {
		return fmt.Errorf("lifecycle: module %q (revision %q) is not loaded", name, revision)
	}
	for _, other := range mgr.Ctx.ModuleIter() {
		if other == m {
			continue
		}
		for _, imp := range other.Imports {
			if imp.ModuleRef == m.Name.String() {
				return fmt.Errorf("lifecycle: module %q is imported by %q, cannot remove", name, other.Name)
			}
		}
	}
	if !m.Disabled {
		if err := mgr.Disable(name, revision); err != nil {
			return err
		}
	}
	mgr.Ctx.Remove(m)
	return nil
}
