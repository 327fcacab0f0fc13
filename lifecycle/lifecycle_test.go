// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package lifecycle_test

import (
	"fmt"
	"testing"

	"github.com/yangforge/schema-compiler/lifecycle"
	"github.com/yangforge/schema-compiler/registry"
	"github.com/yangforge/schema-compiler/schema"
)

// newManager returns a fresh lifecycle.Manager backed by an empty
// registry.Context, wired with an importer that serves the named sources
// out of srcs - the end-to-end harness spec §8's seed scenarios need to
// load more than one interdependent module, grounded on the teacher's
// compile_test.go pattern of compiling a schema-text fixture and asserting
// on the resulting tree (without that file's testutils/schematests
// dependency, which this tree does not carry forward - see DESIGN.md).
func newManager(srcs map[string]string) *lifecycle.Manager {
	ctx := registry.New()
	ctx.SetImporter(func(name, revision string) ([]byte, string, bool) {
		src, ok := srcs[name]
		if !ok {
			return nil, "", false
		}
		return []byte(src), "yang", true
	})
	return lifecycle.NewManager(ctx)
}

func mustLoad(t *testing.T, mgr *lifecycle.Manager, source, filename string) *schema.Module {
	t.Helper()
	m, diags, err := mgr.Load([]byte(source), "yang", filename)
	if err != nil {
		t.Fatalf("Load(%s): %v", filename, err)
	}
	if diags != nil && !diags.Empty() {
		t.Fatalf("Load(%s): unexpected diagnostics: %s", filename, diags.Error())
	}
	return m
}

// Scenario 1 (spec §8): a basic module with one container and one leaf
// loads into an empty context and resolves the leaf's type to the string
// builtin.
func TestLoadBasicModule(t *testing.T) {
	const src = `
module a {
	namespace "urn:a";
	prefix a;

	container x {
		leaf bubba {
			type string;
		}
	}
}`
	mgr := newManager(nil)
	m := mustLoad(t, mgr, src, "a.yang")

	if len(m.Data) != 1 {
		t.Fatalf("expected one top-level node, got %d", len(m.Data))
	}
	x, ok := m.Data[0].(*schema.Container)
	if !ok || x.Name.String() != "x" {
		t.Fatalf("expected container %q, got %#v", "x", m.Data[0])
	}
	child := x.Common().LookupChild(schema.KindLeaf, "bubba")
	if child == nil {
		t.Fatalf("container x has no leaf bubba")
	}
	bubba := child.(*schema.Leaf)
	if bubba.Type.Base != schema.BaseString {
		t.Fatalf("expected bubba's resolved base to be string, got %s", bubba.Type.Base)
	}

	if got := mgr.Ctx.FindModule("a", "", false); got != m {
		t.Fatalf("FindModule(a) did not return the loaded module")
	}
}

// Scenario 2 (spec §8): a leafref in an importing module binds to the
// target leaf and registers a backlink on it.
func TestImportAndLeafref(t *testing.T) {
	const srcA = `
module a {
	namespace "urn:a";
	prefix a;

	container x {
		leaf bubba {
			type string;
		}
	}
}`
	const srcB = `
module b {
	namespace "urn:b";
	prefix b;

	import a {
		prefix a;
	}

	leaf r {
		type leafref {
			path "/a:x/a:bubba";
		}
	}
}`
	mgr := newManager(map[string]string{"a": srcA})
	mb := mustLoad(t, mgr, srcB, "b.yang")

	ma := mgr.Ctx.FindModule("a", "", false)
	if ma == nil {
		t.Fatalf("module a was not transitively loaded via the importer")
	}
	if _, err := mgr.Implement("a", ""); err != nil {
		t.Fatalf("Implement(a): %v", err)
	}
	if _, err := mgr.Implement("b", ""); err != nil {
		t.Fatalf("Implement(b): %v", err)
	}

	r := mb.Data[0].(*schema.Leaf)
	if r.Name.String() != "r" {
		t.Fatalf("expected leaf r, got %q", r.Name.String())
	}
	x := ma.Data[0].(*schema.Container)
	bubba := x.Common().LookupChild(schema.KindLeaf, "bubba").(*schema.Leaf)

	if r.Type.LeafrefTarget != schema.Node(bubba) {
		t.Fatalf("r's leafref target is not bubba: %#v", r.Type.LeafrefTarget)
	}
	found := false
	for _, b := range bubba.Backlinks {
		if b == r {
			found = true
		}
	}
	if !found {
		t.Fatalf("bubba.Backlinks does not contain r")
	}
}

// Scenario 3 (spec §8) plus P3: an augment adds a child to another
// module's container, and unapplying it (via Disable) restores the
// pre-apply shape exactly.
func TestAugmentAppliesAndReverts(t *testing.T) {
	const srcA = `
module a {
	namespace "urn:a";
	prefix a;

	container x {
		leaf bubba {
			type string;
		}
	}
}`
	const srcC = `
module c {
	namespace "urn:c";
	prefix c;

	import a {
		prefix a;
	}

	augment "/a:x" {
		leaf extra {
			type int32;
		}
	}
}`
	mgr := newManager(map[string]string{"a": srcA})
	mustLoad(t, mgr, srcC, "c.yang")

	ma := mgr.Ctx.FindModule("a", "", false)
	x := ma.Data[0].(*schema.Container)
	if got := len(x.Common().Children()); got != 2 {
		t.Fatalf("expected augment to have spliced in a second child, got %d", got)
	}
	if x.Common().LookupChild(schema.KindLeaf, "extra") == nil {
		t.Fatalf("augmented leaf %q not found under x", "extra")
	}

	if err := mgr.Disable("c", ""); err != nil {
		t.Fatalf("Disable(c): %v", err)
	}
	if got := len(x.Common().Children()); got != 1 {
		t.Fatalf("expected disable to unapply the augment, leaving one child, got %d", got)
	}
	if x.Common().LookupChild(schema.KindLeaf, "bubba") == nil {
		t.Fatalf("original leaf bubba lost after augment revert")
	}
}

// Scenario 4 (spec §8) plus P4: a not-supported deviation detaches a
// target leaf, and disabling the deviating module restores it with
// identical properties.
func TestDeviationNotSupportedReverts(t *testing.T) {
	const srcA = `
module a {
	namespace "urn:a";
	prefix a;

	container x {
		leaf bubba {
			type string;
		}
	}
}`
	const srcD = `
module d {
	namespace "urn:d";
	prefix d;

	import a {
		prefix a;
	}

	deviation "/a:x/a:bubba" {
		deviate not-supported;
	}
}`
	mgr := newManager(map[string]string{"a": srcA})
	mgr.Ctx.AllImplemented = true
	mustLoad(t, mgr, srcD, "d.yang")

	ma := mgr.Ctx.FindModule("a", "", false)
	x := ma.Data[0].(*schema.Container)
	if x.Common().LookupChild(schema.KindLeaf, "bubba") != nil {
		t.Fatalf("expected bubba to be detached by the not-supported deviation")
	}

	if err := mgr.Disable("d", ""); err != nil {
		t.Fatalf("Disable(d): %v", err)
	}
	restored := x.Common().LookupChild(schema.KindLeaf, "bubba")
	if restored == nil {
		t.Fatalf("expected bubba to be reattached after disabling d")
	}
	if restored.(*schema.Leaf).Type.Base != schema.BaseString {
		t.Fatalf("restored bubba lost its resolved type")
	}
}

// Scenario 5 (spec §8): mutually if-feature-dependent features are
// rejected as a circular reference, and no module is registered.
func TestCircularFeatureRejected(t *testing.T) {
	const src = `
module e {
	namespace "urn:e";
	prefix e;

	feature f {
		if-feature g;
	}
	feature g {
		if-feature f;
	}
}`
	mgr := newManager(nil)
	_, diags, err := mgr.Load([]byte(src), "yang", "e.yang")
	if err == nil && (diags == nil || diags.Empty()) {
		t.Fatalf("expected the circular if-feature dependency to be reported")
	}
	if mgr.Ctx.FindModule("e", "", true) != nil {
		t.Fatalf("module e must not be registered after a load failure")
	}
}

// Scenario 6 (spec §8): enum narrowing without an explicit base-matching
// value is rejected in YANG 1.0 but accepted (with the value inherited
// from the base) in YANG 1.1.
func TestEnumNarrowingVersionGate(t *testing.T) {
	schemaFor := func(version string) string {
		return fmt.Sprintf(`
module f {
	namespace "urn:f";
	prefix f;
	%s

	typedef e {
		type enumeration {
			enum a;
		}
	}

	leaf l {
		type e {
			enum a;
		}
	}
}`, version)
	}

	t.Run("1.0 rejects restricted enum", func(t *testing.T) {
		mgr := newManager(nil)
		_, diags, err := mgr.Load([]byte(schemaFor("")), "yang", "f10.yang")
		if err == nil && (diags == nil || diags.Empty()) {
			t.Fatalf("expected a version error restricting an enum in YANG 1.0")
		}
	})

	t.Run("1.1 accepts restricted enum", func(t *testing.T) {
		mgr := newManager(nil)
		m := mustLoad(t, mgr, schemaFor(`yang-version "1.1";`), "f11.yang")
		l := m.Data[0].(*schema.Leaf)
		if len(l.Type.Enums) != 1 || l.Type.Enums[0].Name != "a" {
			t.Fatalf("expected l's type to carry the inherited enum a, got %#v", l.Type.Enums)
		}
	})
}

// P9: every successful implement/disable strictly increases the
// module-set version counter.
func TestSetVersionMonotonicity(t *testing.T) {
	const src = `
module g {
	namespace "urn:g";
	prefix g;

	leaf l {
		type string;
	}
}`
	mgr := newManager(nil)
	before := mgr.Ctx.SetVersionID()
	mustLoad(t, mgr, src, "g.yang")
	afterLoad := mgr.Ctx.SetVersionID()
	if afterLoad <= before {
		t.Fatalf("expected SetVersionID to increase after Load: %d -> %d", before, afterLoad)
	}

	if _, err := mgr.Implement("g", ""); err != nil {
		t.Fatalf("Implement(g): %v", err)
	}
	afterImplement := mgr.Ctx.SetVersionID()
	if afterImplement <= afterLoad {
		t.Fatalf("expected SetVersionID to increase after Implement: %d -> %d", afterLoad, afterImplement)
	}

	if err := mgr.Disable("g", ""); err != nil {
		t.Fatalf("Disable(g): %v", err)
	}
	afterDisable := mgr.Ctx.SetVersionID()
	if afterDisable <= afterImplement {
		t.Fatalf("expected SetVersionID to increase after Disable: %d -> %d", afterImplement, afterDisable)
	}
}

// P5: a uses statement instantiates a grouping's body as if it had been
// written inline, including a refine overlay that tightens the copy
// without touching the grouping original.
func TestUsesInstantiatesGroupingWithRefine(t *testing.T) {
	const src = `
module h {
	namespace "urn:h";
	prefix h;

	grouping g {
		leaf l {
			type string;
			description "from the grouping";
		}
	}

	container top {
		uses g {
			refine l {
				mandatory true;
			}
		}
	}
}`
	mgr := newManager(nil)
	m := mustLoad(t, mgr, src, "h.yang")

	var top *schema.Container
	for _, n := range m.Data {
		if c, ok := n.(*schema.Container); ok && c.Name.String() == "top" {
			top = c
		}
	}
	if top == nil {
		t.Fatalf("container top not found among module data")
	}
	child := top.Common().LookupChild(schema.KindLeaf, "l")
	if child == nil {
		t.Fatalf("uses did not instantiate grouping member l under top")
	}
	l := child.(*schema.Leaf)
	if !l.Common().Flags.MandatoryTrue {
		t.Fatalf("expected refine to set mandatory=true on the uses copy")
	}

	grp := m.GroupingByName("g")
	if grp == nil {
		t.Fatalf("grouping g not found")
	}
	orig := grp.Common().LookupChild(schema.KindLeaf, "l").(*schema.Leaf)
	if orig.Common().Flags.MandatoryTrue {
		t.Fatalf("refine on the uses copy leaked back into the grouping original")
	}
	if orig == l {
		t.Fatalf("expected uses to deep-copy the grouping member, not share it")
	}
}

// P7: a configuration list must carry at least one key, referencing a
// direct-child config leaf.
func TestConfigListRequiresKeys(t *testing.T) {
	const src = `
module i {
	namespace "urn:i";
	prefix i;

	container top {
		list entries {
			key "name";
			leaf name {
				type string;
			}
		}
	}
}`
	mgr := newManager(nil)
	m := mustLoad(t, mgr, src, "i.yang")

	top := m.Data[0].(*schema.Container)
	entries := top.Common().LookupChild(schema.KindList, "entries").(*schema.List)
	if len(entries.Keys) != 1 {
		t.Fatalf("expected one resolved key leaf, got %d", len(entries.Keys))
	}
	if entries.Keys[0].Common().Name.String() != "name" {
		t.Fatalf("expected key to resolve to leaf name, got %q", entries.Keys[0].Common().Name.String())
	}
}

// P7 negative case: a config=true list with no key statement at all must
// be rejected, not silently loaded with an empty key set.
func TestConfigListWithoutKeyIsRejected(t *testing.T) {
	const src = `
module i2 {
	namespace "urn:i2";
	prefix i2;

	container top {
		list entries {
			leaf name {
				type string;
			}
		}
	}
}`
	mgr := newManager(nil)
	_, diags, err := mgr.Load([]byte(src), "yang", "i2.yang")
	if err == nil && (diags == nil || diags.Empty()) {
		t.Fatalf("expected a config=true list with no key statement to be rejected")
	}
}

// Analogous to scenario 4 but for the `replace` deviate: a deviation
// replacing a leaf's default is applied and then fully reverted.
func TestDeviationReplaceReverts(t *testing.T) {
	const srcA = `
module j {
	namespace "urn:j";
	prefix j;

	container x {
		leaf bubba {
			type string;
			default "hi";
		}
	}
}`
	const srcD = `
module k {
	namespace "urn:k";
	prefix k;

	import j {
		prefix j;
	}

	deviation "/j:x/j:bubba" {
		deviate replace {
			default "bye";
		}
	}
}`
	mgr := newManager(map[string]string{"j": srcA})
	mgr.Ctx.AllImplemented = true
	mustLoad(t, mgr, srcD, "k.yang")

	mj := mgr.Ctx.FindModule("j", "", false)
	x := mj.Data[0].(*schema.Container)
	bubba := x.Common().LookupChild(schema.KindLeaf, "bubba").(*schema.Leaf)
	if got := bubba.Default.String(); got != "bye" {
		t.Fatalf("expected deviation to replace default with %q, got %q", "bye", got)
	}

	if err := mgr.Disable("k", ""); err != nil {
		t.Fatalf("Disable(k): %v", err)
	}
	if got := bubba.Default.String(); got != "hi" {
		t.Fatalf("expected disable to restore original default %q, got %q", "hi", got)
	}
}

// A `deviate add units` statement sets the target's Units field, and
// reverts it on disable (P4).
func TestDeviationAddUnitsReverts(t *testing.T) {
	const srcA = `
module l {
	namespace "urn:l";
	prefix l;

	container x {
		leaf bubba {
			type uint32;
		}
	}
}`
	const srcD = `
module m {
	namespace "urn:m";
	prefix m;

	import l {
		prefix l;
	}

	deviation "/l:x/l:bubba" {
		deviate add {
			units "seconds";
		}
	}
}`
	mgr := newManager(map[string]string{"l": srcA})
	mgr.Ctx.AllImplemented = true
	mustLoad(t, mgr, srcD, "m.yang")

	ml := mgr.Ctx.FindModule("l", "", false)
	x := ml.Data[0].(*schema.Container)
	bubba := x.Common().LookupChild(schema.KindLeaf, "bubba").(*schema.Leaf)
	if got := bubba.Units.String(); got != "seconds" {
		t.Fatalf("expected deviate add to set units to %q, got %q", "seconds", got)
	}

	if err := mgr.Disable("m", ""); err != nil {
		t.Fatalf("Disable(m): %v", err)
	}
	if got := bubba.Units.String(); got != "" {
		t.Fatalf("expected disable to clear the deviated-in units, got %q", got)
	}
}
