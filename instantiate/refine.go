// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package instantiate

import (
	"fmt"
	"strings"

	"github.com/yangforge/schema-compiler/internal/dict"
	"github.com/yangforge/schema-compiler/schema"
)

// ApplyRefines overlays every refine statement of a uses onto the
// descendant it targets within the just-instantiated copy set, per spec
// §4.7 step 3. copies holds the grouping's top-level children after
// Instantiate; each refine's TargetPath is a descendant-schema-nodeid
// relative to the uses statement itself, so the first path segment is
// looked up among copies and every further segment descends by name
// without regard to kind, the way a choice's implicit case is invisible
// to a refine's path (RFC 7950 §7.13.2).
func ApplyRefines(copies []schema.Node, refines []*schema.Refine, d *dict.Dictionary) error {
	for _, rf := range refines {
		target := findTarget(copies, rf.TargetPath)
		if target == nil {
			return fmt.Errorf("refine %q: no matching descendant", strings.Join(rf.TargetPath, "/"))
		}
		if err := applyRefine(target, rf, d); err != nil {
			return fmt.Errorf("refine %q: %w", strings.Join(rf.TargetPath, "/"), err)
		}
	}
	return nil
}

func findTarget(roots []schema.Node, path []string) schema.Node {
	if len(path) == 0 {
		return nil
	}
	cur := findByName(roots, path[0])
	for _, seg := range path[1:] {
		if cur == nil {
			return nil
		}
		cur = findByName(cur.Common().Children(), seg)
	}
	return cur
}

func findByName(nodes []schema.Node, name string) schema.Node {
	for _, n := range nodes {
		cc := n.Common()
		if cc.Name.String() == name {
			return n
		}
		// Implicit cases wrap a choice's shorthand children: a refine's
		// path names the shorthand child directly, never the case.
		if cc.Kind == schema.KindCase && cc.Flags.Implicit {
			if ch := findByName(cc.Children(), name); ch != nil {
				return ch
			}
		}
	}
	return nil
}

// applyRefine overlays one refine onto target, dispatching per RFC 7950
// Table 3 (which substatements are valid under which refined node kind).
// Unsupported properties for target's kind are silently ignored, mirroring
// how a refine's argument already constrains which combinations can occur
// in a schema that passed cardinality checking.
func applyRefine(target schema.Node, rf *schema.Refine, d *dict.Dictionary) error {
	cc := target.Common()

	if rf.Dsc != nil {
		cc.Dsc = d.Intern(*rf.Dsc)
	}
	if rf.Ref != nil {
		cc.Ref = d.Intern(*rf.Ref)
	}
	if len(rf.IfFeatures) > 0 {
		cc.IfFeatures = append(append([]string(nil), cc.IfFeatures...), rf.IfFeatures...)
	}
	if rf.Config != nil {
		if cc.Flags.ConfigTrue && !*rf.Config {
			cc.Flags.ConfigTrue = false
		} else if !cc.Flags.ConfigTrue && *rf.Config {
			cc.Flags.ConfigTrue = true
		}
		cc.Flags.ConfigExplicit = true
	}

	switch n := target.(type) {
	case *schema.Leaf:
		if rf.Default != nil {
			n.Default = d.Intern(*rf.Default)
			n.HasDefault = true
		}
		if rf.Mandatory != nil {
			if *rf.Mandatory && n.HasDefault {
				return fmt.Errorf("mandatory true conflicts with a refined default")
			}
			n.Flags.MandatoryTrue = *rf.Mandatory
		}
		n.Musts = append(n.Musts, rf.AddMusts...)
	case *schema.LeafList:
		if len(rf.AddMusts) > 0 {
			n.Musts = append(n.Musts, rf.AddMusts...)
		}
		if rf.Min != nil {
			n.Min = *rf.Min
		}
		if rf.Max != nil {
			n.Max = *rf.Max
		}
	case *schema.List:
		n.Musts = append(n.Musts, rf.AddMusts...)
		if rf.Min != nil {
			n.Min = *rf.Min
		}
		if rf.Max != nil {
			n.Max = *rf.Max
		}
	case *schema.Container:
		n.Musts = append(n.Musts, rf.AddMusts...)
		if rf.Presence != nil {
			n.Presence = true
			n.PresenceMsg = d.Intern(*rf.Presence)
		}
	case *schema.Choice:
		if rf.Default != nil {
			n.DefaultCase = d.Intern(*rf.Default)
			n.HasDefault = true
		}
		if rf.Mandatory != nil {
			n.Flags.MandatoryTrue = *rf.Mandatory
		}
	case *schema.AnyData:
		n.Musts = append(n.Musts, rf.AddMusts...)
		if rf.Mandatory != nil {
			n.Flags.MandatoryTrue = *rf.Mandatory
		}
	case *schema.AnyXML:
		n.Musts = append(n.Musts, rf.AddMusts...)
		if rf.Mandatory != nil {
			n.Flags.MandatoryTrue = *rf.Mandatory
		}
	case *schema.Uses:
		// A refine may target a descendant grouping use itself only to
		// adjust if-feature/description/reference, already applied above.
	}
	return nil
}
