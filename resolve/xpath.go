// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"fmt"

	"github.com/yangforge/schema-compiler/registry"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
	"github.com/yangforge/schema-compiler/xpath"
)

// xpathPayload is the Item.Payload for an unres.XPath entry: one when/must
// expression string attached to the owning node named by Item.Node.
type xpathPayload struct {
	Expr string
}

// NewXPathItem builds the XPath unres Item for one when/must expression on
// owner (spec §4.4's "when/must XPath" deferred-resolution row). key is
// typically owner itself, or the enclosing Grouping while owner's subtree
// is still under construction, so Grouping.UnresCount accounting matches
// every other deferred kind.
func NewXPathItem(owner schema.Node, module, expr string, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.XPath,
		Key:     key,
		Node:    owner,
		Module:  module,
		Payload: &xpathPayload{Expr: expr},
	}
}

// XPathResolver resolves the XPath unres kind by delegating to the external
// xpath.Engine for syntactic validation and dependency extraction only
// (spec §4.6: "delegates to the XPath engine for dependency-tagging only
// ... does not evaluate"). A successful Tag call ORs the reported
// config/state dependency kinds into owner's Flags.ConfigDep/StateDep; it
// never inspects or rewrites the expression itself.
type XPathResolver struct {
	Ctx *registry.Context
}

func (r XPathResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	owner := it.Node.(schema.Node)
	p := it.Payload.(*xpathPayload)

	verdict, err := r.Ctx.XPathEngine.Tag(p.Expr, xpath.ContextNode{
		ModulePrefix: it.Module,
		SchemaPath:   relSchemaPath(owner),
	})
	if err != nil {
		return unres.Retry, nil
	}
	if !verdict.Valid {
		msg := verdict.SyntaxError
		if msg == "" {
			msg = "invalid expression"
		}
		return unres.Err, fmt.Errorf("xpath expression %q on %s: %s", p.Expr, it.Module, msg)
	}

	fl := &owner.Common().Flags
	for _, d := range verdict.Dependencies {
		switch d.Kind {
		case xpath.ConfigDependency:
			fl.ConfigDep = true
		case xpath.StateDependency:
			fl.StateDep = true
		}
	}
	return unres.Ok, nil
}

// relSchemaPath renders owner's node-name chain (module-unqualified,
// nearest-root-first) for the Engine's ContextNode.SchemaPath, which only
// needs enough information to resolve "current()"/relative steps, not a
// fully prefix-qualified absolute path (that's LeafrefResolver's job for
// leafref "path", a different unres kind with its own payload).
func relSchemaPath(n schema.Node) []string {
	var segs []string
	for cur := n; cur != nil; cur = cur.Common().Parent {
		segs = append([]string{cur.Common().Name.String()}, segs...)
	}
	return segs
}
