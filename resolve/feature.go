// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"fmt"

	"github.com/yangforge/schema-compiler/registry"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
)

// featurePayload carries the if-feature expression names an item is
// resolving and the name of the module that owns them.
type featurePayload struct {
	Names        []string
	OwningModule string
}

// NewFeatureItem builds a Feature unres Item, used for module-level
// feature definitions (their own if-feature dependency list) so the
// engine can cycle-detect before anything else consumes them.
func NewFeatureItem(f *schema.Feature, module string, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.Feature,
		Key:     key,
		Node:    f,
		Module:  module,
		Payload: &featurePayload{Names: f.IfFeatures, OwningModule: module},
	}
}

// FeatureResolver binds a feature's if-feature dependency list to the
// named Feature definitions and cycle-detects by walking the reverse
// edges (spec §4.6 "Feature" kind).
type FeatureResolver struct {
	Ctx *registry.Context
}

func (r FeatureResolver) lookupFeature(owningModule, name string) *schema.Feature {
	modName, local := parseTypeName(name)
	var owner *schema.Module
	if modName == "" {
		owner = r.Ctx.FindModule(owningModule, "", false)
	} else {
		owner = r.Ctx.FindModule(modName, "", false)
	}
	if owner == nil {
		return nil
	}
	return owner.FeatureByName(local)
}

func (r FeatureResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	f := it.Node.(*schema.Feature)
	p := it.Payload.(*featurePayload)
	deps := make([]*schema.Feature, 0, len(p.Names))
	for _, name := range p.Names {
		dep := r.lookupFeature(p.OwningModule, name)
		if dep == nil {
			return unres.Retry, nil
		}
		deps = append(deps, dep)
	}
	for _, dep := range deps {
		if r.reachesTarget(dep, f, map[*schema.Feature]bool{}) {
			return unres.Err, fmt.Errorf("feature %q: circular if-feature dependency", f.Name)
		}
	}
	for _, dep := range deps {
		dep.Dependents = append(dep.Dependents, f)
	}
	f.Enabled = allEnabled(deps)
	return unres.Ok, nil
}

// reachesTarget walks cur's own if-feature names forward (re-resolving
// each by name rather than trusting Dependents, which is only populated
// for dependencies that have themselves already finished resolving) to
// discover whether cur transitively depends on target. Resolution order
// in the unres queue is arbitrary, so a cycle must be detectable no
// matter which of its member features' items runs first.
func (r FeatureResolver) reachesTarget(cur, target *schema.Feature, visited map[*schema.Feature]bool) bool {
	if cur == target {
		return true
	}
	if visited[cur] {
		return false
	}
	visited[cur] = true
	for _, name := range cur.IfFeatures {
		dep := r.lookupFeature(cur.ModuleRef, name)
		if dep == nil {
			continue
		}
		if r.reachesTarget(dep, target, visited) {
			return true
		}
	}
	return false
}

func allEnabled(fs []*schema.Feature) bool {
	for _, f := range fs {
		if !f.Enabled {
			return false
		}
	}
	return true
}

// IffeatureResolver resolves an if-feature expression attached to an
// arbitrary schema node (the node-level Iffeature unres kind, as opposed
// to a Feature's own dependency list handled above).
type IffeatureResolver struct {
	Ctx *registry.Context
}

func (r IffeatureResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	p := it.Payload.(*featurePayload)
	for _, name := range p.Names {
		f := FeatureResolver{Ctx: r.Ctx}.lookupFeature(p.OwningModule, name)
		if f == nil {
			return unres.Retry, nil
		}
	}
	return unres.Ok, nil
}

// NewIffeatureItem builds the node-level Iffeature unres Item.
func NewIffeatureItem(node schema.Node, module string, names []string, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.Iffeature,
		Key:     key,
		Node:    node,
		Module:  module,
		Payload: &featurePayload{Names: names, OwningModule: module},
	}
}
