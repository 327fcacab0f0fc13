// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package parse

// Cardinality records how many times a substatement may occur under its
// parent, using the same Start/End rune pair the YANG ABNF annex uses:
// Start is '0' or '1', End is '1' or 'n'.
type Cardinality struct {
	Start, End rune
}

// NodeCardinality lets a caller extend the built-in substatement table with
// its own extension statements (configd:*, opd:*, or anything else not
// known to this package), keyed by the parent statement's NodeType.
type NodeCardinality func(NodeType) map[NodeType]Cardinality

// ErrCard prefixes every cardinality-violation error.
const ErrCard = "cardinality mismatch"

func one() Cardinality      { return Cardinality{'1', '1'} }
func optional() Cardinality { return Cardinality{'0', '1'} }
func many() Cardinality     { return Cardinality{'0', 'n'} }

// metaCard is the description/reference/status trio almost every statement
// accepts at most once.
func metaCard(m map[NodeType]Cardinality) {
	m[NodeDescription] = optional()
	m[NodeReference] = optional()
	m[NodeStatus] = optional()
}

// dataDefKinds lists the concrete data-definition NodeTypes NodeDataDef
// summarizes. checkCardinality counts a data-def child both under its own
// concrete NodeType and under the pseudo-key NodeDataDef, then rejects any
// concrete key absent from the parent's table - so every parent that
// allows NodeDataDef children must also list each concrete kind.
func dataDefKinds(m map[NodeType]Cardinality) {
	for _, k := range []NodeType{
		NodeContainer, NodeLeaf, NodeLeafList, NodeList,
		NodeChoice, NodeUses, NodeAnyxml,
	} {
		m[k] = many()
	}
}

// cardinalities is the per-parent-statement substatement table (RFC 7950
// §7's statement grammar), built once at init time.
var cardinalities map[NodeType]map[NodeType]Cardinality

func init() {
	cardinalities = make(map[NodeType]map[NodeType]Cardinality)

	module := map[NodeType]Cardinality{
		NodeYangVersion:  optional(),
		NodeNamespace:    one(),
		NodePrefix:       one(),
		NodeImport:       many(),
		NodeInclude:      many(),
		NodeOrganization: optional(),
		NodeContact:      optional(),
		NodeDescription:  optional(),
		NodeReference:    optional(),
		NodeRevision:     many(),
		NodeTypedef:      many(),
		NodeGrouping:     many(),
		NodeDataDef:      many(),
		NodeAugment:      many(),
		NodeRpc:          many(),
		NodeNotification: many(),
		NodeIdentity:     many(),
		NodeExtension:    many(),
		NodeFeature:      many(),
		NodeDeviation:    many(),
	}
	dataDefKinds(module)
	cardinalities[NodeModule] = module

	submodule := map[NodeType]Cardinality{}
	for k, v := range module {
		submodule[k] = v
	}
	delete(submodule, NodeNamespace)
	delete(submodule, NodePrefix)
	submodule[NodeBelongsTo] = one()
	cardinalities[NodeSubmodule] = submodule

	cardinalities[NodeImport] = map[NodeType]Cardinality{
		NodePrefix:       one(),
		NodeRevisionDate: optional(),
		NodeDescription:  optional(),
		NodeReference:    optional(),
	}
	cardinalities[NodeInclude] = map[NodeType]Cardinality{
		NodeRevisionDate: optional(),
		NodeDescription:  optional(),
		NodeReference:    optional(),
	}
	cardinalities[NodeRevision] = map[NodeType]Cardinality{
		NodeDescription: optional(),
		NodeReference:   optional(),
	}
	cardinalities[NodeBelongsTo] = map[NodeType]Cardinality{
		NodePrefix: one(),
	}

	typedef := map[NodeType]Cardinality{
		NodeTyp:     one(),
		NodeUnits:   optional(),
		NodeDefault: optional(),
	}
	metaCard(typedef)
	cardinalities[NodeTypedef] = typedef

	typ := map[NodeType]Cardinality{
		NodeRange:           optional(),
		NodeLength:          optional(),
		NodePattern:         many(),
		NodeEnum:            many(),
		NodeBit:             many(),
		NodePath:            optional(),
		NodeRequireInstance: optional(),
		NodeFractionDigits:  optional(),
		NodeBase:            many(),
		NodeTyp:             many(), // union member types
	}
	cardinalities[NodeTyp] = typ

	for _, t := range []NodeType{NodeRange, NodeLength, NodePattern} {
		cardinalities[t] = map[NodeType]Cardinality{
			NodeErrorMessage: optional(),
			NodeErrorAppTag:  optional(),
			NodeDescription:  optional(),
			NodeReference:    optional(),
		}
	}

	enum := map[NodeType]Cardinality{
		NodeIfFeature: many(),
		NodeValue:     optional(),
	}
	metaCard(enum)
	cardinalities[NodeEnum] = enum

	bit := map[NodeType]Cardinality{
		NodeIfFeature: many(),
		NodePosition:  optional(),
	}
	metaCard(bit)
	cardinalities[NodeBit] = bit

	grouping := map[NodeType]Cardinality{
		NodeTypedef:      many(),
		NodeGrouping:     many(),
		NodeDataDef:      many(),
		NodeNotification: many(),
	}
	dataDefKinds(grouping)
	metaCard(grouping)
	cardinalities[NodeGrouping] = grouping

	dataNodeCommon := func() map[NodeType]Cardinality {
		return map[NodeType]Cardinality{
			NodeWhen:      optional(),
			NodeIfFeature: many(),
		}
	}

	container := dataNodeCommon()
	container[NodeMust] = many()
	container[NodePresence] = optional()
	container[NodeConfig] = optional()
	container[NodeTypedef] = many()
	container[NodeGrouping] = many()
	container[NodeDataDef] = many()
	container[NodeNotification] = many()
	dataDefKinds(container)
	metaCard(container)
	cardinalities[NodeContainer] = container

	leaf := dataNodeCommon()
	leaf[NodeTyp] = one()
	leaf[NodeUnits] = optional()
	leaf[NodeMust] = many()
	leaf[NodeDefault] = optional()
	leaf[NodeConfig] = optional()
	leaf[NodeMandatory] = optional()
	metaCard(leaf)
	cardinalities[NodeLeaf] = leaf

	leafList := dataNodeCommon()
	leafList[NodeTyp] = one()
	leafList[NodeUnits] = optional()
	leafList[NodeMust] = many()
	leafList[NodeDefault] = many()
	leafList[NodeConfig] = optional()
	leafList[NodeMinElements] = optional()
	leafList[NodeMaxElements] = optional()
	leafList[NodeOrderedBy] = optional()
	metaCard(leafList)
	cardinalities[NodeLeafList] = leafList

	list := dataNodeCommon()
	list[NodeMust] = many()
	list[NodeKey] = optional()
	list[NodeUnique] = many()
	list[NodeConfig] = optional()
	list[NodeMinElements] = optional()
	list[NodeMaxElements] = optional()
	list[NodeOrderedBy] = optional()
	list[NodeTypedef] = many()
	list[NodeGrouping] = many()
	list[NodeDataDef] = many()
	list[NodeNotification] = many()
	dataDefKinds(list)
	metaCard(list)
	cardinalities[NodeList] = list

	choice := dataNodeCommon()
	choice[NodeDefault] = optional()
	choice[NodeConfig] = optional()
	choice[NodeMandatory] = optional()
	choice[NodeCase] = many()
	choice[NodeDataDef] = many() // shorthand cases
	dataDefKinds(choice)
	metaCard(choice)
	cardinalities[NodeChoice] = choice

	caseStmt := dataNodeCommon()
	caseStmt[NodeDataDef] = many()
	dataDefKinds(caseStmt)
	metaCard(caseStmt)
	cardinalities[NodeCase] = caseStmt

	anyxml := dataNodeCommon()
	anyxml[NodeMust] = many()
	anyxml[NodeConfig] = optional()
	anyxml[NodeMandatory] = optional()
	metaCard(anyxml)
	cardinalities[NodeAnyxml] = anyxml

	uses := dataNodeCommon()
	uses[NodeRefine] = many()
	uses[NodeAugment] = many()
	metaCard(uses)
	cardinalities[NodeUses] = uses

	augment := map[NodeType]Cardinality{
		NodeWhen:         optional(),
		NodeIfFeature:    many(),
		NodeDataDef:      many(),
		NodeCase:         many(),
		NodeNotification: many(),
	}
	dataDefKinds(augment)
	metaCard(augment)
	cardinalities[NodeAugment] = augment

	rpc := map[NodeType]Cardinality{
		NodeIfFeature: many(),
		NodeTypedef:   many(),
		NodeGrouping:  many(),
		NodeInput:     optional(),
		NodeOutput:    optional(),
	}
	metaCard(rpc)
	cardinalities[NodeRpc] = rpc

	inout := map[NodeType]Cardinality{
		NodeMust:     many(),
		NodeTypedef:  many(),
		NodeGrouping: many(),
		NodeDataDef:  many(),
	}
	dataDefKinds(inout)
	cardinalities[NodeInput] = inout
	cardinalities[NodeOutput] = inout

	notif := map[NodeType]Cardinality{
		NodeIfFeature: many(),
		NodeMust:      many(),
		NodeTypedef:   many(),
		NodeGrouping:  many(),
		NodeDataDef:   many(),
	}
	dataDefKinds(notif)
	metaCard(notif)
	cardinalities[NodeNotification] = notif

	deviation := map[NodeType]Cardinality{
		NodeDescription:         optional(),
		NodeReference:           optional(),
		NodeDeviateAdd:          many(),
		NodeDeviateDelete:       many(),
		NodeDeviateReplace:      many(),
		NodeDeviateNotSupported: many(),
	}
	cardinalities[NodeDeviation] = deviation

	feature := map[NodeType]Cardinality{
		NodeIfFeature: many(),
	}
	metaCard(feature)
	cardinalities[NodeFeature] = feature

	identity := map[NodeType]Cardinality{
		NodeIfFeature: many(),
		NodeBase:      many(),
	}
	metaCard(identity)
	cardinalities[NodeIdentity] = identity

	ext := map[NodeType]Cardinality{
		NodeArgument: optional(),
	}
	metaCard(ext)
	cardinalities[NodeExtension] = ext

	cardinalities[NodeArgument] = map[NodeType]Cardinality{
		NodeYinElement: optional(),
	}

	cardinalities[NodeWhen] = map[NodeType]Cardinality{
		NodeDescription: optional(),
		NodeReference:   optional(),
	}
	cardinalities[NodeMust] = map[NodeType]Cardinality{
		NodeErrorMessage: optional(),
		NodeErrorAppTag:  optional(),
		NodeDescription:  optional(),
		NodeReference:    optional(),
	}
}

// vendorExtensionTypes lists every configd:*/opd:* statement kind this
// parser knows about, used to make them legal (any cardinality) wherever
// they appear without hand-listing them into every table above - the
// retained grammar front-end accepts them broadly, the same way the
// teacher's compiler leaves vendor-extension placement to its own
// semantic pass rather than the parser's cardinality table.
func vendorExtensionTypes() []NodeType {
	var out []NodeType
	for t := NodeConfigdStart + 1; t < NodeConfigdStop; t++ {
		out = append(out, t)
	}
	for t := NodeOpdDef; t < NodeOpdDefEnd; t++ {
		out = append(out, t)
	}
	for t := NodeOpdExtensionStart + 1; t < NodeOpdExtensionEnd; t++ {
		out = append(out, t)
	}
	return out
}

// yangCardinality returns the built-in substatement table for parent,
// widened to accept any vendor extension statement anywhere.
func yangCardinality(parent NodeType) map[NodeType]Cardinality {
	out := make(map[NodeType]Cardinality, len(cardinalities[parent])+8)
	for k, v := range cardinalities[parent] {
		out[k] = v
	}
	for _, k := range vendorExtensionTypes() {
		if _, ok := out[k]; !ok {
			out[k] = many()
		}
	}
	return out
}
