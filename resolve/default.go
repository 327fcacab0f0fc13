// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"fmt"
	"strconv"

	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/unres"
)

// defaultPayload carries the raw default string(s) pending validation
// against a resolved Type (spec §4.4's TypeDflt/TypedefDflt kinds; P6).
type defaultPayload struct {
	Values []string
	Type   *schema.Type
}

// NewLeafDefaultItem builds the TypeDflt Item for a leaf/leaf-list default.
func NewLeafDefaultItem(node schema.Node, module string, t *schema.Type, values []string, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.TypeDflt,
		Key:     key,
		Node:    node,
		Module:  module,
		Payload: &defaultPayload{Values: values, Type: t},
	}
}

// NewTypedefDefaultItem builds the TypedefDflt Item for a typedef's own
// default substatement.
func NewTypedefDefaultItem(td *schema.Typedef, module string, values []string, key interface{}) *unres.Item {
	return &unres.Item{
		Kind:    unres.TypedefDflt,
		Key:     key,
		Node:    td,
		Module:  module,
		Payload: &defaultPayload{Values: values, Type: td.Type},
	}
}

// DefaultResolver validates a pending default string against its type
// once the type itself is resolved (spec §4.5's final retry dependency:
// "a default depends on the type being resolved").
type DefaultResolver struct{}

func (DefaultResolver) Resolve(q *unres.Queue, it *unres.Item) (unres.Outcome, error) {
	p := it.Payload.(*defaultPayload)
	if p.Type.PendingName != "" {
		return unres.Retry, nil
	}
	for _, v := range p.Values {
		if err := ValidateAgainstType(p.Type, v); err != nil {
			return unres.Err, fmt.Errorf("default %q: %w", v, err)
		}
	}
	return unres.Ok, nil
}

// ValidateAgainstType does a structural (not XPath-evaluating) check that
// s is a legal lexical value for t, the way P6 requires ("a leaf's
// default value parses successfully against its resolved type"). Not
// every base is checked in full: a decimal64 value is checked for
// number syntax but not against a range, identityref and leafref only
// for their resolution state, and instance-identifier not at all.
func ValidateAgainstType(t *schema.Type, s string) error {
	switch t.Base {
	case schema.BaseBoolean:
		if s != "true" && s != "false" {
			return fmt.Errorf("not a valid boolean")
		}
	case schema.BaseEmpty:
		return fmt.Errorf("the empty type cannot have a default value")
	case schema.BaseInt8, schema.BaseInt16, schema.BaseInt32, schema.BaseInt64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		if t.Range != nil && !valueInRange(t.Range, n) {
			return fmt.Errorf("value %d out of range", n)
		}
	case schema.BaseUint8, schema.BaseUint16, schema.BaseUint32, schema.BaseUint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		if t.Range != nil && !valueInURange(t.Range, n) {
			return fmt.Errorf("value %d out of range", n)
		}
	case schema.BaseDecimal64:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return err
		}
	case schema.BaseString, schema.BaseBinary:
		if t.Length != nil && !lengthOk(t.Length, len(s)) {
			return fmt.Errorf("value length %d out of bounds", len(s))
		}
		for _, pat := range t.Patterns {
			m := pat.Re.MatchString(s)
			if pat.Inverted {
				m = !m
			}
			if !m {
				return fmt.Errorf("value does not match pattern %q", pat.Source)
			}
		}
	case schema.BaseEnumeration:
		found := false
		for _, e := range t.Enums {
			if e.Name == s {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("value %q is not a member of the enumeration", s)
		}
	case schema.BaseBits:
		// space-separated set; each must name a known bit.
		for _, name := range splitWS(s) {
			found := false
			for _, b := range t.Bits {
				if b.Name == name {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("bit %q is not a member of the bits type", name)
			}
		}
	case schema.BaseIdentityref:
		if len(t.Bases) == 0 {
			return fmt.Errorf("identityref has no resolved base")
		}
	case schema.BaseLeafref:
		if t.LeafrefTarget == nil {
			return fmt.Errorf("leafref target is not yet resolved")
		}
	case schema.BaseUnion:
		var lastErr error
		for _, m := range t.Members {
			if err := ValidateAgainstType(m, s); err == nil {
				return nil
			} else {
				lastErr = err
			}
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no union member matched")
		}
		return lastErr
	}
	return nil
}

func valueInRange(r *schema.Range, v int64) bool {
	if len(r.Parts) == 0 {
		return true
	}
	for _, p := range r.Parts {
		if v >= p.Min && v <= p.Max {
			return true
		}
	}
	return false
}

func valueInURange(r *schema.Range, v uint64) bool {
	if len(r.Parts) == 0 {
		return true
	}
	for _, p := range r.Parts {
		if v >= p.MinU && v <= p.MaxU {
			return true
		}
	}
	return false
}

func lengthOk(r *schema.Range, n int) bool {
	if len(r.Parts) == 0 {
		return true
	}
	for _, p := range r.Parts {
		if uint64(n) >= p.MinU && uint64(n) <= p.MaxU {
			return true
		}
	}
	return false
}

func splitWS(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
