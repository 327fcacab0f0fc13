// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package diag implements the diagnostic-record taxonomy from spec §6.4/§7,
// grounded on the teacher's use of github.com/danos/mgmterror
// (schema/errors.go builds one small wrapper constructor per error shape;
// this package follows the same pattern, widened to the full error-kind
// table in spec §7) and github.com/danos/utils/pathutil for path
// rendering.
package diag

import (
	"fmt"

	"github.com/danos/mgmterror"
	"github.com/danos/utils/pathutil"
)

// Kind enumerates the error taxonomy of spec §7.
type Kind int

const (
	Syntax Kind = iota
	Cardinality
	Reference
	Semantic
	Version
	DeviationConflict
	System
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case Cardinality:
		return "cardinality"
	case Reference:
		return "reference"
	case Semantic:
		return "semantic"
	case Version:
		return "version"
	case DeviationConflict:
		return "deviation-conflict"
	case System:
		return "system"
	default:
		return "unknown"
	}
}

// Record is a single diagnostic, matching the {code, vecode, message, path,
// module, line?} shape of spec §6.4.
type Record struct {
	Kind    Kind
	Code    string
	VeCode  string
	Message string
	Path    string
	Module  string
	Line    int // 0 if unknown
	cause   error
}

func (r *Record) Error() string {
	if r.Module != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", r.Module, r.Kind, r.Message, r.Path)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Kind, r.Message, r.Path)
}

func (r *Record) Unwrap() error { return r.cause }

// AsMgmtError renders r as the mgmterror the teacher's callers expect to
// see out of schema/compile operations.
func (r *Record) AsMgmtError() error {
	switch r.Kind {
	case Cardinality:
		e := mgmterror.NewOperationFailedApplicationError()
		e.Path = r.Path
		e.Message = r.Message
		return e
	case Reference:
		e := mgmterror.NewUnknownElementApplicationError(r.Path)
		e.Message = r.Message
		return e
	case Semantic, Version, DeviationConflict:
		e := mgmterror.NewInvalidValueApplicationError()
		e.Path = r.Path
		e.Message = r.Message
		return e
	case System:
		e := mgmterror.NewOperationFailedApplicationError()
		e.Message = r.Message
		return e
	default: // Syntax
		e := mgmterror.NewMalformedMessageError()
		e.Message = r.Message
		return e
	}
}

func rec(kind Kind, module string, path []string, format string, args ...interface{}) *Record {
	return &Record{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Path:    pathutil.Pathstr(path),
		Module:  module,
	}
}

// New builds a Record of the given kind with a formatted message, anchored
// at a module and (possibly empty) schema path, per spec §7's propagation
// policy: "every ingest helper ... logs one record with best-available
// location".
func New(kind Kind, module string, path []string, format string, args ...interface{}) *Record {
	return rec(kind, module, path, format, args...)
}

// TooMany builds the Cardinality error for a repeated single-valued
// substatement (spec §4.4 step 1).
func TooMany(module string, path []string, keyword string) *Record {
	return rec(Cardinality, module, path, "statement %q occurs more than once", keyword)
}

// Unresolved builds the Reference error surfaced when the unres engine's
// fixed-point loop ends with outstanding items (spec §4.6).
func Unresolved(module string, path []string, what string) *Record {
	return rec(Reference, module, path, "unresolved reference: %s", what)
}

// List aggregates diagnostics produced during one operation (e.g. one load,
// one unres sweep). It implements error so a List can be returned wherever
// a single error is expected; callers that want the individual records use
// Records().
type List struct {
	records []*Record
}

func (l *List) Add(r *Record) {
	if r != nil {
		l.records = append(l.records, r)
	}
}

func (l *List) Empty() bool { return len(l.records) == 0 }

func (l *List) Records() []*Record { return l.records }

// AddAll appends every record from other, e.g. merging one unres.Queue
// sweep's diagnostics into a load's running list.
func (l *List) AddAll(other *List) {
	if other == nil {
		return
	}
	l.records = append(l.records, other.records...)
}

func (l *List) Error() string {
	if len(l.records) == 0 {
		return ""
	}
	if len(l.records) == 1 {
		return l.records[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", l.records[0].Error(), len(l.records)-1)
}
