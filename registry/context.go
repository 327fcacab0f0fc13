// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

// Package registry implements the Context (C2): the registry of loaded
// modules, search paths, and the module-set version counter, modeled on
// the teacher's Compiler (compile/compile.go) but reshaped around an
// explicit load/implement/disable/remove lifecycle instead of the
// teacher's single-shot ExpandModules/BuildModules pass, per spec §4.2
// and §4.11.
package registry

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/yangforge/schema-compiler/internal/dict"
	"github.com/yangforge/schema-compiler/schema"
	"github.com/yangforge/schema-compiler/xpath"
)

// LoggingPolicy is spec §6.4's {log, store_first, store_last, silent}.
type LoggingPolicy int

const (
	LogForward LoggingPolicy = iota
	LogStoreFirst
	LogStoreLast
	LogSilent
)

// Importer is the module-import callback a Context invokes when a module
// is not already registered and no search-path file matches (spec §4.2's
// "import-resolution callback").
type Importer func(name string, revision string) (source []byte, format string, ok bool)

// Context is spec §4.2's Context entity.
type Context struct {
	mu sync.Mutex

	Dict *dict.Dictionary

	modules    []*schema.Module // internal modules first, preserved across Clean
	internalN  int
	searchPath []string
	importer   Importer
	setVersion uint64

	// Trusted is stored but not read by any component: setting it
	// suppresses no Validator check and no XPath dependency tagging.
	Trusted bool
	// AllImplemented auto-implements every import (spec §4.2).
	AllImplemented bool
	// SkipUnknownExtensions lets an unres.Ext item resolve successfully
	// (with ExtensionInstance.Def left nil) when its declaring module
	// never declares a matching extension statement, instead of
	// surfacing a Reference error - for vendor extension namespaces
	// (e.g. the retained grammar's opd:/configd: statement families)
	// a caller does not necessarily have the defining module loaded for.
	SkipUnknownExtensions bool

	LoggingPolicy LoggingPolicy
	firstErr      error
	lastErr       error

	XPathEngine xpath.Engine

	Log *log.Entry

	inProgress map[string]bool // cycle guard over imports, spec §4.11 step 1
}

// New returns an empty Context with a fresh Dictionary and a no-op XPath
// engine installed (callers wire a real xpath.Engine via SetXPathEngine).
func New() *Context {
	return &Context{
		Dict:        dict.New(),
		importer:    nil,
		XPathEngine: xpath.NoopEngine{},
		Log:         log.NewEntry(log.StandardLogger()),
		inProgress:  make(map[string]bool),
	}
}

// SetImporter installs the module-import callback.
func (c *Context) SetImporter(imp Importer) { c.importer = imp }

// SetXPathEngine installs the external XPath collaborator (spec §1).
func (c *Context) SetXPathEngine(e xpath.Engine) {
	if e == nil {
		e = xpath.NoopEngine{}
	}
	c.XPathEngine = e
}

// AddSearchPath registers a directory to scan for "<name>[@<date>].yang"
// or ".yin" files (spec §6.3).
func (c *Context) AddSearchPath(dir string) {
	c.searchPath = append(c.searchPath, dir)
}

// SearchPaths returns the configured search directories.
func (c *Context) SearchPaths() []string { return c.searchPath }

// SetVersionID reports the current module-set version counter (P9: bumped
// on every successful implement/disable/remove).
func (c *Context) SetVersionID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setVersion
}

func (c *Context) bumpSetVersion() {
	c.setVersion++
}

// bootstrapInternal registers m as one of the "internal modules" whose
// count is preserved across Clean (spec §4.2).
func (c *Context) bootstrapInternal(m *schema.Module) {
	c.modules = append(c.modules, m)
	c.internalN++
}

// Register adds a freshly loaded module to the registry (spec §4.11 step
// 6) and bumps the set version.
func (c *Context) Register(m *schema.Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules = append(c.modules, m)
	c.bumpSetVersion()
}

// FindModule is spec §4.2's find_module.
func (c *Context) FindModule(name, revision string, includeDisabled bool) *schema.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	var best *schema.Module
	for _, m := range c.modules {
		if m.Name.String() != name {
			continue
		}
		if m.Disabled && !includeDisabled {
			continue
		}
		if revision != "" {
			if m.FirstRevision() == revision {
				return m
			}
			continue
		}
		if best == nil || newerRevision(m.FirstRevision(), best.FirstRevision()) {
			best = m
		}
	}
	return best
}

func newerRevision(a, b string) bool {
	// YYYY-MM-DD sorts lexicographically, per spec §6.3.
	return a > b
}

// ModuleIter returns every enabled module, for the "module_iter"
// operation of spec §4.2.
func (c *Context) ModuleIter() []*schema.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*schema.Module, 0, len(c.modules))
	for _, m := range c.modules {
		if !m.Disabled {
			out = append(out, m)
		}
	}
	return out
}

// DisabledIter returns every disabled module.
func (c *Context) DisabledIter() []*schema.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*schema.Module
	for _, m := range c.modules {
		if m.Disabled {
			out = append(out, m)
		}
	}
	return out
}

// ImporterFunc returns the configured import callback, or nil.
func (c *Context) ImporterFunc() Importer { return c.importer }

// BeginImport/EndImport implement the cycle guard over imports (spec
// §4.11 step 1).
func (c *Context) BeginImport(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inProgress[name] {
		return fmt.Errorf("import cycle detected at module %q", name)
	}
	c.inProgress[name] = true
	return nil
}

func (c *Context) EndImport(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inProgress, name)
}

// Clean removes every non-internal module (spec §4.2).
func (c *Context) Clean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalN > len(c.modules) {
		c.internalN = len(c.modules)
	}
	c.modules = c.modules[:c.internalN]
	c.bumpSetVersion()
}

// removeLocked removes m from the registry. Callers (lifecycle.Remove)
// must already have validated that no implemented module depends on it.
func (c *Context) removeLocked(m *schema.Module) {
	for i, cur := range c.modules {
		if cur == m {
			c.modules = append(c.modules[:i], c.modules[i+1:]...)
			return
		}
	}
}

// Remove deletes m from the registry and bumps the set version (the
// dependent-module transitive removal described in spec §4.2/§4.11 is
// lifecycle's responsibility; Context only performs the single-module
// bookkeeping).
func (c *Context) Remove(m *schema.Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(m)
	c.bumpSetVersion()
}

// NoteImplementChange bumps the set version after an implement/disable
// transition (P9), called by lifecycle.
func (c *Context) NoteImplementChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bumpSetVersion()
}

// RecordError applies the configured LoggingPolicy to err (spec §6.4).
func (c *Context) RecordError(err error) {
	if err == nil {
		return
	}
	switch c.LoggingPolicy {
	case LogSilent:
		return
	case LogStoreFirst:
		if c.firstErr == nil {
			c.firstErr = err
		}
	case LogStoreLast:
		c.lastErr = err
	default:
		c.Log.Error(err)
	}
}

// FirstError / LastError expose the per-context "first error"/"last
// error" accessors of spec §6.4.
func (c *Context) FirstError() error { return c.firstErr }
func (c *Context) LastError() error  { return c.lastErr }

// ClearErrors resets the stored first/last error, called at the start of
// a new load/implement/disable/remove operation.
func (c *Context) ClearErrors() {
	c.firstErr = nil
	c.lastErr = nil
}

// SortModulesByRevision sorts a slice of same-named modules newest-first,
// the P2 invariant, using the teacher's lexicographic YYYY-MM-DD compare
// (spec §6.3).
func SortModulesByRevision(ms []*schema.Module) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].FirstRevision() > ms[j].FirstRevision()
	})
}
