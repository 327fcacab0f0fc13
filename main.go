package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/yangforge/schema-compiler/lifecycle"
	"github.com/yangforge/schema-compiler/registry"
)

// main loads every YANG module named on the command line into one
// Context, implementing each as it loads, and prints every diagnostic the
// load produced. It is a smoke-test entry point, not a production schema
// server front end: a real caller drives registry/lifecycle directly.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: schema-compiler <file.yang> [file.yang ...]")
		os.Exit(2)
	}

	ctx := registry.New()
	ctx.AllImplemented = true
	ctx.LoggingPolicy = registry.LogForward
	mgr := lifecycle.NewManager(ctx)

	failed := false
	for _, path := range os.Args[1:] {
		src, err := os.ReadFile(path)
		if err != nil {
			log.Errorf("%s: %v", path, err)
			failed = true
			continue
		}
		m, diags, err := mgr.Load(src, "yang", filepath.Base(path))
		if err != nil {
			log.Errorf("%s: %v", path, err)
			if diags != nil {
				for _, r := range diags.Records() {
					log.Error(r.Error())
				}
			}
			failed = true
			continue
		}
		for _, r := range diags.Records() {
			log.Warn(r.Error())
			failed = true
		}
		log.Infof("loaded %s (revision %s)", m.Name, m.FirstRevision())
	}

	if failed {
		os.Exit(1)
	}
}
