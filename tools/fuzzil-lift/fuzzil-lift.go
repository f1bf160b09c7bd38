// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// fuzzil-lift lifts every serialized program in a directory to JavaScript,
// writing <name>.js next to each entry. Entries that fail to decode or lift
// are reported and skipped; partial failure is not an error for the tool.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/JJHPhoto/fuzzilli/pkg/batch"
	"github.com/JJHPhoto/fuzzilli/pkg/lifter"
	"github.com/JJHPhoto/fuzzilli/pkg/log"
	"github.com/JJHPhoto/fuzzilli/pkg/osutil"
)

func main() {
	var (
		flagInline = flag.Bool("inline", false, "inline pure single-use expressions")
		flagES     = flag.Int("es", int(lifter.ES2015), "target ECMAScript edition (2015, 2016, 2020)")
	)
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("usage: fuzzil-lift [flags] dir")
	}
	dir := flag.Args()[0]
	files, err := osutil.ListDir(dir)
	if err != nil {
		log.Fatalf("failed to read dir: %v", err)
	}
	var entries []batch.Entry
	for _, name := range files {
		if filepath.Ext(name) == ".js" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Fatalf("failed to read file %v: %v", name, err)
		}
		entries = append(entries, batch.Entry{Name: name, Data: data})
	}
	js, err := lifter.NewJS(lifter.Options{
		Inline:  *flagInline,
		Version: lifter.ESVersion(*flagES),
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	results, failed := batch.LiftEach(entries, js)
	for _, res := range results {
		if res.Err != nil {
			log.Logf(0, "skipping %v: %v", res.Name, res.Err)
			continue
		}
		if err := osutil.WriteFile(filepath.Join(dir, res.Name+".js"), res.Output); err != nil {
			log.Fatalf("failed to output file: %v", err)
		}
	}
	log.Logf(0, "converted %v programs, failed %v", len(results)-failed, failed)
}
