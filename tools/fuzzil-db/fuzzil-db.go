// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// fuzzil-db packs a directory of serialized programs into a corpus database
// and unpacks a database back into a directory of per-program files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JJHPhoto/fuzzilli/pkg/db"
	"github.com/JJHPhoto/fuzzilli/pkg/hash"
	"github.com/JJHPhoto/fuzzilli/pkg/log"
	"github.com/JJHPhoto/fuzzilli/pkg/osutil"
	"github.com/JJHPhoto/fuzzilli/prog"
)

func main() {
	var (
		flagVersion = flag.Uint64("version", 0, "database version to write (pack)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage:\n"+
			"  fuzzil-db pack dir corpus.db\n"+
			"  fuzzil-db unpack corpus.db dir\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	flag.Parse()
	args := flag.Args()
	if len(args) != 3 {
		flag.Usage()
	}
	switch args[0] {
	case "pack":
		pack(args[1], args[2], *flagVersion)
	case "unpack":
		unpack(args[1], args[2])
	default:
		flag.Usage()
	}
}

func pack(dir, file string, version uint64) {
	files, err := osutil.ListDir(dir)
	if err != nil {
		log.Fatalf("failed to read dir: %v", err)
	}
	var records []db.Record
	failed := 0
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Fatalf("failed to read file %v: %v", name, err)
		}
		if _, err := prog.Deserialize(data); err != nil {
			log.Logf(0, "skipping %v: %v", name, err)
			failed++
			continue
		}
		records = append(records, db.Record{Val: data})
	}
	if err := db.Create(file, version, records); err != nil {
		log.Fatalf("%v", err)
	}
	log.Logf(0, "packed %v programs, skipped %v", len(records), failed)
}

func unpack(file, dir string) {
	db, err := db.Open(file)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := osutil.MkdirAll(dir); err != nil {
		log.Fatalf("failed to create dir: %v", err)
	}
	failed := 0
	for key, rec := range db.Records {
		if _, err := prog.Deserialize(rec.Val); err != nil {
			log.Logf(0, "skipping %v: %v", key, err)
			failed++
			continue
		}
		if key == "" {
			key = hash.String(rec.Val)
		}
		if err := osutil.WriteFile(filepath.Join(dir, key), rec.Val); err != nil {
			log.Fatalf("failed to output file: %v", err)
		}
	}
	log.Logf(0, "unpacked %v programs, skipped %v", len(db.Records)-failed, failed)
}
