// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package batch applies corpus-wide operations entry by entry. A failure of
// one entry never aborts the batch, it is recorded and the fold continues.
package batch

import (
	"github.com/JJHPhoto/fuzzilli/pkg/corpus"
	"github.com/JJHPhoto/fuzzilli/pkg/lifter"
	"github.com/JJHPhoto/fuzzilli/prog"
)

// Entry is a named serialized program. Callers own the naming scheme
// (file names, database keys, etc).
type Entry struct {
	Name string
	Data []byte
}

// Result is the outcome of lifting one entry. Exactly one of Output and Err
// is meaningful.
type Result struct {
	Name   string
	Output []byte
	Err    error
}

// LiftEach decodes and lifts every entry with lf. It returns one result per
// entry, in input order, and the number of failed entries.
func LiftEach(entries []Entry, lf lifter.Lifter) ([]Result, int) {
	results := make([]Result, 0, len(entries))
	failed := 0
	for _, e := range entries {
		res := Result{Name: e.Name}
		p, err := prog.Deserialize(e.Data)
		if err == nil {
			res.Output, err = lf.Lift(p)
		}
		if err != nil {
			res.Err = err
			failed++
		}
		results = append(results, res)
	}
	return results, failed
}

// Combine decodes every entry and admits it into corp. Entries bypass the
// mutation gate like any other imported state; undecodable entries are
// counted in the returned stats.
func Combine(entries []Entry, corp *corpus.Corpus) corpus.ImportStats {
	data := make([][]byte, len(entries))
	for i, e := range entries {
		data[i] = e.Data
	}
	return corp.ImportState(data)
}
