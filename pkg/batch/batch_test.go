// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package batch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JJHPhoto/fuzzilli/pkg/corpus"
	"github.com/JJHPhoto/fuzzilli/pkg/lifter"
	"github.com/JJHPhoto/fuzzilli/prog"
)

func intProg(t *testing.T, val int64) *prog.Prog {
	t.Helper()
	p, err := prog.NewProg([]prog.Instr{
		{Op: prog.OpLoadInt, Aux: uint64(val), Outputs: []prog.Var{0}},
	})
	require.NoError(t, err)
	return p
}

func TestLiftEachCountsFailures(t *testing.T) {
	var entries []Entry
	for i := int64(0); i < 5; i++ {
		entries = append(entries, Entry{
			Name: fmt.Sprintf("prog%v", i),
			Data: intProg(t, i).Serialize(),
		})
	}
	entries = append(entries,
		Entry{Name: "corrupt1", Data: []byte("junk")},
		Entry{Name: "corrupt2", Data: nil},
	)

	js, err := lifter.NewJS(lifter.Options{})
	require.NoError(t, err)
	results, failed := LiftEach(entries, js)
	// Every entry is attempted, failures are counted, the batch never aborts.
	require.Len(t, results, 7)
	assert.Equal(t, 2, failed)
	for i, res := range results {
		assert.Equal(t, entries[i].Name, res.Name)
		if i < 5 {
			assert.NoError(t, res.Err)
			assert.Equal(t, fmt.Sprintf("const v0 = %v;\n", i), string(res.Output))
		} else {
			assert.Error(t, res.Err)
			assert.Empty(t, res.Output)
		}
	}
}

func TestLiftEachCountsLifterFailures(t *testing.T) {
	p, err := prog.NewProg([]prog.Instr{
		{Op: prog.OpLoadBigInt, Aux: 1, Outputs: []prog.Var{0}},
	})
	require.NoError(t, err)
	js, err := lifter.NewJS(lifter.Options{Version: lifter.ES2015})
	require.NoError(t, err)
	results, failed := LiftEach([]Entry{{Name: "bigint", Data: p.Serialize()}}, js)
	require.Len(t, results, 1)
	assert.Equal(t, 1, failed)
	var unsupported *lifter.UnsupportedOperationError
	assert.ErrorAs(t, results[0].Err, &unsupported)
}

// Splitting a corpus into entries and combining them back reconstructs the
// same corpus, modulo entries that fail to decode.
func TestSplitCombine(t *testing.T) {
	src, err := corpus.New(corpus.Config{MaxSize: 10})
	require.NoError(t, err)
	for i := int64(0); i < 4; i++ {
		require.True(t, src.Insert(intProg(t, i), 0))
	}

	var entries []Entry
	for item := range src.ExportAll() {
		entries = append(entries, Entry{Name: item.Sig, Data: item.ProgData})
	}
	entries = append(entries, Entry{Name: "corrupt", Data: []byte("junk")})

	dst, err := corpus.New(corpus.Config{MaxSize: 10, MinMutations: 100})
	require.NoError(t, err)
	stats := Combine(entries, dst)
	assert.Equal(t, corpus.ImportStats{Added: 4, Failed: 1}, stats)

	require.Equal(t, src.Len(), dst.Len())
	srcItems, dstItems := src.Items(), dst.Items()
	for i := range srcItems {
		assert.Equal(t, srcItems[i].Sig, dstItems[i].Sig)
		assert.Equal(t, srcItems[i].ProgData, dstItems[i].ProgData)
	}
}
