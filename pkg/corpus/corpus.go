// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package corpus maintains a size-bounded, content-deduplicated collection
// of IL programs used as the seed/result pool of an external fuzzing engine.
package corpus

import (
	"fmt"
	"iter"
	"sync"

	"github.com/JJHPhoto/fuzzilli/pkg/hash"
	"github.com/JJHPhoto/fuzzilli/pkg/stat"
	"github.com/JJHPhoto/fuzzilli/prog"
)

type Config struct {
	// MinSize is the bootstrap threshold: while the corpus holds fewer
	// programs, the mutation gate does not apply.
	MinSize int
	// MaxSize is the hard size bound. When an admission would exceed it,
	// the oldest program (in insertion order) is evicted.
	MaxSize int
	// MinMutations is the minimum mutation count a program must carry to be
	// admitted once the corpus reached MinSize. Imported state is exempt.
	MinMutations int
}

func (cfg Config) check() error {
	if cfg.MaxSize < 1 {
		return fmt.Errorf("corpus: MaxSize %v, must be positive", cfg.MaxSize)
	}
	if cfg.MinSize < 0 || cfg.MinSize > cfg.MaxSize {
		return fmt.Errorf("corpus: MinSize %v out of range [0, %v]", cfg.MinSize, cfg.MaxSize)
	}
	if cfg.MinMutations < 0 {
		return fmt.Errorf("corpus: MinMutations %v, must be non-negative", cfg.MinMutations)
	}
	return nil
}

// Item objects are to be treated as immutable, the corpus never mutates a
// program it holds.
type Item struct {
	Sig       string
	Prog      *prog.Prog
	ProgData  []byte // serialized form, to save some Serialize() calls
	Mutations int
}

// Corpus is not safe for concurrent writers; callers needing concurrent
// admission must serialize access externally (single-writer discipline).
// Readers may run concurrently with each other.
type Corpus struct {
	cfg   Config
	mu    sync.RWMutex
	progs map[string]*Item
	order []*Item // insertion order, drives export and eviction

	StatProgs   *stat.Val
	StatDropped *stat.Val
	StatEvicted *stat.Val
}

func New(cfg Config) (*Corpus, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	corpus := &Corpus{
		cfg:   cfg,
		progs: make(map[string]*Item),
	}
	corpus.StatProgs = stat.New("corpus", "Number of programs in the corpus",
		stat.Console, stat.Prometheus("fuzzilli_corpus"),
		stat.LenOf(&corpus.order, &corpus.mu))
	corpus.StatDropped = stat.New("corpus dropped", "Programs rejected by the mutation gate",
		stat.Prometheus("fuzzilli_corpus_dropped"))
	corpus.StatEvicted = stat.New("corpus evicted", "Programs evicted by the size bound",
		stat.Prometheus("fuzzilli_corpus_evicted"))
	return corpus, nil
}

// Insert admits p if it carries enough mutations or the corpus is still in
// its bootstrap phase. The return value is a signal, not an error: false
// means the program was discarded (gate) or already present (dedup).
func (corpus *Corpus) Insert(p *prog.Prog, mutations int) bool {
	data := p.Serialize()
	sig := hash.String(data)

	corpus.mu.Lock()
	defer corpus.mu.Unlock()

	if _, ok := corpus.progs[sig]; ok {
		return false
	}
	if len(corpus.order) >= corpus.cfg.MinSize && mutations < corpus.cfg.MinMutations {
		corpus.StatDropped.Add(1)
		return false
	}
	corpus.admit(&Item{
		Sig:       sig,
		Prog:      p,
		ProgData:  data,
		Mutations: mutations,
	})
	return true
}

// ImportStats is the outcome of an ImportState call. A decode failure of a
// single entry is local and recoverable: it is counted and the entry skipped.
type ImportStats struct {
	Added  int
	Dupes  int
	Failed int
}

// ImportState decodes and admits every entry of a saved corpus state.
// Imported programs count as seeds and bypass the mutation gate.
func (corpus *Corpus) ImportState(entries [][]byte) ImportStats {
	var stats ImportStats
	for _, data := range entries {
		p, err := prog.Deserialize(data)
		if err != nil {
			stats.Failed++
			continue
		}
		canonical := p.Serialize()
		sig := hash.String(canonical)
		corpus.mu.Lock()
		if _, ok := corpus.progs[sig]; ok {
			stats.Dupes++
		} else {
			corpus.admit(&Item{
				Sig:      sig,
				Prog:     p,
				ProgData: canonical,
			})
			stats.Added++
		}
		corpus.mu.Unlock()
	}
	return stats
}

// admit adds item, evicting the oldest program first if the corpus is full.
// Callers must hold the write lock.
func (corpus *Corpus) admit(item *Item) {
	if len(corpus.order) >= corpus.cfg.MaxSize {
		oldest := corpus.order[0]
		corpus.order = corpus.order[1:]
		delete(corpus.progs, oldest.Sig)
		corpus.StatEvicted.Add(1)
	}
	corpus.progs[item.Sig] = item
	corpus.order = append(corpus.order, item)
	if len(corpus.order) > corpus.cfg.MaxSize {
		// Must be unreachable: the eviction above restores the bound.
		panic(fmt.Sprintf("corpus size %v exceeds bound %v", len(corpus.order), corpus.cfg.MaxSize))
	}
}

// ExportAll enumerates the retained programs in insertion order.
// The sequence is restartable and observes a snapshot of the corpus taken at
// the first iteration step.
func (corpus *Corpus) ExportAll() iter.Seq[*Item] {
	return func(yield func(*Item) bool) {
		for _, item := range corpus.Items() {
			if !yield(item) {
				return
			}
		}
	}
}

func (corpus *Corpus) Items() []*Item {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return append([]*Item{}, corpus.order...)
}

func (corpus *Corpus) Item(sig string) *Item {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return corpus.progs[sig]
}

func (corpus *Corpus) Len() int {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return len(corpus.order)
}
