package search

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/packed"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
)

// Flag tells how a stored score relates to the true value of a position.
type Flag uint8

const (
	TTExact Flag = iota + 1
	TTLower      // true value >= score
	TTUpper      // true value <= score
)

func (f Flag) String() string {
	switch f {
	case TTExact:
		return "exact"
	case TTLower:
		return "lower"
	case TTUpper:
		return "upper"
	}
	return "invalid"
}

type TableEntry[S score.Score[S]] struct {
	Score S
	Flag  Flag
}

// Estimated bytes per map entry: the key, the entry and map overhead.
const entrySize = packed.MaxKeyWords*8 + 32

const numShards = 64

type TableLock interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type FakeLock struct{}

func (f FakeLock) Lock()    {}
func (f FakeLock) Unlock()  {}
func (f FakeLock) RLock()   {}
func (f FakeLock) RUnlock() {}

type shard[S score.Score[S]] struct {
	TableLock
	table map[packed.Key]TableEntry[S]
}

// TranspositionTable maps encoded boards to search results. It is split in
// shards chosen by hashing the key, each behind its own lock. Entries are
// only ever added: an existing entry is never overwritten, and once the
// table is full new entries are dropped.
type TranspositionTable[S score.Score[S]] struct {
	shards      [numShards]shard[S]
	maxPerShard int
	full        atomic.Bool

	created atomic.Uint64
	lookups atomic.Uint64
	hits    atomic.Uint64
}

func NewTranspositionTable[S score.Score[S]]() *TranspositionTable[S] {
	t := &TranspositionTable[S]{}
	for i := range t.shards {
		t.shards[i].TableLock = FakeLock{}
		t.shards[i].table = make(map[packed.Key]TableEntry[S])
	}
	return t
}

func (t *TranspositionTable[S]) SetSingleThreadedMode() {
	for i := range t.shards {
		t.shards[i].TableLock = FakeLock{}
	}
}

func (t *TranspositionTable[S]) SetMultiThreadedMode() {
	for i := range t.shards {
		t.shards[i].TableLock = new(sync.RWMutex)
	}
}

func (t *TranspositionTable[S]) shardFor(k packed.Key) *shard[S] {
	var buf [packed.MaxKeyWords * 8]byte
	for i, w := range k {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	return &t.shards[xxhash.Sum64(buf[:])%numShards]
}

func (t *TranspositionTable[S]) Lookup(k packed.Key) (TableEntry[S], bool) {
	s := t.shardFor(k)
	s.RLock()
	defer s.RUnlock()
	t.lookups.Add(1)
	e, ok := s.table[k]
	if ok {
		t.hits.Add(1)
	}
	return e, ok
}

// Insert stores e under k unless k is already present or the table is full.
// It reports whether e was stored.
func (t *TranspositionTable[S]) Insert(k packed.Key, e TableEntry[S]) bool {
	s := t.shardFor(k)
	s.Lock()
	defer s.Unlock()
	if _, ok := s.table[k]; ok {
		return false
	}
	if t.maxPerShard > 0 && len(s.table) >= t.maxPerShard {
		if t.full.CompareAndSwap(false, true) {
			log.Warn().Int("entries-per-shard", t.maxPerShard).Msg("transposition-table-full")
		}
		return false
	}
	s.table[k] = e
	t.created.Add(1)
	return true
}

// Reset empties the table and caps it at roughly fractionOfMemory of the
// system memory. A fraction <= 0 leaves it uncapped.
func (t *TranspositionTable[S]) Reset(fractionOfMemory float64) {
	totalMem := memory.TotalMemory()
	t.maxPerShard = 0
	if fractionOfMemory > 0 && totalMem > 0 {
		maxEntries := fractionOfMemory * float64(totalMem) / entrySize
		t.maxPerShard = max(1, int(maxEntries/numShards))
	}
	for i := range t.shards {
		s := &t.shards[i]
		s.Lock()
		clear(s.table)
		s.Unlock()
	}
	t.full.Store(false)
	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)

	log.Debug().Int("max-entries", t.maxPerShard*numShards).
		Uint64("total-system-memory-bytes", totalMem).
		Float64("fraction", fractionOfMemory).
		Msg("transposition-table-reset")
}

// TTStats are the table counters since the last Reset.
type TTStats struct {
	Created uint64 `yaml:"created"`
	Lookups uint64 `yaml:"lookups"`
	Hits    uint64 `yaml:"hits"`
}

func (t *TranspositionTable[S]) Stats() TTStats {
	return TTStats{
		Created: t.created.Load(),
		Lookups: t.lookups.Load(),
		Hits:    t.hits.Load(),
	}
}

// Len counts the stored entries.
func (t *TranspositionTable[S]) Len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.RLock()
		n += len(s.table)
		s.RUnlock()
	}
	return n
}
