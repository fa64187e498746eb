package core

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Metrics counts pool and pipeline activity. One instance is plumbed by
// pointer through the pool and the pipeline stages; a nil pointer disables
// collection at the increment site.
type Metrics struct {
	PoolHit    int64
	PoolMiss   int64
	PoolEvict  int64
	PoolFlush  int64
	PoolReload int64
	PoolNew    int64
	PoolDelete int64

	TokensLexed  int64
	NodesBuilt   int64
	SymbolsBound int64
	TacEmitted   int64
}

func (m *Metrics) Report() {
	fmt.Printf("Pool:\n hits: %s, misses: %s, evictions: %s\n flushes: %s, reloads: %s, new: %s, deletes: %s\n",
		humanize.Comma(m.PoolHit),
		humanize.Comma(m.PoolMiss),
		humanize.Comma(m.PoolEvict),
		humanize.Comma(m.PoolFlush),
		humanize.Comma(m.PoolReload),
		humanize.Comma(m.PoolNew),
		humanize.Comma(m.PoolDelete))
	fmt.Printf("Pipeline:\n tokens: %s, nodes: %s, symbols: %s, tac ops: %s\n",
		humanize.Comma(m.TokensLexed),
		humanize.Comma(m.NodesBuilt),
		humanize.Comma(m.SymbolsBound),
		humanize.Comma(m.TacEmitted))
}
