// Package testutil builds a complete compiler pipeline over temporary
// stores for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thobo70/stcc1-sub000/ast"
	"github.com/thobo70/stcc1-sub000/core"
	"github.com/thobo70/stcc1-sub000/hmap"
	"github.com/thobo70/stcc1-sub000/lexer"
	"github.com/thobo70/stcc1-sub000/parser"
	"github.com/thobo70/stcc1-sub000/store"
	"github.com/thobo70/stcc1-sub000/strstore"
	"github.com/thobo70/stcc1-sub000/symbol"
	"github.com/thobo70/stcc1-sub000/tac"
	"github.com/thobo70/stcc1-sub000/tokens"
)

// Pipeline wires the stores, the node cache and the pipeline stages over a
// test temp directory. The stores are closed by t.Cleanup; the pool is left
// to the test.
type Pipeline struct {
	Strs    *strstore.Store
	Toks    *tokens.Log
	Syms    store.Store
	Asts    store.Store
	Pool    *hmap.Pool
	Metrics *core.Metrics
}

func NewPipeline(t *testing.T, capacity int) *Pipeline {
	t.Helper()
	dir := t.TempDir()

	strs, err := strstore.Create(filepath.Join(dir, "strings.db"))
	require.NoError(t, err)
	toks, err := tokens.OpenLog(filepath.Join(dir, "tokens.wal"))
	require.NoError(t, err)
	syms, err := store.Create(filepath.Join(dir, "sym.db"), symbol.RecordSize)
	require.NoError(t, err)
	asts, err := store.Create(filepath.Join(dir, "ast.db"), ast.RecordSize)
	require.NoError(t, err)

	metrics := &core.Metrics{}
	pool := hmap.NewPool(capacity, syms, asts)
	pool.Metrics = metrics

	t.Cleanup(func() {
		strs.Close()
		toks.Close()
		syms.Close()
		asts.Close()
	})
	return &Pipeline{
		Strs:    strs,
		Toks:    toks,
		Syms:    syms,
		Asts:    asts,
		Pool:    pool,
		Metrics: metrics,
	}
}

// Lex scans src into the token log.
func (pl *Pipeline) Lex(t *testing.T, src string) {
	t.Helper()
	lx := lexer.New(src, pl.Strs, pl.Toks)
	lx.Metrics = pl.Metrics
	require.NoError(t, lx.Run())
}

// Parse lexes and parses src, returning the translation-unit root index.
func (pl *Pipeline) Parse(t *testing.T, src string) uint32 {
	t.Helper()
	pl.Lex(t, src)
	ps := parser.New(pl.Toks, pl.Strs, pl.Pool)
	ps.Metrics = pl.Metrics
	root, err := ps.Parse()
	require.NoError(t, err)
	return root
}

// Compile runs the full front end over src and returns the generated code.
func (pl *Pipeline) Compile(t *testing.T, src string) []tac.Instr {
	t.Helper()
	root := pl.Parse(t, src)
	gen := tac.NewGen(pl.Pool, pl.Strs)
	gen.Metrics = pl.Metrics
	code, err := gen.Program(root)
	require.NoError(t, err)
	return code
}

// Run compiles src and executes it, returning the program result.
func (pl *Pipeline) Run(t *testing.T, src string) int32 {
	t.Helper()
	code := pl.Compile(t, src)
	emu, err := tac.NewEmulator(code)
	require.NoError(t, err)
	result, err := emu.Run()
	require.NoError(t, err)
	return result
}
