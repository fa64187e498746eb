// Command stcc runs the whole pipeline over one source file: lex into the
// token log, parse into the record stores through the node cache, translate
// to three-address code and execute it.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

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

func main() {
	var (
		workDir  string
		capacity int
		trace    bool
	)
	flag.StringVar(&workDir, "work", "", "directory for the intermediate stores (default: temp dir)")
	flag.IntVar(&capacity, "cache", 100, "node cache capacity in slots")
	flag.BoolVar(&trace, "trace", false, "log every executed instruction")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: stcc [flags] <source.c>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(log, flag.Arg(0), workDir, capacity, trace); err != nil {
		log.Fatal().Err(err).Msg("compilation failed")
	}
}

func run(log zerolog.Logger, srcPath, workDir string, capacity int, trace bool) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	if workDir == "" {
		if workDir, err = os.MkdirTemp("", "stcc"); err != nil {
			return err
		}
		defer os.RemoveAll(workDir)
	}
	log.Info().Str("src", srcPath).Str("work", workDir).Int("cache", capacity).
		Msg("compiling")

	strs, err := strstore.Create(filepath.Join(workDir, "strings.db"))
	if err != nil {
		return err
	}
	defer strs.Close()
	tokLog, err := tokens.OpenLog(filepath.Join(workDir, "tokens.wal"))
	if err != nil {
		return err
	}
	defer tokLog.Close()
	syms, err := store.Create(filepath.Join(workDir, "sym.db"), symbol.RecordSize)
	if err != nil {
		return err
	}
	defer syms.Close()
	asts, err := store.Create(filepath.Join(workDir, "ast.db"), ast.RecordSize)
	if err != nil {
		return err
	}
	defer asts.Close()

	metrics := &core.Metrics{}
	pool := hmap.NewPool(capacity, syms, asts)
	pool.Metrics = metrics

	lx := lexer.New(string(src), strs, tokLog)
	lx.Metrics = metrics
	if err := lx.Run(); err != nil {
		return err
	}
	log.Info().Uint32("tokens", tokLog.Count()).Msg("lexed")

	ps := parser.New(tokLog, strs, pool)
	ps.Metrics = metrics
	root, err := ps.Parse()
	if err != nil {
		return err
	}
	log.Info().Uint32("root", root).Uint32("nodes", asts.Count()).
		Uint32("symbols", syms.Count()).Msg("parsed")

	gen := tac.NewGen(pool, strs)
	gen.Metrics = metrics
	code, err := gen.Program(root)
	if err != nil {
		return err
	}
	log.Info().Int("instructions", len(code)).Msg("generated")

	if err := pool.Close(); err != nil {
		return err
	}

	emu, err := tac.NewEmulator(code)
	if err != nil {
		return err
	}
	if trace {
		emu.Trace = log.Level(zerolog.DebugLevel)
	}
	result, err := emu.Run()
	if err != nil {
		return err
	}
	log.Info().Int32("result", result).Msg("program finished")
	metrics.Report()
	return nil
}
