package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thobo70/stcc1-sub000/ast"
	"github.com/thobo70/stcc1-sub000/hmap"
	"github.com/thobo70/stcc1-sub000/parser"
	"github.com/thobo70/stcc1-sub000/symbol"
	"github.com/thobo70/stcc1-sub000/testutil"
)

func node(t *testing.T, pl *testutil.Pipeline, idx uint32) ast.Record {
	t.Helper()
	require.NotZero(t, idx)
	s, err := pl.Pool.Get(idx, hmap.KindAST)
	require.NoError(t, err)
	return *s.AST()
}

func sym(t *testing.T, pl *testutil.Pipeline, idx uint32) symbol.Record {
	t.Helper()
	require.NotZero(t, idx)
	s, err := pl.Pool.Get(idx, hmap.KindSym)
	require.NoError(t, err)
	return *s.Sym()
}

func TestParser_TranslationUnit(t *testing.T) {
	pl := testutil.NewPipeline(t, 100)
	root := pl.Parse(t, `
		int x = 1;
		int add(int a, int b) { return a + b; }
	`)

	unit1 := node(t, pl, root)
	require.Equal(t, ast.NodeUnit, unit1.Type)
	decl := node(t, pl, unit1.Left)
	require.Equal(t, ast.NodeVarDecl, decl.Type)
	require.Equal(t, ast.NodeConst, node(t, pl, decl.Left).Type)

	xSym := sym(t, pl, decl.Value)
	require.Equal(t, symbol.SymVariable, xSym.Kind)
	require.Equal(t, uint16(0), xSym.Depth)
	name, err := pl.Strs.Get(xSym.Name)
	require.NoError(t, err)
	require.Equal(t, "x", name)

	unit2 := node(t, pl, unit1.Right)
	require.Equal(t, ast.NodeUnit, unit2.Type)
	require.Zero(t, unit2.Right, "no third declaration")
	fn := node(t, pl, unit2.Left)
	require.Equal(t, ast.NodeFunc, fn.Type)
	require.Equal(t, symbol.SymFunction, sym(t, pl, fn.Value).Kind)

	// parameter list: arg glue around one declaration per parameter
	p1 := node(t, pl, fn.Right)
	require.Equal(t, ast.NodeArg, p1.Type)
	require.Equal(t, ast.NodeVarDecl, node(t, pl, p1.Left).Type)
	require.Equal(t, symbol.SymParam, sym(t, pl, node(t, pl, p1.Left).Value).Kind)
	p2 := node(t, pl, p1.Right)
	require.Equal(t, ast.NodeArg, p2.Type)
	require.Zero(t, p2.Right)

	// body: block glue around the return statement
	body := node(t, pl, fn.Left)
	require.Equal(t, ast.NodeBlock, body.Type)
	ret := node(t, pl, body.Left)
	require.Equal(t, ast.NodeReturn, ret.Type)
	require.Equal(t, ast.NodeAdd, node(t, pl, ret.Left).Type)
}

func TestParser_Precedence(t *testing.T) {
	pl := testutil.NewPipeline(t, 100)
	root := pl.Parse(t, `int main(void) { return 1 + 2 * 3; }`)

	fn := node(t, pl, node(t, pl, root).Left)
	ret := node(t, pl, node(t, pl, fn.Left).Left)
	add := node(t, pl, ret.Left)
	require.Equal(t, ast.NodeAdd, add.Type)
	require.Equal(t, ast.NodeConst, node(t, pl, add.Left).Type)
	require.Equal(t, uint32(1), node(t, pl, add.Left).Value)
	mul := node(t, pl, add.Right)
	require.Equal(t, ast.NodeMul, mul.Type)
	require.Equal(t, uint32(2), node(t, pl, mul.Left).Value)
	require.Equal(t, uint32(3), node(t, pl, mul.Right).Value)
}

func TestParser_Shadowing(t *testing.T) {
	pl := testutil.NewPipeline(t, 100)
	root := pl.Parse(t, `
		int main(void) {
			int x = 1;
			{
				int x = 2;
			}
			return x;
		}
	`)

	fn := node(t, pl, node(t, pl, root).Left)
	blk := node(t, pl, fn.Left)
	declStmt := node(t, pl, blk.Left)
	outer := declStmt.Value

	// walk the block glue to the return statement
	blk2 := node(t, pl, blk.Right)
	blk3 := node(t, pl, blk2.Right)
	ret := node(t, pl, blk3.Left)
	require.Equal(t, ast.NodeReturn, ret.Type)
	ident := node(t, pl, ret.Left)
	require.Equal(t, ast.NodeIdent, ident.Type)
	require.Equal(t, outer, ident.Value, "x must resolve to the outer declaration")

	innerDecl := node(t, pl, node(t, pl, blk2.Left).Left)
	require.Equal(t, ast.NodeVarDecl, innerDecl.Type)
	require.Greater(t, sym(t, pl, innerDecl.Value).Depth, sym(t, pl, outer).Depth)
}

func TestParser_ForShape(t *testing.T) {
	pl := testutil.NewPipeline(t, 100)
	root := pl.Parse(t, `int main(void) { for (int i = 0; i < 3; i = i + 1) { } return 0; }`)

	fn := node(t, pl, node(t, pl, root).Left)
	forStmt := node(t, pl, node(t, pl, fn.Left).Left)
	require.Equal(t, ast.NodeFor, forStmt.Type)
	ctl := node(t, pl, forStmt.Left)
	require.Equal(t, ast.NodeForCtl, ctl.Type)
	require.Equal(t, ast.NodeVarDecl, node(t, pl, ctl.Left).Type)
	require.Equal(t, ast.NodeLt, node(t, pl, ctl.Right).Type)
	fb := node(t, pl, forStmt.Right)
	require.Equal(t, ast.NodeForBody, fb.Type)
	require.Equal(t, ast.NodeAssign, node(t, pl, fb.Left).Type)
	require.Equal(t, ast.NodeBlock, node(t, pl, fb.Right).Type)
}

func TestParser_TinyCacheSameTree(t *testing.T) {
	// a 2-slot cache forces constant eviction and reload; the stored tree
	// must come out identical to one built with a roomy cache
	src := `
		int g = 40;
		int fib(int n) {
			if (n < 2) { return n; }
			return fib(n - 1) + fib(n - 2);
		}
		int main(void) {
			int i;
			for (i = 0; i < 3; i = i + 1) { g = g + i; }
			return fib(g);
		}
	`
	big := testutil.NewPipeline(t, 100)
	big.Parse(t, src)
	require.NoError(t, big.Pool.Close())

	small := testutil.NewPipeline(t, 2)
	small.Parse(t, src)
	require.NoError(t, small.Pool.Close())

	require.Equal(t, big.Asts.Count(), small.Asts.Count())
	rec1 := make([]byte, ast.RecordSize)
	rec2 := make([]byte, ast.RecordSize)
	for i := uint32(1); i <= big.Asts.Count(); i++ {
		require.NoError(t, big.Asts.Read(i, rec1))
		require.NoError(t, small.Asts.Read(i, rec2))
		require.Equal(t, rec1, rec2, "node record %d", i)
	}
	require.Equal(t, big.Syms.Count(), small.Syms.Count())
}

func TestParser_Errors(t *testing.T) {
	cases := map[string]string{
		"undeclared identifier":  `int main(void) { return y; }`,
		"redeclared in scope":    `int main(void) { int a; int a; }`,
		"assign to non-variable": `int main(void) { 1 = 2; }`,
		"call of a variable":     `int x; int main(void) { return x(); }`,
		"function as variable":   `int f(void) { return 0; } int main(void) { return f + 1; }`,
		"missing semicolon":      `int main(void) { return 1 }`,
		"missing name":           `int 5;`,
		"junk at top level":      `x;`,
		"unclosed block":         `int main(void) { return 0;`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			pl := testutil.NewPipeline(t, 100)
			pl.Lex(t, src)
			_, err := parser.New(pl.Toks, pl.Strs, pl.Pool).Parse()
			require.Error(t, err)
		})
	}
}
