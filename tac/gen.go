package tac

import (
	"fmt"

	"github.com/thobo70/stcc1-sub000/ast"
	"github.com/thobo70/stcc1-sub000/core"
	"github.com/thobo70/stcc1-sub000/hmap"
	"github.com/thobo70/stcc1-sub000/strstore"
	"github.com/thobo70/stcc1-sub000/symbol"
)

// Gen walks the stored AST and emits three-address code. The program layout
// is: global initializers, call to main, halt, then one entry label and body
// per function.
type Gen struct {
	pool *hmap.Pool
	strs *strstore.Store

	code   []Instr
	temps  int32
	labels int32

	entry  map[uint32]int32    // function symbol index -> entry label
	params map[uint32][]uint32 // function symbol index -> param symbols in order

	breakLbl []int32
	contLbl  []int32

	Metrics *core.Metrics
}

func NewGen(pool *hmap.Pool, strs *strstore.Store) *Gen {
	return &Gen{
		pool:   pool,
		strs:   strs,
		entry:  make(map[uint32]int32),
		params: make(map[uint32][]uint32),
	}
}

// node returns a copy of the AST record at idx; idx 0 yields the zero
// record. Copies survive later cache calls, slot handles would not.
func (g *Gen) node(idx uint32) (ast.Record, error) {
	if idx == 0 {
		return ast.Record{}, nil
	}
	s, err := g.pool.Get(idx, hmap.KindAST)
	if err != nil {
		return ast.Record{}, err
	}
	return *s.AST(), nil
}

func (g *Gen) sym(idx uint32) (symbol.Record, error) {
	s, err := g.pool.Get(idx, hmap.KindSym)
	if err != nil {
		return symbol.Record{}, err
	}
	return *s.Sym(), nil
}

func (g *Gen) emit(i Instr) {
	g.code = append(g.code, i)
	if g.Metrics != nil {
		g.Metrics.TacEmitted++
	}
}

func (g *Gen) newTemp() int32 {
	g.temps++
	return g.temps
}

func (g *Gen) newLabel() int32 {
	g.labels++
	return g.labels
}

// Program generates the whole unit rooted at root and returns the code.
func (g *Gen) Program(root uint32) ([]Instr, error) {
	// first pass: assign entry labels and collect parameter lists, so calls
	// can be emitted before their callee's body
	var mainSym uint32
	for idx := root; idx != 0; {
		glue, err := g.node(idx)
		if err != nil {
			return nil, err
		}
		decl, err := g.node(glue.Left)
		if err != nil {
			return nil, err
		}
		if decl.Type == ast.NodeFunc {
			g.entry[decl.Value] = g.newLabel()
			var params []uint32
			for pIdx := decl.Right; pIdx != 0; {
				pGlue, err := g.node(pIdx)
				if err != nil {
					return nil, err
				}
				pDecl, err := g.node(pGlue.Left)
				if err != nil {
					return nil, err
				}
				params = append(params, pDecl.Value)
				pIdx = pGlue.Right
			}
			g.params[decl.Value] = params

			rec, err := g.sym(decl.Value)
			if err != nil {
				return nil, err
			}
			name, err := g.strs.Get(rec.Name)
			if err != nil {
				return nil, err
			}
			if name == "main" {
				mainSym = decl.Value
			}
		}
		idx = glue.Right
	}
	if mainSym == 0 {
		return nil, fmt.Errorf("tac: program has no main function")
	}

	// global initializers
	for idx := root; idx != 0; {
		glue, err := g.node(idx)
		if err != nil {
			return nil, err
		}
		decl, err := g.node(glue.Left)
		if err != nil {
			return nil, err
		}
		if decl.Type == ast.NodeVarDecl && decl.Left != 0 {
			t, err := g.expr(decl.Left)
			if err != nil {
				return nil, err
			}
			g.emit(Instr{Op: OpStore, A: t, B: 1, Sym: decl.Value})
		}
		idx = glue.Right
	}

	result := g.newTemp()
	g.emit(Instr{Op: OpCall, Dst: result, A: g.entry[mainSym], Sym: mainSym})
	g.emit(Instr{Op: OpHalt, A: result})

	// function bodies
	for idx := root; idx != 0; {
		glue, err := g.node(idx)
		if err != nil {
			return nil, err
		}
		decl, err := g.node(glue.Left)
		if err != nil {
			return nil, err
		}
		if decl.Type == ast.NodeFunc {
			if err := g.function(decl); err != nil {
				return nil, err
			}
		}
		idx = glue.Right
	}
	return g.code, nil
}

func (g *Gen) function(decl ast.Record) error {
	g.emit(Instr{Op: OpLabel, A: g.entry[decl.Value]})
	// arguments were pushed left to right, pop binds right to left
	params := g.params[decl.Value]
	for i := len(params) - 1; i >= 0; i-- {
		g.emit(Instr{Op: OpPopArg, Sym: params[i]})
	}
	if err := g.stmt(decl.Left); err != nil {
		return err
	}
	// falling off the end returns 0
	g.emit(Instr{Op: OpRet, A: -1})
	return nil
}

func (g *Gen) isGlobal(symIdx uint32) (int32, error) {
	rec, err := g.sym(symIdx)
	if err != nil {
		return 0, err
	}
	if rec.Depth == 0 {
		return 1, nil
	}
	return 0, nil
}

func (g *Gen) stmt(idx uint32) error {
	if idx == 0 {
		return nil
	}
	n, err := g.node(idx)
	if err != nil {
		return err
	}
	switch n.Type {
	case ast.NodeBlock:
		for {
			if err := g.stmt(n.Left); err != nil {
				return err
			}
			if n.Right == 0 {
				return nil
			}
			if n, err = g.node(n.Right); err != nil {
				return err
			}
		}
	case ast.NodeVarDecl:
		if n.Left == 0 {
			return nil
		}
		t, err := g.expr(n.Left)
		if err != nil {
			return err
		}
		global, err := g.isGlobal(n.Value)
		if err != nil {
			return err
		}
		g.emit(Instr{Op: OpStore, A: t, B: global, Sym: n.Value})
		return nil
	case ast.NodeIf:
		branches, err := g.node(n.Right)
		if err != nil {
			return err
		}
		cond, err := g.expr(n.Left)
		if err != nil {
			return err
		}
		elseLbl, endLbl := g.newLabel(), g.newLabel()
		g.emit(Instr{Op: OpJumpZ, A: cond, B: elseLbl})
		if err := g.stmt(branches.Left); err != nil {
			return err
		}
		g.emit(Instr{Op: OpJump, A: endLbl})
		g.emit(Instr{Op: OpLabel, A: elseLbl})
		if err := g.stmt(branches.Right); err != nil {
			return err
		}
		g.emit(Instr{Op: OpLabel, A: endLbl})
		return nil
	case ast.NodeWhile:
		topLbl, endLbl := g.newLabel(), g.newLabel()
		g.emit(Instr{Op: OpLabel, A: topLbl})
		cond, err := g.expr(n.Left)
		if err != nil {
			return err
		}
		g.emit(Instr{Op: OpJumpZ, A: cond, B: endLbl})
		g.breakLbl = append(g.breakLbl, endLbl)
		g.contLbl = append(g.contLbl, topLbl)
		err = g.stmt(n.Right)
		g.breakLbl = g.breakLbl[:len(g.breakLbl)-1]
		g.contLbl = g.contLbl[:len(g.contLbl)-1]
		if err != nil {
			return err
		}
		g.emit(Instr{Op: OpJump, A: topLbl})
		g.emit(Instr{Op: OpLabel, A: endLbl})
		return nil
	case ast.NodeFor:
		ctl, err := g.node(n.Left)
		if err != nil {
			return err
		}
		body, err := g.node(n.Right)
		if err != nil {
			return err
		}
		if err := g.stmt(ctl.Left); err != nil { // init
			return err
		}
		topLbl, postLbl, endLbl := g.newLabel(), g.newLabel(), g.newLabel()
		g.emit(Instr{Op: OpLabel, A: topLbl})
		if ctl.Right != 0 {
			cond, err := g.expr(ctl.Right)
			if err != nil {
				return err
			}
			g.emit(Instr{Op: OpJumpZ, A: cond, B: endLbl})
		}
		g.breakLbl = append(g.breakLbl, endLbl)
		g.contLbl = append(g.contLbl, postLbl)
		err = g.stmt(body.Right)
		g.breakLbl = g.breakLbl[:len(g.breakLbl)-1]
		g.contLbl = g.contLbl[:len(g.contLbl)-1]
		if err != nil {
			return err
		}
		g.emit(Instr{Op: OpLabel, A: postLbl})
		if body.Left != 0 {
			if err := g.stmt(body.Left); err != nil { // post expression
				return err
			}
		}
		g.emit(Instr{Op: OpJump, A: topLbl})
		g.emit(Instr{Op: OpLabel, A: endLbl})
		return nil
	case ast.NodeReturn:
		ret := int32(-1)
		if n.Left != 0 {
			if ret, err = g.expr(n.Left); err != nil {
				return err
			}
		}
		g.emit(Instr{Op: OpRet, A: ret})
		return nil
	case ast.NodeBreak:
		if len(g.breakLbl) == 0 {
			return fmt.Errorf("tac: break outside of a loop")
		}
		g.emit(Instr{Op: OpJump, A: g.breakLbl[len(g.breakLbl)-1]})
		return nil
	case ast.NodeContinue:
		if len(g.contLbl) == 0 {
			return fmt.Errorf("tac: continue outside of a loop")
		}
		g.emit(Instr{Op: OpJump, A: g.contLbl[len(g.contLbl)-1]})
		return nil
	}
	// expression statement
	_, err = g.exprNode(n)
	return err
}

var binaryOps = map[ast.NodeType]Op{
	ast.NodeAdd: OpAdd,
	ast.NodeSub: OpSub,
	ast.NodeMul: OpMul,
	ast.NodeDiv: OpDiv,
	ast.NodeMod: OpMod,
	ast.NodeEq:  OpEq,
	ast.NodeNe:  OpNe,
	ast.NodeLt:  OpLt,
	ast.NodeGt:  OpGt,
	ast.NodeLe:  OpLe,
	ast.NodeGe:  OpGe,
}

func (g *Gen) expr(idx uint32) (int32, error) {
	n, err := g.node(idx)
	if err != nil {
		return 0, err
	}
	return g.exprNode(n)
}

func (g *Gen) exprNode(n ast.Record) (int32, error) {
	switch n.Type {
	case ast.NodeConst, ast.NodeString:
		t := g.newTemp()
		g.emit(Instr{Op: OpConst, Dst: t, A: int32(n.Value)})
		return t, nil
	case ast.NodeIdent:
		global, err := g.isGlobal(n.Value)
		if err != nil {
			return 0, err
		}
		t := g.newTemp()
		g.emit(Instr{Op: OpLoad, Dst: t, B: global, Sym: n.Value})
		return t, nil
	case ast.NodeNeg, ast.NodeNot:
		a, err := g.expr(n.Left)
		if err != nil {
			return 0, err
		}
		t := g.newTemp()
		op := OpNeg
		if n.Type == ast.NodeNot {
			op = OpNot
		}
		g.emit(Instr{Op: op, Dst: t, A: a})
		return t, nil
	case ast.NodeAssign:
		target, err := g.node(n.Left)
		if err != nil {
			return 0, err
		}
		val, err := g.expr(n.Right)
		if err != nil {
			return 0, err
		}
		global, err := g.isGlobal(target.Value)
		if err != nil {
			return 0, err
		}
		g.emit(Instr{Op: OpStore, A: val, B: global, Sym: target.Value})
		return val, nil
	case ast.NodeAnd, ast.NodeOr:
		return g.logical(n)
	case ast.NodeCall:
		argc := 0
		for aIdx := n.Left; aIdx != 0; {
			glue, err := g.node(aIdx)
			if err != nil {
				return 0, err
			}
			a, err := g.expr(glue.Left)
			if err != nil {
				return 0, err
			}
			g.emit(Instr{Op: OpParam, A: a})
			argc++
			aIdx = glue.Right
		}
		entry, ok := g.entry[n.Value]
		if !ok {
			return 0, fmt.Errorf("tac: call to undefined function (symbol %d)", n.Value)
		}
		if want := len(g.params[n.Value]); want != argc {
			return 0, fmt.Errorf("tac: call with %d arguments, function takes %d", argc, want)
		}
		t := g.newTemp()
		g.emit(Instr{Op: OpCall, Dst: t, A: entry, B: int32(argc), Sym: n.Value})
		return t, nil
	}
	if op, ok := binaryOps[n.Type]; ok {
		a, err := g.expr(n.Left)
		if err != nil {
			return 0, err
		}
		b, err := g.expr(n.Right)
		if err != nil {
			return 0, err
		}
		t := g.newTemp()
		g.emit(Instr{Op: op, Dst: t, A: a, B: b})
		return t, nil
	}
	return 0, fmt.Errorf("tac: %s node in expression position", n.Type)
}

// logical emits short-circuit && and ||.
func (g *Gen) logical(n ast.Record) (int32, error) {
	t := g.newTemp()
	shortLbl, endLbl := g.newLabel(), g.newLabel()

	a, err := g.expr(n.Left)
	if err != nil {
		return 0, err
	}
	if n.Type == ast.NodeAnd {
		g.emit(Instr{Op: OpJumpZ, A: a, B: shortLbl})
	} else {
		az := g.newTemp()
		g.emit(Instr{Op: OpNot, Dst: az, A: a})
		g.emit(Instr{Op: OpJumpZ, A: az, B: shortLbl})
	}
	b, err := g.expr(n.Right)
	if err != nil {
		return 0, err
	}
	// normalize the second operand to 0/1 straight into the result temp
	g.emit(Instr{Op: OpNe, Dst: t, A: b, B: g.zero()})
	g.emit(Instr{Op: OpJump, A: endLbl})

	g.emit(Instr{Op: OpLabel, A: shortLbl})
	short := int32(0)
	if n.Type == ast.NodeOr {
		short = 1
	}
	g.emit(Instr{Op: OpConst, Dst: t, A: short})
	g.emit(Instr{Op: OpLabel, A: endLbl})
	return t, nil
}

// zero emits a constant 0 temporary.
func (g *Gen) zero() int32 {
	t := g.newTemp()
	g.emit(Instr{Op: OpConst, Dst: t, A: 0})
	return t
}
