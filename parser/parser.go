// Package parser builds the on-disk AST and symbol table from the token log.
// Every node and symbol lives in a backing-store record reached through the
// node cache; the parser itself holds only record indices, never slot
// handles, across cache calls.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thobo70/stcc1-sub000/ast"
	"github.com/thobo70/stcc1-sub000/core"
	"github.com/thobo70/stcc1-sub000/hmap"
	"github.com/thobo70/stcc1-sub000/strstore"
	"github.com/thobo70/stcc1-sub000/symbol"
	"github.com/thobo70/stcc1-sub000/tokens"
)

// Parser replays the token log and emits AST and symbol records through the
// node cache.
type Parser struct {
	toks *tokens.Log
	strs *strstore.Store
	pool *hmap.Pool

	pos      uint32 // 1-based index of the current token
	tok      tokens.Token
	spelling string

	depth uint16 // scope depth, 0 = global
	scope uint32 // innermost declared symbol, head of the scope chain

	Metrics *core.Metrics
}

func New(toks *tokens.Log, strs *strstore.Store, pool *hmap.Pool) *Parser {
	return &Parser{toks: toks, strs: strs, pool: pool}
}

// Parse consumes the whole token log and returns the record index of the
// translation-unit list head.
func (p *Parser) Parse() (uint32, error) {
	if err := p.advance(); err != nil {
		return 0, err
	}
	var head, tail uint32
	for p.tok.Type != tokens.TokenEOF {
		decl, err := p.parseTopLevel()
		if err != nil {
			return 0, err
		}
		glue, err := p.newNode(ast.NodeUnit, decl, 0, 0)
		if err != nil {
			return 0, err
		}
		if head == 0 {
			head = glue
		} else if err := p.linkRight(tail, glue); err != nil {
			return 0, err
		}
		tail = glue
	}
	return head, nil
}

func (p *Parser) advance() error {
	if p.pos >= p.toks.Count() {
		return fmt.Errorf("parser: read past end of token log")
	}
	p.pos++
	tok, err := p.toks.At(p.pos)
	if err != nil {
		return err
	}
	p.tok = tok
	p.spelling = ""
	if tok.Str != 0 {
		if p.spelling, err = p.strs.Get(tok.Str); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) expect(t tokens.Type) error {
	if p.tok.Type != t {
		return fmt.Errorf("parser: line %d: expected %s, found %s",
			p.tok.Line, t, p.tok.Type)
	}
	return p.advance()
}

func (p *Parser) errf(format string, args ...any) error {
	return fmt.Errorf("parser: line %d: %s", p.tok.Line, fmt.Sprintf(format, args...))
}

// newNode stores one AST record and returns its index. The slot handle is
// dropped before the next cache call; children are always built first.
func (p *Parser) newNode(t ast.NodeType, left, right, value uint32) (uint32, error) {
	s, err := p.pool.New(hmap.KindAST)
	if err != nil {
		return 0, err
	}
	n := s.AST()
	n.Type = t
	n.Token = p.pos
	n.Left = left
	n.Right = right
	n.Value = value
	s.MarkDirty()
	if p.Metrics != nil {
		p.Metrics.NodesBuilt++
	}
	return s.Index(), nil
}

// linkRight patches node idx's Right child after the fact, used to append to
// glue chains.
func (p *Parser) linkRight(idx, right uint32) error {
	s, err := p.pool.Get(idx, hmap.KindAST)
	if err != nil {
		return err
	}
	s.AST().Right = right
	s.MarkDirty()
	return nil
}

// nodeAt returns a copy of the AST record at idx. The copy stays valid after
// later cache calls evict the slot.
func (p *Parser) nodeAt(idx uint32) (ast.Record, error) {
	s, err := p.pool.Get(idx, hmap.KindAST)
	if err != nil {
		return ast.Record{}, err
	}
	return *s.AST(), nil
}

//  Symbols and scopes

func (p *Parser) enterScope() {
	p.depth++
}

// exitScope retires every symbol declared at the current depth: the record
// is flushed so later passes can fault it back in, then the slot is
// soft-deleted.
func (p *Parser) exitScope() error {
	for p.scope != 0 {
		s, err := p.pool.Get(p.scope, hmap.KindSym)
		if err != nil {
			return err
		}
		rec := *s.Sym()
		if rec.Depth < p.depth {
			break
		}
		if err := p.pool.Flush(s); err != nil {
			return err
		}
		p.pool.Delete(s)
		p.scope = rec.Prev
	}
	p.depth--
	return nil
}

func (p *Parser) declare(name string, kind symbol.Kind, typ uint32, value int32) (uint32, error) {
	// reject duplicates within the current scope
	for idx := p.scope; idx != 0; {
		s, err := p.pool.Get(idx, hmap.KindSym)
		if err != nil {
			return 0, err
		}
		rec := *s.Sym()
		if rec.Depth < p.depth {
			break
		}
		existing, err := p.strs.Get(rec.Name)
		if err != nil {
			return 0, err
		}
		if existing == name {
			return 0, p.errf("%q redeclared in the same scope", name)
		}
		idx = rec.Prev
	}

	off, err := p.strs.Put(name)
	if err != nil {
		return 0, err
	}
	s, err := p.pool.New(hmap.KindSym)
	if err != nil {
		return 0, err
	}
	rec := s.Sym()
	rec.Kind = kind
	rec.Depth = p.depth
	rec.Name = off
	rec.Type = typ
	rec.Value = value
	rec.Prev = p.scope
	s.MarkDirty()
	idx := s.Index()

	if p.scope != 0 {
		prev, err := p.pool.Get(p.scope, hmap.KindSym)
		if err != nil {
			return 0, err
		}
		prev.Sym().Next = idx
		prev.MarkDirty()
	}
	p.scope = idx
	if p.Metrics != nil {
		p.Metrics.SymbolsBound++
	}
	return idx, nil
}

// lookup walks the scope chain from the innermost symbol outward.
func (p *Parser) lookup(name string) (uint32, symbol.Record, error) {
	for idx := p.scope; idx != 0; {
		s, err := p.pool.Get(idx, hmap.KindSym)
		if err != nil {
			return 0, symbol.Record{}, err
		}
		rec := *s.Sym()
		nm, err := p.strs.Get(rec.Name)
		if err != nil {
			return 0, symbol.Record{}, err
		}
		if nm == name {
			return idx, rec, nil
		}
		idx = rec.Prev
	}
	return 0, symbol.Record{}, p.errf("undeclared identifier %q", name)
}

//  Declarations

func (p *Parser) parseType() (uint32, bool, error) {
	var base symbol.Base
	switch p.tok.Type {
	case tokens.TokenInt:
		base = symbol.TypeInt
	case tokens.TokenChar_:
		base = symbol.TypeChar
	case tokens.TokenVoid:
		base = symbol.TypeVoid
	default:
		return 0, false, nil
	}
	if err := p.advance(); err != nil {
		return 0, false, err
	}
	ptr := 0
	for p.tok.Type == tokens.TokenStar {
		ptr++
		if err := p.advance(); err != nil {
			return 0, false, err
		}
	}
	return symbol.MakeType(base, ptr), true, nil
}

func (p *Parser) parseTopLevel() (uint32, error) {
	typ, ok, err := p.parseType()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, p.errf("expected declaration, found %s", p.tok.Type)
	}
	if p.tok.Type != tokens.TokenIdent {
		return 0, p.errf("expected name, found %s", p.tok.Type)
	}
	name := p.spelling
	if err := p.advance(); err != nil {
		return 0, err
	}
	if p.tok.Type == tokens.TokenLParen {
		return p.parseFunction(name, typ)
	}
	return p.parseVarDecl(name, typ)
}

func (p *Parser) parseFunction(name string, typ uint32) (uint32, error) {
	symIdx, err := p.declare(name, symbol.SymFunction, typ, 0)
	if err != nil {
		return 0, err
	}
	if err := p.expect(tokens.TokenLParen); err != nil {
		return 0, err
	}

	p.enterScope()
	var params, paramsTail uint32
	if p.tok.Type != tokens.TokenRParen && p.tok.Type != tokens.TokenVoid {
		for {
			ptyp, ok, err := p.parseType()
			if err != nil {
				return 0, err
			}
			if !ok || p.tok.Type != tokens.TokenIdent {
				return 0, p.errf("expected parameter declaration, found %s", p.tok.Type)
			}
			pSym, err := p.declare(p.spelling, symbol.SymParam, ptyp, 0)
			if err != nil {
				return 0, err
			}
			if err := p.advance(); err != nil {
				return 0, err
			}
			decl, err := p.newNode(ast.NodeVarDecl, 0, 0, pSym)
			if err != nil {
				return 0, err
			}
			glue, err := p.newNode(ast.NodeArg, decl, 0, 0)
			if err != nil {
				return 0, err
			}
			if params == 0 {
				params = glue
			} else if err := p.linkRight(paramsTail, glue); err != nil {
				return 0, err
			}
			paramsTail = glue
			if p.tok.Type != tokens.TokenComma {
				break
			}
			if err := p.advance(); err != nil {
				return 0, err
			}
		}
	} else if p.tok.Type == tokens.TokenVoid {
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	if err := p.expect(tokens.TokenRParen); err != nil {
		return 0, err
	}

	if p.tok.Type != tokens.TokenLBrace {
		return 0, p.errf("expected function body, found %s", p.tok.Type)
	}
	body, err := p.parseCompound()
	if err != nil {
		return 0, err
	}
	if err := p.exitScope(); err != nil {
		return 0, err
	}
	return p.newNode(ast.NodeFunc, body, params, symIdx)
}

func (p *Parser) parseVarDecl(name string, typ uint32) (uint32, error) {
	symIdx, err := p.declare(name, symbol.SymVariable, typ, 0)
	if err != nil {
		return 0, err
	}
	var init uint32
	if p.tok.Type == tokens.TokenAssign {
		if err := p.advance(); err != nil {
			return 0, err
		}
		if init, err = p.parseExpr(); err != nil {
			return 0, err
		}
	}
	if err := p.expect(tokens.TokenSemicolon); err != nil {
		return 0, err
	}
	return p.newNode(ast.NodeVarDecl, init, 0, symIdx)
}

//  Statements

func (p *Parser) parseStmt() (uint32, error) {
	switch p.tok.Type {
	case tokens.TokenLBrace:
		return p.parseCompound()
	case tokens.TokenIf:
		return p.parseIf()
	case tokens.TokenWhile:
		return p.parseWhile()
	case tokens.TokenFor:
		return p.parseFor()
	case tokens.TokenReturn:
		if err := p.advance(); err != nil {
			return 0, err
		}
		var expr uint32
		var err error
		if p.tok.Type != tokens.TokenSemicolon {
			if expr, err = p.parseExpr(); err != nil {
				return 0, err
			}
		}
		if err := p.expect(tokens.TokenSemicolon); err != nil {
			return 0, err
		}
		return p.newNode(ast.NodeReturn, expr, 0, 0)
	case tokens.TokenBreak:
		if err := p.advance(); err != nil {
			return 0, err
		}
		if err := p.expect(tokens.TokenSemicolon); err != nil {
			return 0, err
		}
		return p.newNode(ast.NodeBreak, 0, 0, 0)
	case tokens.TokenContinue:
		if err := p.advance(); err != nil {
			return 0, err
		}
		if err := p.expect(tokens.TokenSemicolon); err != nil {
			return 0, err
		}
		return p.newNode(ast.NodeContinue, 0, 0, 0)
	case tokens.TokenInt, tokens.TokenChar_, tokens.TokenVoid:
		typ, _, err := p.parseType()
		if err != nil {
			return 0, err
		}
		if p.tok.Type != tokens.TokenIdent {
			return 0, p.errf("expected name, found %s", p.tok.Type)
		}
		name := p.spelling
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.parseVarDecl(name, typ)
	}
	expr, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if err := p.expect(tokens.TokenSemicolon); err != nil {
		return 0, err
	}
	return expr, nil
}

func (p *Parser) parseCompound() (uint32, error) {
	if err := p.expect(tokens.TokenLBrace); err != nil {
		return 0, err
	}
	p.enterScope()
	var head, tail uint32
	for p.tok.Type != tokens.TokenRBrace {
		if p.tok.Type == tokens.TokenEOF {
			return 0, p.errf("unexpected end of input in block")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return 0, err
		}
		glue, err := p.newNode(ast.NodeBlock, stmt, 0, 0)
		if err != nil {
			return 0, err
		}
		if head == 0 {
			head = glue
		} else if err := p.linkRight(tail, glue); err != nil {
			return 0, err
		}
		tail = glue
	}
	if err := p.advance(); err != nil { // consume '}'
		return 0, err
	}
	if err := p.exitScope(); err != nil {
		return 0, err
	}
	if head == 0 {
		// empty block still needs a node
		return p.newNode(ast.NodeBlock, 0, 0, 0)
	}
	return head, nil
}

func (p *Parser) parseIf() (uint32, error) {
	if err := p.advance(); err != nil {
		return 0, err
	}
	if err := p.expect(tokens.TokenLParen); err != nil {
		return 0, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if err := p.expect(tokens.TokenRParen); err != nil {
		return 0, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return 0, err
	}
	var els uint32
	if p.tok.Type == tokens.TokenElse {
		if err := p.advance(); err != nil {
			return 0, err
		}
		if els, err = p.parseStmt(); err != nil {
			return 0, err
		}
	}
	branches, err := p.newNode(ast.NodeIfElse, then, els, 0)
	if err != nil {
		return 0, err
	}
	return p.newNode(ast.NodeIf, cond, branches, 0)
}

func (p *Parser) parseWhile() (uint32, error) {
	if err := p.advance(); err != nil {
		return 0, err
	}
	if err := p.expect(tokens.TokenLParen); err != nil {
		return 0, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if err := p.expect(tokens.TokenRParen); err != nil {
		return 0, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return 0, err
	}
	return p.newNode(ast.NodeWhile, cond, body, 0)
}

func (p *Parser) parseFor() (uint32, error) {
	if err := p.advance(); err != nil {
		return 0, err
	}
	if err := p.expect(tokens.TokenLParen); err != nil {
		return 0, err
	}
	p.enterScope()

	var init, cond, post uint32
	var err error
	if p.tok.Type != tokens.TokenSemicolon {
		switch p.tok.Type {
		case tokens.TokenInt, tokens.TokenChar_, tokens.TokenVoid:
			typ, _, err := p.parseType()
			if err != nil {
				return 0, err
			}
			if p.tok.Type != tokens.TokenIdent {
				return 0, p.errf("expected name, found %s", p.tok.Type)
			}
			name := p.spelling
			if err := p.advance(); err != nil {
				return 0, err
			}
			// parseVarDecl consumes the ';'
			if init, err = p.parseVarDecl(name, typ); err != nil {
				return 0, err
			}
		default:
			if init, err = p.parseExpr(); err != nil {
				return 0, err
			}
			if err := p.expect(tokens.TokenSemicolon); err != nil {
				return 0, err
			}
		}
	} else if err := p.advance(); err != nil {
		return 0, err
	}

	if p.tok.Type != tokens.TokenSemicolon {
		if cond, err = p.parseExpr(); err != nil {
			return 0, err
		}
	}
	if err := p.expect(tokens.TokenSemicolon); err != nil {
		return 0, err
	}
	if p.tok.Type != tokens.TokenRParen {
		if post, err = p.parseExpr(); err != nil {
			return 0, err
		}
	}
	if err := p.expect(tokens.TokenRParen); err != nil {
		return 0, err
	}

	body, err := p.parseStmt()
	if err != nil {
		return 0, err
	}
	if err := p.exitScope(); err != nil {
		return 0, err
	}

	ctl, err := p.newNode(ast.NodeForCtl, init, cond, 0)
	if err != nil {
		return 0, err
	}
	fb, err := p.newNode(ast.NodeForBody, post, body, 0)
	if err != nil {
		return 0, err
	}
	return p.newNode(ast.NodeFor, ctl, fb, 0)
}

//  Expressions

func (p *Parser) parseExpr() (uint32, error) {
	return p.parseAssign()
}

func (p *Parser) parseAssign() (uint32, error) {
	left, err := p.parseOr()
	if err != nil {
		return 0, err
	}
	if p.tok.Type != tokens.TokenAssign {
		return left, nil
	}
	leftRec, err := p.nodeAt(left)
	if err != nil {
		return 0, err
	}
	if leftRec.Type != ast.NodeIdent {
		return 0, p.errf("assignment target is not a variable")
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	right, err := p.parseAssign() // right-associative
	if err != nil {
		return 0, err
	}
	return p.newNode(ast.NodeAssign, left, right, 0)
}

// binaryLevel parses one left-associative precedence level.
func (p *Parser) binaryLevel(ops map[tokens.Type]ast.NodeType,
	next func() (uint32, error)) (uint32, error) {
	left, err := next()
	if err != nil {
		return 0, err
	}
	for {
		nt, ok := ops[p.tok.Type]
		if !ok {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
		right, err := next()
		if err != nil {
			return 0, err
		}
		if left, err = p.newNode(nt, left, right, 0); err != nil {
			return 0, err
		}
	}
}

var (
	orOps  = map[tokens.Type]ast.NodeType{tokens.TokenOrOr: ast.NodeOr}
	andOps = map[tokens.Type]ast.NodeType{tokens.TokenAndAnd: ast.NodeAnd}
	eqOps  = map[tokens.Type]ast.NodeType{
		tokens.TokenEq: ast.NodeEq,
		tokens.TokenNe: ast.NodeNe,
	}
	relOps = map[tokens.Type]ast.NodeType{
		tokens.TokenLt: ast.NodeLt,
		tokens.TokenGt: ast.NodeGt,
		tokens.TokenLe: ast.NodeLe,
		tokens.TokenGe: ast.NodeGe,
	}
	addOps = map[tokens.Type]ast.NodeType{
		tokens.TokenPlus:  ast.NodeAdd,
		tokens.TokenMinus: ast.NodeSub,
	}
	mulOps = map[tokens.Type]ast.NodeType{
		tokens.TokenStar:    ast.NodeMul,
		tokens.TokenSlash:   ast.NodeDiv,
		tokens.TokenPercent: ast.NodeMod,
	}
)

func (p *Parser) parseOr() (uint32, error) {
	return p.binaryLevel(orOps, p.parseAnd)
}

func (p *Parser) parseAnd() (uint32, error) {
	return p.binaryLevel(andOps, p.parseEquality)
}

func (p *Parser) parseEquality() (uint32, error) {
	return p.binaryLevel(eqOps, p.parseRelational)
}

func (p *Parser) parseRelational() (uint32, error) {
	return p.binaryLevel(relOps, p.parseAdditive)
}

func (p *Parser) parseAdditive() (uint32, error) {
	return p.binaryLevel(addOps, p.parseMultiplicative)
}

func (p *Parser) parseMultiplicative() (uint32, error) {
	return p.binaryLevel(mulOps, p.parseUnary)
}

func (p *Parser) parseUnary() (uint32, error) {
	switch p.tok.Type {
	case tokens.TokenMinus:
		if err := p.advance(); err != nil {
			return 0, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return p.newNode(ast.NodeNeg, operand, 0, 0)
	case tokens.TokenNot:
		if err := p.advance(); err != nil {
			return 0, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return p.newNode(ast.NodeNot, operand, 0, 0)
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (uint32, error) {
	switch p.tok.Type {
	case tokens.TokenNumber:
		val, err := strconv.ParseUint(p.spelling, 0, 32)
		if err != nil {
			return 0, p.errf("bad integer literal %q", p.spelling)
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.newNode(ast.NodeConst, 0, 0, uint32(val))
	case tokens.TokenChar:
		if p.spelling == "" {
			return 0, p.errf("empty character literal")
		}
		val := uint32([]rune(p.spelling)[0])
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.newNode(ast.NodeConst, 0, 0, val)
	case tokens.TokenString:
		off := p.tok.Str
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.newNode(ast.NodeString, 0, 0, off)
	case tokens.TokenLParen:
		if err := p.advance(); err != nil {
			return 0, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if err := p.expect(tokens.TokenRParen); err != nil {
			return 0, err
		}
		return expr, nil
	case tokens.TokenIdent:
		name := p.spelling
		if err := p.advance(); err != nil {
			return 0, err
		}
		if p.tok.Type == tokens.TokenLParen {
			return p.parseCall(name)
		}
		symIdx, rec, err := p.lookup(name)
		if err != nil {
			return 0, err
		}
		if rec.Kind == symbol.SymFunction {
			return 0, p.errf("function %q used as a variable", name)
		}
		return p.newNode(ast.NodeIdent, 0, 0, symIdx)
	}
	return 0, p.errf("unexpected token %s in expression", p.tok.Type)
}

func (p *Parser) parseCall(name string) (uint32, error) {
	symIdx, rec, err := p.lookup(name)
	if err != nil {
		return 0, err
	}
	if rec.Kind != symbol.SymFunction {
		return 0, p.errf("%q is not a function", name)
	}
	if err := p.expect(tokens.TokenLParen); err != nil {
		return 0, err
	}
	var args, tail uint32
	for p.tok.Type != tokens.TokenRParen {
		arg, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		glue, err := p.newNode(ast.NodeArg, arg, 0, 0)
		if err != nil {
			return 0, err
		}
		if args == 0 {
			args = glue
		} else if err := p.linkRight(tail, glue); err != nil {
			return 0, err
		}
		tail = glue
		if p.tok.Type != tokens.TokenComma {
			break
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	if err := p.expect(tokens.TokenRParen); err != nil {
		return 0, err
	}
	return p.newNode(ast.NodeCall, args, 0, symIdx)
}
