// Package ast defines the fixed-size AST-node record persisted in the AST
// backing store. Nodes reference each other, the token log and the symbol
// store by index only; the in-memory working set is managed by the node cache.
package ast

import "fmt"

// NodeType identifies what a node record represents.
type NodeType uint16

const (
	NodeNone NodeType = iota // zero record, never produced by the parser

	// Expressions
	NodeConst  // integer literal; Value holds the parsed value
	NodeIdent  // variable reference; Value holds the symbol index
	NodeString // string literal; Value holds the string store offset

	NodeAdd
	NodeSub
	NodeMul
	NodeDiv
	NodeMod
	NodeEq
	NodeNe
	NodeLt
	NodeGt
	NodeLe
	NodeGe
	NodeAnd // logical &&, short-circuit
	NodeOr  // logical ||, short-circuit
	NodeNeg // unary -
	NodeNot // unary !

	NodeAssign // Left = Right; Left is NodeIdent
	NodeCall   // Value holds the callee symbol index, Left the argument list
	NodeArg    // argument list glue: Left = expr, Right = next NodeArg

	// Statements
	NodeBlock    // statement list glue: Left = stmt, Right = next NodeBlock
	NodeIf       // Left = condition, Right = NodeIfElse
	NodeIfElse   // Left = then branch, Right = else branch (0 if absent)
	NodeWhile    // Left = condition, Right = body
	NodeFor      // Left = NodeForCtl, Right = NodeForBody
	NodeForCtl   // Left = init statement, Right = condition (0 = always true)
	NodeForBody  // Left = post statement, Right = body
	NodeReturn   // Left = expression (0 for bare return)
	NodeBreak    //
	NodeContinue //

	// Declarations
	NodeVarDecl // Value = symbol index, Left = initializer (0 if absent)
	NodeFunc    // Value = symbol index, Left = body block, Right = param list
	NodeUnit    // translation unit glue: Left = decl/func, Right = next NodeUnit
)

var nodeNames = [...]string{
	NodeNone:     "None",
	NodeConst:    "Const",
	NodeIdent:    "Ident",
	NodeString:   "String",
	NodeAdd:      "Add",
	NodeSub:      "Sub",
	NodeMul:      "Mul",
	NodeDiv:      "Div",
	NodeMod:      "Mod",
	NodeEq:       "Eq",
	NodeNe:       "Ne",
	NodeLt:       "Lt",
	NodeGt:       "Gt",
	NodeLe:       "Le",
	NodeGe:       "Ge",
	NodeAnd:      "And",
	NodeOr:       "Or",
	NodeNeg:      "Neg",
	NodeNot:      "Not",
	NodeAssign:   "Assign",
	NodeCall:     "Call",
	NodeArg:      "Arg",
	NodeBlock:    "Block",
	NodeIf:       "If",
	NodeIfElse:   "IfElse",
	NodeWhile:    "While",
	NodeFor:      "For",
	NodeForCtl:   "ForCtl",
	NodeForBody:  "ForBody",
	NodeReturn:   "Return",
	NodeBreak:    "Break",
	NodeContinue: "Continue",
	NodeVarDecl:  "VarDecl",
	NodeFunc:     "Func",
	NodeUnit:     "Unit",
}

func (t NodeType) String() string {
	if int(t) < len(nodeNames) {
		return nodeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", uint16(t))
}
