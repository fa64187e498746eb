// Package tac translates the stored AST into three-address code and executes
// it. The generator reads nodes and symbols exclusively through the node
// cache; the instruction list itself is plain in-memory state.
package tac

import "fmt"

// Op is a three-address-code operation.
type Op uint8

const (
	OpNop   Op = iota
	OpConst    // Dst = A (immediate)
	OpLoad     // Dst = value of symbol Sym (B != 0 selects the global frame)
	OpStore    // symbol Sym = A (B != 0 selects the global frame)

	OpAdd // Dst = A op B (temporaries)
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpNeg // Dst = -A
	OpNot // Dst = (A == 0)

	OpLabel  // A = label id
	OpJump   // A = target label
	OpJumpZ  // if temp A == 0, jump to label B
	OpParam  // push temp A as an outgoing argument
	OpPopArg // pop one argument into symbol Sym (function prologue)
	OpCall   // Dst = call entry label A, B = argument count, Sym = callee symbol
	OpRet    // return temp A, or nothing when A < 0
	OpHalt   // stop; temp A is the program result
)

var opNames = [...]string{
	OpNop:    "nop",
	OpConst:  "const",
	OpLoad:   "load",
	OpStore:  "store",
	OpAdd:    "add",
	OpSub:    "sub",
	OpMul:    "mul",
	OpDiv:    "div",
	OpMod:    "mod",
	OpEq:     "eq",
	OpNe:     "ne",
	OpLt:     "lt",
	OpGt:     "gt",
	OpLe:     "le",
	OpGe:     "ge",
	OpNeg:    "neg",
	OpNot:    "not",
	OpLabel:  "label",
	OpJump:   "jump",
	OpJumpZ:  "jumpz",
	OpParam:  "param",
	OpPopArg: "poparg",
	OpCall:   "call",
	OpRet:    "ret",
	OpHalt:   "halt",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Instr is one three-address instruction. Dst, A and B name temporaries
// except where the Op says otherwise; Sym is a symbol-store index.
type Instr struct {
	Op  Op
	Dst int32
	A   int32
	B   int32
	Sym uint32
}

func (i Instr) String() string {
	return fmt.Sprintf("%-6s dst=%d a=%d b=%d sym=%d", i.Op, i.Dst, i.A, i.B, i.Sym)
}
