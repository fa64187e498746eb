package tac

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// stepLimit aborts runaway programs instead of hanging the test suite.
const stepLimit = 50_000_000

type frame struct {
	vars   map[uint32]int32 // symbol index -> value
	temps  map[int32]int32
	retDst int32
	retPC  int
}

// Emulator executes a three-address-code program. Trace, when set to a real
// logger, logs every executed instruction.
type Emulator struct {
	code    []Instr
	labels  map[int32]int
	globals map[uint32]int32

	Trace zerolog.Logger
}

func NewEmulator(code []Instr) (*Emulator, error) {
	labels := make(map[int32]int)
	for pc, in := range code {
		if in.Op == OpLabel {
			if _, dup := labels[in.A]; dup {
				return nil, fmt.Errorf("tac: duplicate label %d", in.A)
			}
			labels[in.A] = pc
		}
	}
	return &Emulator{
		code:    code,
		labels:  labels,
		globals: make(map[uint32]int32),
		Trace:   zerolog.Nop(),
	}, nil
}

// Run executes from the top of the program and returns the halt value.
func (e *Emulator) Run() (int32, error) {
	stack := []*frame{{vars: make(map[uint32]int32), temps: make(map[int32]int32)}}
	var args []int32
	pc := 0

	for steps := 0; ; steps++ {
		if steps >= stepLimit {
			return 0, fmt.Errorf("tac: step limit reached at pc %d", pc)
		}
		if pc < 0 || pc >= len(e.code) {
			return 0, fmt.Errorf("tac: fell off the program at pc %d", pc)
		}
		in := e.code[pc]
		f := stack[len(stack)-1]
		e.Trace.Debug().Int("pc", pc).Str("instr", in.String()).Msg("step")

		switch in.Op {
		case OpNop, OpLabel:
		case OpConst:
			f.temps[in.Dst] = in.A
		case OpLoad:
			if in.B != 0 {
				f.temps[in.Dst] = e.globals[in.Sym]
			} else {
				f.temps[in.Dst] = f.vars[in.Sym]
			}
		case OpStore:
			if in.B != 0 {
				e.globals[in.Sym] = f.temps[in.A]
			} else {
				f.vars[in.Sym] = f.temps[in.A]
			}
		case OpAdd:
			f.temps[in.Dst] = f.temps[in.A] + f.temps[in.B]
		case OpSub:
			f.temps[in.Dst] = f.temps[in.A] - f.temps[in.B]
		case OpMul:
			f.temps[in.Dst] = f.temps[in.A] * f.temps[in.B]
		case OpDiv:
			if f.temps[in.B] == 0 {
				return 0, fmt.Errorf("tac: division by zero at pc %d", pc)
			}
			f.temps[in.Dst] = f.temps[in.A] / f.temps[in.B]
		case OpMod:
			if f.temps[in.B] == 0 {
				return 0, fmt.Errorf("tac: division by zero at pc %d", pc)
			}
			f.temps[in.Dst] = f.temps[in.A] % f.temps[in.B]
		case OpEq:
			f.temps[in.Dst] = b2i(f.temps[in.A] == f.temps[in.B])
		case OpNe:
			f.temps[in.Dst] = b2i(f.temps[in.A] != f.temps[in.B])
		case OpLt:
			f.temps[in.Dst] = b2i(f.temps[in.A] < f.temps[in.B])
		case OpGt:
			f.temps[in.Dst] = b2i(f.temps[in.A] > f.temps[in.B])
		case OpLe:
			f.temps[in.Dst] = b2i(f.temps[in.A] <= f.temps[in.B])
		case OpGe:
			f.temps[in.Dst] = b2i(f.temps[in.A] >= f.temps[in.B])
		case OpNeg:
			f.temps[in.Dst] = -f.temps[in.A]
		case OpNot:
			f.temps[in.Dst] = b2i(f.temps[in.A] == 0)
		case OpJump:
			target, ok := e.labels[in.A]
			if !ok {
				return 0, fmt.Errorf("tac: jump to unknown label %d at pc %d", in.A, pc)
			}
			pc = target
		case OpJumpZ:
			if f.temps[in.A] == 0 {
				target, ok := e.labels[in.B]
				if !ok {
					return 0, fmt.Errorf("tac: jump to unknown label %d at pc %d", in.B, pc)
				}
				pc = target
			}
		case OpParam:
			args = append(args, f.temps[in.A])
		case OpPopArg:
			if len(args) == 0 {
				return 0, fmt.Errorf("tac: missing argument for symbol %d at pc %d", in.Sym, pc)
			}
			f.vars[in.Sym] = args[len(args)-1]
			args = args[:len(args)-1]
		case OpCall:
			target, ok := e.labels[in.A]
			if !ok {
				return 0, fmt.Errorf("tac: call to unknown label %d at pc %d", in.A, pc)
			}
			if int(in.B) > len(args) {
				return 0, fmt.Errorf("tac: call needs %d arguments, %d staged at pc %d",
					in.B, len(args), pc)
			}
			stack = append(stack, &frame{
				vars:   make(map[uint32]int32),
				temps:  make(map[int32]int32),
				retDst: in.Dst,
				retPC:  pc + 1,
			})
			pc = target
			continue
		case OpRet:
			var val int32
			if in.A >= 0 {
				val = f.temps[in.A]
			}
			if len(stack) == 1 {
				return 0, fmt.Errorf("tac: return outside of a call at pc %d", pc)
			}
			stack = stack[:len(stack)-1]
			caller := stack[len(stack)-1]
			caller.temps[f.retDst] = val
			pc = f.retPC
			continue
		case OpHalt:
			return f.temps[in.A], nil
		default:
			return 0, fmt.Errorf("tac: unknown op %s at pc %d", in.Op, pc)
		}
		pc++
	}
}

// GlobalValue is one global variable's final value, keyed by symbol index.
type GlobalValue struct {
	Sym   uint32
	Value int32
}

// Globals returns the final global values in symbol-index order.
func (e *Emulator) Globals() []GlobalValue {
	out := make([]GlobalValue, 0, len(e.globals))
	for sym, v := range e.globals {
		out = append(out, GlobalValue{Sym: sym, Value: v})
	}
	slices.SortFunc(out, func(a, b GlobalValue) bool { return a.Sym < b.Sym })
	return out
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
