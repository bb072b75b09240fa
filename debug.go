package slang

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// displayString renders a value the way `print`/`write` show it to a
// user: Lisp-ish, not Go-ish. DumpValue (below) is the separate,
// much more verbose internal view used for debugging the VM itself.
func (vm *VM) displayString(r Ref) string {
	if r.IsNull() {
		return "()"
	}
	obj := vm.arena.Get(r)
	switch obj.hdr.kind {
	case KindInt:
		return fmt.Sprintf("%d", obj.ival)
	case KindReal:
		return fmt.Sprintf("%g", obj.rval)
	case KindBool:
		if obj.bval {
			return "true"
		}
		return "false"
	case KindSymbol:
		return vm.symbols.String(obj.sym)
	case KindEOF:
		return "#eof"
	case KindString:
		return vm.stringValue(r)
	case KindMaybe:
		if obj.hdr.has(flagMaybeOccupied) {
			return "?<" + vm.displayString(obj.maybePayload) + ">"
		}
		return "?<>"
	case KindPair:
		var b strings.Builder
		b.WriteByte('(')
		cur := r
		first := true
		for {
			o := vm.arena.Get(cur)
			if !first {
				b.WriteByte(' ')
			}
			first = false
			b.WriteString(vm.displayString(o.left))
			if o.right.IsNull() {
				break
			}
			if vm.arena.Get(o.right).hdr.kind != KindPair {
				b.WriteString(" . ")
				b.WriteString(vm.displayString(o.right))
				break
			}
			cur = o.right
		}
		b.WriteByte(')')
		return b.String()
	case KindVector:
		var b strings.Builder
		b.WriteString("#(")
		for i, e := range vm.vectorElems(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(vm.displayString(e))
		}
		b.WriteString(")")
		return b.String()
	case KindDict:
		return "#<dict>"
	case KindLambda:
		name := ""
		if !obj.hdr.has(flagExternal) {
			fn := vm.modules[obj.lambdaModule].program.Funcs[obj.funcIndex]
			name = fn.Name
		}
		if name != "" {
			return fmt.Sprintf("#<proc %s>", name)
		}
		return "#<proc>"
	case KindStream:
		return "#<stream>"
	default:
		return fmt.Sprintf("#<%s>", obj.hdr.kind)
	}
}

// Display renders r the way a program's top-level result is shown to
// a user (the `cmd/slang` driver's only formatting dependency).
func (vm *VM) Display(r Ref) string { return vm.displayString(r) }

// DumpValue is the go-spew-backed internal debug view (not used by
// `print`), for use from tests and a future interactive debugger seam.
func DumpValue(arena *Arena, r Ref) string {
	if r.IsNull() {
		return "Ref(null)"
	}
	return spew.Sdump(arena.Get(r))
}

// DumpFrame renders a CallFrame for debugging, grounded on the same
// go-spew convention DumpValue uses.
func DumpFrame(f CallFrame) string {
	return spew.Sdump(f)
}

// Disassemble renders fn's bytecode as a flat, human-readable listing:
// one opcode per line, mnemonic plus decoded operand.
func Disassemble(name string, fn *FuncProto) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; %s (%d params%s)\n", name, len(fn.Params), variadicSuffix(fn.Variadic))
	pc := 0
	for pc < len(fn.Code) {
		op := Op(fn.Code[pc])
		fmt.Fprintf(&b, "%04d  %-14s", pc, op)
		switch {
		case op == OpCallSym || op == OpRetCallSym:
			fmt.Fprintf(&b, "%d %d", readU16(fn.Code, pc+1), readU16(fn.Code, pc+3))
		case opSize[op] == 2:
			fmt.Fprintf(&b, "%d", readU16(fn.Code, pc+1))
		case opSize[op] == 4:
			fmt.Fprintf(&b, "%d", readI32(fn.Code, pc+1))
		}
		b.WriteByte('\n')
		pc += InstrSize(op)
	}
	return b.String()
}

func variadicSuffix(v bool) string {
	if v {
		return ", variadic"
	}
	return ""
}
