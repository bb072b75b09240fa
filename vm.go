package slang

import (
	"encoding/binary"
	"fmt"
)

// VM is the register-free stack machine of spec.md §4.6. It owns one
// Arena and drives it by implementing RootProvider, mirroring the
// teacher's vm.go/vm_stack.go split between a VM struct and its
// operand-stack state, just retargeted from parsing results onto
// slang values.
type VM struct {
	arena   *Arena
	symbols *SymbolTable
	config  *Config

	stack     []Ref
	frames    []CallFrame
	tryFrames []TryFrame

	pc int

	modules        []*loadedModule
	builtinModules map[SymbolName]BuiltinModule

	// lamEnv is the scratch register spec.md §4.6 calls out: it holds
	// the captured parent env while a PUSH_LAMBDA instruction's new
	// Lambda object is being prepared.
	lamEnv Ref

	// pinned holds Refs that must survive collections at nested safe
	// points but live nowhere the collector can otherwise see — the
	// iteration state of MAP_STEP while it drives callSync, say. Each
	// slot is a root the collector rewrites in place, so holders read
	// back through the slot rather than keeping a Go-local copy.
	pinned []Ref

	// tryFloor bounds tryRecover for nested run() extents (callSync,
	// evalForm): a try frame installed by an outer extent must not
	// catch an error raised inside a nested one — the error propagates
	// out of the nested run and the outer dispatch loop recovers it at
	// the right pc instead.
	tryFloor int

	halted    bool
	haltValue Ref
}

type loadedModule struct {
	name      string
	index     int
	program   *Program
	globalEnv Ref
	exportEnv Ref
	exported  map[SymbolName]bool
}

// Program exposes the compiled bytecode a module holds, for drivers
// that want to disassemble (cmd/slang's `-g`) rather than run it.
func (m *loadedModule) Program() *Program { return m.program }

func NewVM(cfg *Config) *VM {
	if cfg == nil {
		cfg = NewConfig()
	}
	smallSetBytes := cfg.GetInt("gc.small_set_bytes")
	vm := &VM{
		arena:          NewArena(smallSetBytes / 32),
		symbols:        NewSymbolTable(),
		config:         cfg,
		stack:          make([]Ref, 0, 256),
		frames:         make([]CallFrame, 0, 64),
		tryFrames:      make([]TryFrame, 0, 8),
		builtinModules: make(map[SymbolName]BuiltinModule),
		lamEnv:         NullRef,
	}
	registerDefaultBuiltinModules(vm)
	return vm
}

// Roots implements RootProvider: every Ref reachable from outside the
// arena, per spec.md §3.6.
func (vm *VM) Roots() []*Ref {
	var roots []*Ref
	for i := range vm.stack {
		roots = append(roots, &vm.stack[i])
	}
	for i := range vm.frames {
		roots = append(roots, &vm.frames[i].env, &vm.frames[i].capturedEnv, &vm.frames[i].globalEnv)
	}
	for _, m := range vm.modules {
		roots = append(roots, &m.globalEnv, &m.exportEnv)
		for i := range m.program.Constants {
			roots = append(roots, &m.program.Constants[i])
		}
		for ci := range m.program.Cases {
			for ki := range m.program.Cases[ci].Keys {
				roots = append(roots, &m.program.Cases[ci].Keys[ki])
			}
		}
	}
	roots = append(roots, &vm.lamEnv)
	for i := range vm.pinned {
		roots = append(roots, &vm.pinned[i])
	}
	return roots
}

// pinAll appends rs to the pinned root set and returns a mark that
// unpin restores to, the same stack-discipline pattern vm.frames
// itself uses.
func (vm *VM) pinAll(rs []Ref) int {
	mark := len(vm.pinned)
	vm.pinned = append(vm.pinned, rs...)
	return mark
}

func (vm *VM) unpin(mark int) { vm.pinned = vm.pinned[:mark] }

func (vm *VM) allocN(n int, kind Kind) Ref {
	r := vm.arena.alloc(n)
	vm.arena.Get(r).hdr.kind = kind
	return r
}

func (vm *VM) allocObject(kind Kind) Ref { return vm.allocN(1, kind) }

func (vm *VM) currentFrame() *CallFrame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) push(r Ref) { vm.stack = append(vm.stack, r) }
func (vm *VM) pop() Ref {
	n := len(vm.stack) - 1
	r := vm.stack[n]
	vm.stack = vm.stack[:n]
	return r
}
func (vm *VM) top() Ref { return vm.stack[len(vm.stack)-1] }

// GetArg/Return are the native-procedure contract from spec.md §4.6
// ("External/native procedures"): a NativeFunc reads its i'th
// argument off the current frame's arg window directly rather than
// popping the shared stack itself.
func (vm *VM) GetArg(i int) Ref {
	f := vm.currentFrame()
	return vm.stack[f.argsFrame+i]
}

func (vm *VM) ArgCount() int {
	f := vm.currentFrame()
	return len(vm.stack) - f.argsFrame
}

func readU16(code []byte, at int) int     { return int(binary.LittleEndian.Uint16(code[at:])) }
func readU32(code []byte, at int) uint32  { return binary.LittleEndian.Uint32(code[at:]) }
func readI32(code []byte, at int) int32   { return int32(binary.LittleEndian.Uint32(code[at:])) }

func (vm *VM) curProgram() *Program { return vm.modules[vm.currentFrame().moduleIndex].program }
func (vm *VM) curFunc() *FuncProto  { return vm.curProgram().Funcs[vm.currentFrame().funcIndex] }

// Eval runs mod's entry function (index 0, "main") until it halts or
// errors, returning the final value left on the stack.
func (vm *VM) Eval(mod *loadedModule) (Ref, error) {
	vm.halted = false
	vm.frames = append(vm.frames, CallFrame{
		funcIndex:   0,
		argsFrame:   len(vm.stack),
		env:         NullRef,
		capturedEnv: NullRef,
		globalEnv:   mod.globalEnv,
		retAddr:     -1,
		moduleIndex: mod.index,
	})
	vm.pc = 0
	return vm.run()
}

// LoadModule parses and compiles src into a fresh module (its own
// global env for private bindings, its own export env for what
// `export` makes visible to importers, per spec.md §3.4/§4.5's module
// contract), registers it on the VM, and returns it unevaluated —
// callers run it with Eval. name is both the module's display name
// (used in error locations) and its dedupe key in importFileModule.
func (vm *VM) LoadModule(name, src string) (*loadedModule, error) {
	p := NewParser(vm, name, src)
	forms, err := p.ParseTopLevel()
	if err != nil {
		return nil, err
	}
	c := NewCompiler(vm, name, p.Locations)
	program, err := c.CompileModule(forms)
	if err != nil {
		return nil, err
	}
	mod := &loadedModule{
		name:      name,
		index:     len(vm.modules),
		program:   program,
		globalEnv: vm.newEnv(NullRef),
		exportEnv: vm.newEnv(NullRef),
	}
	vm.modules = append(vm.modules, mod)
	return mod, nil
}

func (vm *VM) run() (Ref, error) {
	for {
		if vm.halted {
			return vm.haltValue, nil
		}
		// safe point: between instructions every live Ref is reachable
		// from Roots(), so this is the only place a collection runs.
		if vm.arena.needsGC(0) {
			vm.arena.RunGC(vm.Roots(), 0)
		}
		frame := vm.currentFrame()
		fn := vm.curFunc()
		code := fn.Code
		op := Op(code[vm.pc])
		opStart := vm.pc
		vm.pc++

		switch op {
		case OpNoop:
		case OpHalt:
			// only global blocks end in HALT; their frames carry the -1
			// sentinel retAddr, so this return always stops the run.
			if err := vm.doReturn(vm.pop()); err != nil {
				return NullRef, err
			}
			continue
		case OpNull:
			vm.push(NullRef)
		case OpBoolTrue:
			vm.push(vm.newBool(true))
		case OpBoolFalse:
			vm.push(vm.newBool(false))
		case OpZero:
			vm.push(vm.newInt(0))
		case OpOne:
			vm.push(vm.newInt(1))
		case OpLoadPtr:
			idx := readU32(code, vm.pc)
			vm.pc += 4
			vm.push(vm.curProgram().Constants[idx])
		case OpPushLambda:
			idx := readU32(code, vm.pc)
			vm.pc += 4
			vm.lamEnv = frame.env
			r := vm.allocObject(KindLambda)
			obj := vm.arena.Get(r)
			obj.funcIndex = int32(idx)
			obj.lambdaModule = int32(frame.moduleIndex)
			obj.env = vm.lamEnv
			if !vm.lamEnv.IsNull() {
				obj.hdr.flags |= flagClosure
			}
			vm.lamEnv = NullRef
			vm.push(r)

		case OpLookup:
			sym := SymbolName(readU32(code, vm.pc))
			vm.pc += 4
			val, ok := vm.envGet(frame.env, sym)
			if !ok {
				err := vm.runtimeError(UndefinedError, "unbound variable %s", vm.symbols.String(sym))
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.push(val)
		case OpSet:
			sym := SymbolName(readU32(code, vm.pc))
			vm.pc += 4
			val := vm.pop()
			if !vm.envSet(frame.env, sym, val) {
				err := vm.runtimeError(UndefinedError, "unbound variable %s", vm.symbols.String(sym))
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
		case OpGetLocal, OpGetRec:
			idx := readU16(code, vm.pc)
			vm.pc += 2
			if frame.ownLocalsInEnv {
				vm.push(vm.envSlotAt(frame.env, idx))
			} else {
				vm.push(vm.stack[frame.argsFrame+idx])
			}
		case OpSetLocal, OpSetRec:
			idx := readU16(code, vm.pc)
			vm.pc += 2
			val := vm.pop()
			if frame.ownLocalsInEnv {
				vm.envSetSlotAt(frame.env, idx, val)
			} else {
				vm.stack[frame.argsFrame+idx] = val
			}
		case OpGetGlobal:
			sym := SymbolName(readU32(code, vm.pc))
			vm.pc += 4
			val, ok := vm.envGet(frame.globalEnv, sym)
			if !ok {
				err := vm.runtimeError(UndefinedError, "unbound global %s", vm.symbols.String(sym))
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.push(val)
		case OpSetGlobal:
			sym := SymbolName(readU32(code, vm.pc))
			vm.pc += 4
			val := vm.pop()
			if !vm.envSet(frame.globalEnv, sym, val) {
				err := vm.runtimeError(UndefinedError, "unbound global %s", vm.symbols.String(sym))
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
		case OpDefGlobal:
			sym := SymbolName(readU32(code, vm.pc))
			vm.pc += 4
			val := vm.pop()
			vm.envDefine(frame.globalEnv, sym, val)

		case OpPushFrame:
			// no operand: CALL derives argsFrame from its own argc
			// operand, so no explicit marker value is needed.
		case OpPopArg:
		case OpUnpack:
			lst := vm.pop()
			items := vm.listToSlice(lst)
			for _, it := range items {
				vm.push(it)
			}
		case OpCopy:
			vm.push(vm.top())
		case OpPop:
			vm.pop()

		case OpCall:
			argc := readU16(code, vm.pc)
			vm.pc += 2
			callee := vm.pop()
			if err := vm.doCall(callee, argc, false); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			continue
		case OpCallSym:
			sym := SymbolName(readU16(code, vm.pc))
			argc := readU16(code, vm.pc+2)
			vm.pc += 4
			if err := vm.callBuiltin(sym, argc, false); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			continue
		case OpRetCall:
			argc := readU16(code, vm.pc)
			vm.pc += 2
			callee := vm.pop()
			if err := vm.doCall(callee, argc, true); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			continue
		case OpRetCallSym:
			sym := SymbolName(readU16(code, vm.pc))
			argc := readU16(code, vm.pc+2)
			vm.pc += 4
			if err := vm.callBuiltin(sym, argc, true); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			continue
		case OpRet:
			result := vm.pop()
			if err := vm.doReturn(result); err != nil {
				return NullRef, err
			}
			continue
		case OpRecurse:
			// the self-call's arguments sit above the frame's old
			// parameters; copy them down over the old ones so the frame
			// re-enters with the same argsFrame it was born with.
			argc := readU16(code, vm.pc)
			newBase := len(vm.stack) - argc
			copy(vm.stack[frame.argsFrame:], vm.stack[newBase:])
			vm.stack = vm.stack[:frame.argsFrame+argc]
			if err := vm.normalizeArgs(fn, frame.argsFrame, argc); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.restartFrame(fn, frame)
			vm.pc = 0
			continue

		case OpApply, OpRetApply:
			arglist := vm.pop()
			proc := vm.pop()
			if err := vm.applyCall(proc, arglist, op == OpRetApply); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			continue
		case OpEvalForm:
			form := vm.pop()
			result, err := vm.evalForm(form)
			if err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.push(result)
			continue

		case OpJump:
			off := readI32(code, vm.pc)
			vm.pc = opStart + int(off)
		case OpCJumpPop:
			off := readI32(code, vm.pc)
			vm.pc += 4
			if vm.isTruthy(vm.pop()) {
				vm.pc = opStart + int(off)
			}
		case OpCNJumpPop:
			off := readI32(code, vm.pc)
			vm.pc += 4
			if !vm.isTruthy(vm.pop()) {
				vm.pc = opStart + int(off)
			}
		case OpCJump:
			off := readI32(code, vm.pc)
			vm.pc += 4
			if vm.isTruthy(vm.top()) {
				vm.pc = opStart + int(off)
			}
		case OpCNJump:
			off := readI32(code, vm.pc)
			vm.pc += 4
			if !vm.isTruthy(vm.top()) {
				vm.pc = opStart + int(off)
			}
		case OpCaseJump:
			idx := readU32(code, vm.pc)
			vm.pc += 4
			key := vm.pop()
			table := &vm.curProgram().Cases[idx]
			vm.pc = opStart + vm.dispatchCase(table, key)
		case OpTry:
			off := readI32(code, vm.pc)
			vm.pc += 4
			vm.tryFrames = append(vm.tryFrames, TryFrame{
				gotoAddr:       opStart + int(off),
				stackSize:      len(vm.stack),
				callFrameDepth: len(vm.frames),
			})
		case OpTryEnd:
			if len(vm.tryFrames) > 0 {
				vm.tryFrames = vm.tryFrames[:len(vm.tryFrames)-1]
			}
		case OpMaybeNull:
			vm.push(vm.newMaybe(false, NullRef))
		case OpMaybeWrap:
			v := vm.pop()
			vm.push(vm.newMaybe(true, v))
		case OpMaybeUnwrap:
			v := vm.pop()
			obj := vm.arena.Get(v)
			if obj.hdr.kind != KindMaybe || !obj.hdr.has(flagMaybeOccupied) {
				err := vm.runtimeError(UnwrapError, "unwrap of empty maybe")
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.push(obj.maybePayload)

		case OpNot:
			vm.push(vm.newBool(!vm.isTruthy(vm.pop())))
		case OpInc:
			vm.push(vm.arithUnary(vm.pop(), 1))
		case OpDec:
			vm.push(vm.arithUnary(vm.pop(), -1))
		case OpNeg:
			v := vm.pop()
			obj := vm.arena.Get(v)
			if obj.hdr.kind == KindReal {
				vm.push(vm.newReal(-obj.rval))
			} else {
				vm.push(vm.newInt(-obj.ival))
			}
		case OpInvert:
			v := vm.pop()
			x := vm.realOf(v)
			if x == 0 {
				err := vm.runtimeError(ZeroDivisionError, "reciprocal of zero")
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.push(vm.newReal(1 / x))
		case OpAdd, OpSub, OpMul, OpDiv:
			n := readU16(code, vm.pc)
			vm.pc += 2
			r, err := vm.arithFold(op, n)
			if err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.push(r)
		case OpEq:
			b := vm.pop()
			a := vm.pop()
			vm.push(vm.newBool(vm.valuesEqual(a, b)))
		case OpPair:
			r := vm.pop()
			l := vm.pop()
			vm.push(vm.newPair(l, r))
		case OpListConcat:
			n := readU16(code, vm.pc)
			vm.pc += 2
			lists := make([]Ref, n)
			for i := n - 1; i >= 0; i-- {
				lists[i] = vm.pop()
			}
			vm.push(vm.concatLists(lists))
		case OpLeft:
			vm.push(vm.arena.Get(vm.pop()).left)
		case OpRight:
			vm.push(vm.arena.Get(vm.pop()).right)
		case OpSetLeft:
			v := vm.pop()
			p := vm.pop()
			if err := vm.checkMutable(p); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.arena.Get(p).left = v
		case OpSetRight:
			v := vm.pop()
			p := vm.pop()
			if err := vm.checkMutable(p); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.arena.Get(p).right = v
		case OpMakeVec:
			n := vm.arena.Get(vm.pop()).ival
			vm.push(vm.newVector(int(n)))
		case OpVecGet:
			i := vm.arena.Get(vm.pop()).ival
			v := vm.pop()
			elems := vm.vectorElems(v)
			if i < 0 || int(i) >= len(elems) {
				err := vm.runtimeError(IndexError, "vector index %d out of range", i)
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.push(elems[i])
		case OpVecSet:
			val := vm.pop()
			i := vm.arena.Get(vm.pop()).ival
			v := vm.pop()
			if err := vm.checkMutable(v); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			elems := vm.vectorElems(v)
			if i < 0 || int(i) >= len(elems) {
				err := vm.runtimeError(IndexError, "vector index %d out of range", i)
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			elems[i] = val

		case OpExport:
			sym := SymbolName(readU32(code, vm.pc))
			vm.pc += 4
			vm.exportSymbol(frame.moduleIndex, sym)
		case OpImport:
			idx := readU32(code, vm.pc)
			vm.pc += 4
			if err := vm.importModule(frame.moduleIndex, vm.curProgram().Imports[idx]); err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}

		case OpMapStep:
			n := readU16(code, vm.pc)
			vm.pc += 2
			result, err := vm.mapStep(n)
			if err != nil {
				if err2 := vm.tryRecover(err); err2 == nil {
					continue
				}
				return NullRef, err
			}
			vm.push(result)

		default:
			return NullRef, fmt.Errorf("unimplemented opcode %s", op)
		}
	}
}

func (vm *VM) isTruthy(r Ref) bool {
	if r.IsNull() {
		return false
	}
	obj := vm.arena.Get(r)
	return obj.hdr.kind != KindBool || obj.bval
}

// runtimeError builds a SlangError tagged with the current frame's
// module name for location context (spec.md §4.7's tag requirement).
func (vm *VM) runtimeError(kind ErrorKind, format string, args ...any) error {
	name := ""
	if len(vm.frames) > 0 {
		name = vm.modules[vm.currentFrame().moduleIndex].name
	}
	return NewError(kind, Location{ModuleName: name}, format, args...)
}

// tryRecover converts a runtime error into a Maybe-null and resumes
// at the innermost try-frame's goto address, per spec.md §4.7's
// error-to-Maybe contract. It returns the original error unchanged
// (for the caller to propagate) when no try-frame is active.
func (vm *VM) tryRecover(err error) error {
	if len(vm.tryFrames) <= vm.tryFloor {
		return err
	}
	tf := vm.tryFrames[len(vm.tryFrames)-1]
	vm.tryFrames = vm.tryFrames[:len(vm.tryFrames)-1]
	vm.frames = vm.frames[:tf.callFrameDepth]
	vm.stack = vm.stack[:tf.stackSize]
	vm.pc = tf.gotoAddr
	vm.push(vm.newMaybe(false, NullRef))
	return nil
}
