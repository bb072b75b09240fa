package slang

// This file implements the call protocol of spec.md §4.6: arity
// checking, variadic rest-list collection, the CALL/RETCALL/RECURSE
// tail-call distinction, and the builtin-symbol fast path CALLSYM
// takes instead of pushing a Lambda value at all. Every call site
// carries its own static argument count (the CALL/CALLSYM operand),
// so the VM never has to infer how many values above the stack
// belong to the pending call.

// normalizeArgs validates argc arguments already sitting on the stack
// above base against fn's declared arity, and — for a variadic
// function — collapses the trailing actuals into a single list bound
// to the last parameter slot, leaving exactly len(fn.Params) values
// above base.
func (vm *VM) normalizeArgs(fn *FuncProto, base, argc int) error {
	fixed := len(fn.Params)
	if fn.Variadic {
		fixed--
	}
	checkArity := vm.config.GetBool("vm.check_arity")
	if checkArity {
		if argc < fixed || (!fn.Variadic && argc != fixed) {
			return vm.runtimeError(ArityError, "expected %d argument(s), got %d", fixed, argc)
		}
	}
	if fn.Variadic {
		rest := NullRef
		for i := base + argc - 1; i >= base+fixed; i-- {
			rest = vm.newPair(vm.stack[i], rest)
		}
		vm.stack = vm.stack[:base+fixed]
		vm.push(rest)
	}
	return nil
}

// enterFrame pushes a fresh CallFrame for a call into fn, allocating
// a heap Env for fn's own parameters when fn.NeedsEnv (spec.md §4.5's
// closure flag) demands it so nested lambdas can capture them.
func (vm *VM) enterFrame(fn *FuncProto, funcIndex int32, moduleIndex, argsFrame int, capturedEnv, globalEnv Ref, retAddr int) {
	cf := CallFrame{
		funcIndex:   funcIndex,
		argsFrame:   argsFrame,
		capturedEnv: capturedEnv,
		globalEnv:   globalEnv,
		retAddr:     retAddr,
		moduleIndex: moduleIndex,
	}
	if fn.NeedsEnv {
		env := vm.newEnv(capturedEnv)
		for i, p := range fn.Params {
			vm.envDefine(env, p, vm.stack[argsFrame+i])
		}
		cf.env = env
		cf.ownLocalsInEnv = true
	} else {
		cf.env = capturedEnv
		cf.ownLocalsInEnv = false
	}
	vm.frames = append(vm.frames, cf)
}

// restartFrame re-initializes the CURRENT frame in place for RECURSE
// (a self tail call): same depth, same argsFrame, fresh locals.
func (vm *VM) restartFrame(fn *FuncProto, frame *CallFrame) {
	if fn.NeedsEnv {
		env := vm.newEnv(frame.capturedEnv)
		for i, p := range fn.Params {
			vm.envDefine(env, p, vm.stack[frame.argsFrame+i])
		}
		frame.env = env
		frame.ownLocalsInEnv = true
	} else {
		frame.env = frame.capturedEnv
		frame.ownLocalsInEnv = false
	}
}

// doCall dispatches a CALL/RETCALL on a value popped off the stack
// (a Lambda object, native or slang-defined, or a built-in's Symbol) against
// argc already-pushed arguments. For a tail call (isTail), the
// caller's frame is discarded first so the call stack never grows
// from tail recursion — spec.md's S1 scenario.
func (vm *VM) doCall(callee Ref, argc int, isTail bool) error {
	if callee.IsNull() {
		return vm.runtimeError(TypeError, "attempt to call null")
	}
	obj := vm.arena.Get(callee)
	// a built-in's name is itself callable (`(apply + ...)` hands `+`
	// around as a Symbol value), dispatching exactly as CALLSYM would.
	if obj.hdr.kind == KindSymbol && IsBuiltin(obj.sym) {
		return vm.callBuiltin(obj.sym, argc, isTail)
	}
	if obj.hdr.kind != KindLambda {
		return vm.runtimeError(TypeError, "attempt to call non-procedure value of kind %s", obj.hdr.kind)
	}
	argsFrame := len(vm.stack) - argc

	if obj.hdr.has(flagExternal) {
		return vm.callNative(obj.native, argsFrame, isTail)
	}

	moduleIndex := int(obj.lambdaModule)
	fn := vm.modules[moduleIndex].program.Funcs[obj.funcIndex]
	if err := vm.normalizeArgs(fn, argsFrame, argc); err != nil {
		return err
	}

	globalEnv := vm.modules[moduleIndex].globalEnv
	if isTail {
		// reuse the current frame's slot: slide the (already
		// normalized) argument window down over the caller's own
		// arguments so N nested tail calls run in O(1) stack both ways.
		cf := vm.currentFrame()
		retAddr := cf.retAddr
		base := cf.argsFrame
		n := len(vm.stack) - argsFrame
		copy(vm.stack[base:], vm.stack[argsFrame:])
		vm.stack = vm.stack[:base+n]
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.enterFrame(fn, obj.funcIndex, moduleIndex, base, obj.env, globalEnv, retAddr)
	} else {
		vm.enterFrame(fn, obj.funcIndex, moduleIndex, argsFrame, obj.env, globalEnv, vm.pc)
	}
	vm.pc = 0
	return nil
}

// callBuiltin dispatches CALLSYM/RETCALLSYM: a call to one of the
// fixed prelude's special forms or built-ins by symbol, bypassing
// Lambda-value indirection entirely (spec.md §4.5's CALLSYM notation).
func (vm *VM) callBuiltin(sym SymbolName, argc int, isTail bool) error {
	argsFrame := len(vm.stack) - argc
	sig := Signature(sym)
	checkArity := vm.config.GetBool("vm.check_arity")
	if checkArity {
		if argc < sig.minArgs || (sig.maxArgs != VariadicArgCount && argc > sig.maxArgs) {
			return vm.runtimeError(ArityError, "%s expects %d-%d argument(s), got %d", sig.name, sig.minArgs, sig.maxArgs, argc)
		}
	}
	result, err := vm.invokeBuiltin(sym, argsFrame, argc)
	if err != nil {
		return err
	}
	vm.stack = vm.stack[:argsFrame]
	vm.push(result)
	if isTail {
		return vm.doReturn(result)
	}
	return nil
}

// callNative invokes an external/native procedure (spec.md §4.6): it
// installs a lightweight frame addressing its own argument window so
// GetArg/ArgCount work, then pushes its single return value.
func (vm *VM) callNative(fn NativeFunc, argsFrame int, isTail bool) error {
	vm.frames = append(vm.frames, CallFrame{
		argsFrame:   argsFrame,
		env:         NullRef,
		capturedEnv: NullRef,
		globalEnv:   NullRef,
		retAddr:     vm.pc,
		moduleIndex: vm.currentFrame().moduleIndex,
	})
	result, err := fn(vm)
	vm.frames = vm.frames[:len(vm.frames)-1]
	if err != nil {
		return err
	}
	vm.stack = vm.stack[:argsFrame]
	vm.push(result)
	if isTail {
		return vm.doReturn(result)
	}
	return nil
}

// doReturn pops the current frame and either resumes the caller at
// its saved pc or, if that was the outermost frame, halts the VM with
// result as the program's final value. The argument stack is cut back
// to the returning frame's base first, so a CALL/RET pair is
// stack-neutral except for the one produced value.
func (vm *VM) doReturn(result Ref) error {
	f := vm.currentFrame()
	retAddr := f.retAddr
	base := f.argsFrame
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.stack = vm.stack[:base]
	if len(vm.frames) == 0 || retAddr < 0 {
		vm.halted = true
		vm.haltValue = result
		return nil
	}
	vm.pc = retAddr
	vm.push(result)
	return nil
}

// applyCall implements `apply`: proc is called against the elements
// of arglist spread as individual arguments, with the list's length
// supplying the argc a literal call site would otherwise carry.
func (vm *VM) applyCall(proc, arglist Ref, isTail bool) error {
	items := vm.listToSlice(arglist)
	for _, it := range items {
		vm.push(it)
	}
	return vm.doCall(proc, len(items), isTail)
}

// evalForm compiles form as a zero-argument function body in the
// current module and runs it to completion in the current frame's
// global scope, the way a top-level `eval` call re-enters the code
// writer and VM for a value computed at run time (spec.md §4.6).
func (vm *VM) evalForm(form Ref) (Ref, error) {
	frame := vm.currentFrame()
	prog := vm.curProgram()
	comp := NewCompiler(vm, prog.ModuleName, nil)
	comp.program = prog
	comp.ctx = newFuncCtx(nil, nil, false, false)
	comp.compile(form, false)
	comp.emit(OpRet)
	if comp.errors.HasErrors() {
		return NullRef, &comp.errors
	}
	funcIndex := prog.addFunc(&FuncProto{Code: comp.ctx.code, Name: "%eval"})

	savedHalted, savedHaltValue, savedPC := vm.halted, vm.haltValue, vm.pc
	savedFloor := vm.tryFloor
	vm.tryFloor = len(vm.tryFrames)
	vm.halted = false
	vm.frames = append(vm.frames, CallFrame{
		funcIndex:   funcIndex,
		argsFrame:   len(vm.stack),
		env:         NullRef,
		capturedEnv: NullRef,
		globalEnv:   frame.globalEnv,
		retAddr:     -1,
		moduleIndex: frame.moduleIndex,
	})
	vm.pc = 0
	result, err := vm.run()
	vm.tryFloor = savedFloor
	vm.halted, vm.haltValue, vm.pc = savedHalted, savedHaltValue, savedPC
	return result, err
}

// dispatchCase hashes key once, then compares structurally only
// against entries in the same hash bucket (spec.md §4.5's CASE_JUMP),
// returning the matching branch's relative offset or the table's
// default branch if nothing matches.
func (vm *VM) dispatchCase(table *CaseTable, key Ref) int {
	h := vm.hashValue(key)
	for i, kh := range table.Hashes {
		if kh == h && vm.valuesEqual(table.Keys[i], key) {
			return table.Targets[i]
		}
	}
	return table.Default
}

// callSync invokes callee against argc already-pushed arguments and
// drives it to completion before returning the result, unlike the
// CALL/RETCALL opcodes (which hand control back to the dispatch loop
// and let the callee's own bytecode run as the next instructions). A
// Go-level helper such as mapStep needs the value back immediately, so
// it enters the callee with a sentinel retAddr of -1: the callee's own
// RET then halts just this nested run() instead of resuming anywhere,
// the same trick evalForm uses to bound a dynamic eval's extent.
func (vm *VM) callSync(callee Ref, argc int) (Ref, error) {
	if callee.IsNull() {
		return NullRef, vm.runtimeError(TypeError, "attempt to call null")
	}
	obj := vm.arena.Get(callee)
	if obj.hdr.kind == KindSymbol && IsBuiltin(obj.sym) {
		if err := vm.callBuiltin(obj.sym, argc, false); err != nil {
			return NullRef, err
		}
		return vm.pop(), nil
	}
	if obj.hdr.kind != KindLambda {
		return NullRef, vm.runtimeError(TypeError, "attempt to call non-procedure value of kind %s", obj.hdr.kind)
	}
	argsFrame := len(vm.stack) - argc
	if obj.hdr.has(flagExternal) {
		if err := vm.callNative(obj.native, argsFrame, false); err != nil {
			return NullRef, err
		}
		return vm.pop(), nil
	}

	moduleIndex := int(obj.lambdaModule)
	fn := vm.modules[moduleIndex].program.Funcs[obj.funcIndex]
	if err := vm.normalizeArgs(fn, argsFrame, argc); err != nil {
		return NullRef, err
	}
	globalEnv := vm.modules[moduleIndex].globalEnv
	vm.enterFrame(fn, obj.funcIndex, moduleIndex, argsFrame, obj.env, globalEnv, -1)

	savedHalted, savedHaltValue, savedPC := vm.halted, vm.haltValue, vm.pc
	savedFloor := vm.tryFloor
	vm.tryFloor = len(vm.tryFrames)
	vm.halted = false
	vm.pc = 0
	result, err := vm.run()
	vm.tryFloor = savedFloor
	vm.halted, vm.haltValue, vm.pc = savedHalted, savedHaltValue, savedPC
	return result, err
}

// mapStep implements the `map` built-in's MAP_STEP fusion (spec.md
// §4.5's Misc group): given n parallel lists and a callable beneath
// them on the stack, it drives the whole iteration to completion here
// rather than leaving the loop to compiled bytecode, stopping at the
// first list that runs out and returning the results as a proper list
// in the lists' own order.
func (vm *VM) mapStep(n int) (Ref, error) {
	// the callee, cursors, and accumulated result must survive the
	// nested callSync's safe points, where the collector may move
	// everything; pinned slots are roots the GC rewrites in place, so
	// all state lives there instead of in Go locals.
	state := make([]Ref, n+3)
	for i := n; i >= 1; i-- {
		state[i] = vm.pop()
	}
	state[0] = vm.pop()
	state[n+1], state[n+2] = NullRef, NullRef
	mark := vm.pinAll(state)
	defer vm.unpin(mark)
	callee := func() Ref { return vm.pinned[mark] }
	cursor := func(i int) *Ref { return &vm.pinned[mark+1+i] }
	head := func() *Ref { return &vm.pinned[mark+n+1] }
	tail := func() *Ref { return &vm.pinned[mark+n+2] }

	for {
		for i := 0; i < n; i++ {
			if cursor(i).IsNull() {
				return *head(), nil
			}
		}
		for i := 0; i < n; i++ {
			vm.push(vm.arena.Get(*cursor(i)).left)
		}
		result, err := vm.callSync(callee(), n)
		if err != nil {
			return NullRef, err
		}
		cell := vm.newPair(result, NullRef)
		if head().IsNull() {
			*head() = cell
		} else {
			vm.arena.Get(*tail()).right = cell
		}
		*tail() = cell
		for i := 0; i < n; i++ {
			*cursor(i) = vm.arena.Get(*cursor(i)).right
		}
	}
}
