package slang

import "math"

// invokeBuiltin dispatches a CALLSYM/RETCALLSYM target to its
// concrete implementation. Argument i of the call is vm.stack[base+i];
// argc is already arity-checked by the caller (vmcall.go).
func (vm *VM) invokeBuiltin(sym SymbolName, base, argc int) (Ref, error) {
	arg := func(i int) Ref { return vm.stack[base+i] }
	args := func() []Ref { return vm.stack[base : base+argc] }

	switch Signature(sym).name {
	case "+":
		return vm.arithAccum(OpAdd, args())
	case "-":
		return vm.arithAccum(OpSub, args())
	case "*":
		return vm.arithAccum(OpMul, args())
	case "/":
		return vm.arithAccum(OpDiv, args())
	case "mod":
		a, b := vm.arena.Get(arg(0)).ival, vm.arena.Get(arg(1)).ival
		if b == 0 {
			return NullRef, vm.runtimeError(ZeroDivisionError, "modulo by zero")
		}
		return vm.newInt(floorMod(a, b)), nil
	case "pow":
		return vm.powValues(arg(0), arg(1))
	case "abs":
		o := vm.arena.Get(arg(0))
		if o.hdr.kind == KindReal {
			return vm.newReal(math.Abs(o.rval)), nil
		}
		v := o.ival
		if v < 0 {
			v = -v
		}
		return vm.newInt(v), nil
	case "floor":
		return vm.newInt(int64(math.Floor(vm.realOf(arg(0))))), nil
	case "ceil":
		return vm.newInt(int64(math.Ceil(vm.realOf(arg(0))))), nil
	case "min":
		return vm.foldExtreme(args(), true), nil
	case "max":
		return vm.foldExtreme(args(), false), nil

	case "&":
		return vm.bitFold(args(), func(a, b int64) int64 { return a & b }, -1), nil
	case "|":
		return vm.bitFold(args(), func(a, b int64) int64 { return a | b }, 0), nil
	case "^":
		return vm.bitFold(args(), func(a, b int64) int64 { return a ^ b }, 0), nil
	case "~":
		return vm.newInt(^vm.arena.Get(arg(0)).ival), nil
	case "<<":
		return vm.newInt(vm.arena.Get(arg(0)).ival << uint(vm.arena.Get(arg(1)).ival)), nil
	case ">>":
		return vm.newInt(vm.arena.Get(arg(0)).ival >> uint(vm.arena.Get(arg(1)).ival)), nil

	case "<":
		return vm.newBool(vm.chainCompare(args(), func(a, b float64) bool { return a < b })), nil
	case ">":
		return vm.newBool(vm.chainCompare(args(), func(a, b float64) bool { return a > b })), nil
	case "<=":
		return vm.newBool(vm.chainCompare(args(), func(a, b float64) bool { return a <= b })), nil
	case ">=":
		return vm.newBool(vm.chainCompare(args(), func(a, b float64) bool { return a >= b })), nil
	case "=":
		return vm.newBool(vm.chainEqual(args(), true)), nil
	case "/=":
		return vm.newBool(vm.chainEqual(args(), false)), nil
	case "is":
		return vm.newBool(vm.isIdentical(arg(0), arg(1))), nil

	case "pair":
		return vm.newPair(arg(0), arg(1)), nil
	case "left":
		return vm.arena.Get(arg(0)).left, nil
	case "right":
		return vm.arena.Get(arg(0)).right, nil
	case "set-left!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		vm.arena.Get(arg(0)).left = arg(1)
		return arg(0), nil
	case "set-right!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		vm.arena.Get(arg(0)).right = arg(1)
		return arg(0), nil
	case "list":
		return vm.sliceToList(append([]Ref(nil), args()...)), nil
	case "list-ref":
		lst := arg(0)
		n := vm.arena.Get(arg(1)).ival
		for i := int64(0); i < n; i++ {
			if lst.IsNull() {
				return NullRef, vm.runtimeError(IndexError, "list-ref index out of range")
			}
			lst = vm.arena.Get(lst).right
		}
		if lst.IsNull() {
			return NullRef, vm.runtimeError(IndexError, "list-ref index out of range")
		}
		return vm.arena.Get(lst).left, nil
	case "list-set!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		lst := arg(0)
		n := vm.arena.Get(arg(1)).ival
		for i := int64(0); i < n; i++ {
			lst = vm.arena.Get(lst).right
		}
		vm.arena.Get(lst).left = arg(2)
		return arg(0), nil
	case "++":
		return vm.concatLists(append([]Ref(nil), args()...)), nil

	case "vec":
		return vm.newVectorFrom(append([]Ref(nil), args()...)), nil
	case "vec-alloc":
		n := int(vm.arena.Get(arg(0)).ival)
		fill := NullRef
		if argc > 1 {
			fill = arg(1)
		}
		v := vm.newVector(n)
		elems := vm.vectorElems(v)
		for i := range elems {
			elems[i] = fill
		}
		return v, nil
	case "vec-ref":
		elems := vm.vectorElems(arg(0))
		i := vm.arena.Get(arg(1)).ival
		if i < 0 || int(i) >= len(elems) {
			return NullRef, vm.runtimeError(IndexError, "vec-ref index out of range")
		}
		return elems[i], nil
	case "vec-set!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		elems := vm.vectorElems(arg(0))
		i := vm.arena.Get(arg(1)).ival
		if i < 0 || int(i) >= len(elems) {
			return NullRef, vm.runtimeError(IndexError, "vec-set! index out of range")
		}
		elems[i] = arg(2)
		return arg(0), nil
	case "vec-app!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		storage := vm.arena.Get(arg(0)).storage
		so := vm.arena.Get(storage)
		so.elems = append(so.elems, arg(1))
		vm.arena.Get(arg(0)).hdr.size = uint32(len(so.elems))
		return arg(0), nil
	case "vec-pop!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		storage := vm.arena.Get(arg(0)).storage
		so := vm.arena.Get(storage)
		if len(so.elems) == 0 {
			return NullRef, vm.runtimeError(IndexError, "vec-pop! of empty vector")
		}
		last := so.elems[len(so.elems)-1]
		so.elems = so.elems[:len(so.elems)-1]
		vm.arena.Get(arg(0)).hdr.size = uint32(len(so.elems))
		return last, nil

	case "dict":
		return vm.newDictFrom(args()), nil
	case "dict-get":
		v, ok := vm.dictGet(arg(0), arg(1))
		if !ok {
			if argc > 2 {
				return arg(2), nil
			}
			return vm.newMaybe(false, NullRef), nil
		}
		if argc > 2 {
			return v, nil
		}
		return vm.newMaybe(true, v), nil
	case "dict-set!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		vm.dictSet(arg(0), arg(1), arg(2))
		return arg(0), nil
	case "dict-pop!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		vm.dictPop(arg(0), arg(1))
		return arg(0), nil

	case "str-ref":
		b := vm.stringBytes(arg(0))
		i := vm.arena.Get(arg(1)).ival
		if i < 0 || int(i) >= len(b) {
			return NullRef, vm.runtimeError(IndexError, "str-ref index out of range")
		}
		return vm.newInt(int64(b[i])), nil
	case "str-set!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		b := vm.stringBytes(arg(0))
		i := vm.arena.Get(arg(1)).ival
		if i < 0 || int(i) >= len(b) {
			return NullRef, vm.runtimeError(IndexError, "str-set! index out of range")
		}
		b[i] = byte(vm.arena.Get(arg(2)).ival)
		return arg(0), nil
	case "str-app!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		storage := vm.arena.Get(arg(0)).storage
		so := vm.arena.Get(storage)
		so.bytes = append(so.bytes, vm.stringBytes(arg(1))...)
		vm.arena.Get(arg(0)).hdr.size = uint32(len(so.bytes))
		return arg(0), nil
	case "str-pop!":
		if err := vm.checkMutable(arg(0)); err != nil {
			return NullRef, err
		}
		storage := vm.arena.Get(arg(0)).storage
		so := vm.arena.Get(storage)
		if len(so.bytes) == 0 {
			return NullRef, vm.runtimeError(IndexError, "str-pop! of empty string")
		}
		last := so.bytes[len(so.bytes)-1]
		so.bytes = so.bytes[:len(so.bytes)-1]
		vm.arena.Get(arg(0)).hdr.size = uint32(len(so.bytes))
		return vm.newInt(int64(last)), nil
	case "str-split":
		return vm.strSplit(vm.stringValue(arg(0)), vm.stringValue(arg(1))), nil
	case "str-join":
		return vm.strJoin(arg(0), vm.stringValue(arg(1))), nil

	case "open":
		mode := "r"
		if argc > 1 {
			mode = vm.stringValue(arg(1))
		}
		return vm.openFile(vm.stringValue(arg(0)), mode)
	case "close":
		return vm.closeStream(arg(0))
	case "read":
		return vm.readStream(arg(0))
	case "read-line":
		return vm.readLineStream(arg(0))
	case "write":
		return vm.writeStream(arg(0), arg(1))
	case "print":
		return vm.printValues(args())

	case "null?":
		return vm.newBool(arg(0).IsNull()), nil
	case "int?":
		return vm.newBool(vm.kindOf(arg(0)) == KindInt), nil
	case "real?":
		return vm.newBool(vm.kindOf(arg(0)) == KindReal), nil
	case "num?":
		k := vm.kindOf(arg(0))
		return vm.newBool(k == KindInt || k == KindReal), nil
	case "str?":
		return vm.newBool(vm.kindOf(arg(0)) == KindString), nil
	case "pair?":
		return vm.newBool(vm.kindOf(arg(0)) == KindPair), nil
	case "proc?":
		return vm.newBool(vm.kindOf(arg(0)) == KindLambda), nil
	case "vec?":
		return vm.newBool(vm.kindOf(arg(0)) == KindVector), nil
	case "maybe?":
		return vm.newBool(vm.kindOf(arg(0)) == KindMaybe), nil
	case "eof?":
		return vm.newBool(vm.kindOf(arg(0)) == KindEOF), nil
	case "bound?":
		frame := vm.currentFrame()
		sym := vm.arena.Get(arg(0)).sym
		_, ok := vm.envGet(frame.env, sym)
		if !ok {
			_, ok = vm.envGet(frame.globalEnv, sym)
		}
		return vm.newBool(ok), nil
	case "main?":
		return vm.newBool(vm.currentFrame().funcIndex == 0), nil
	case "pure?":
		return vm.newBool(vm.isPureValue(arg(0))), nil
	}
	return NullRef, vm.runtimeError(EvalError, "unimplemented built-in %s", Signature(sym).name)
}

// floorMod is the floor-division modulo: the result takes the
// divisor's sign, so (mod -7 3) is 2, not Go's truncated -1.
func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// intPow raises an Int to a non-negative Int power by squaring.
func intPow(base, exp int64) int64 {
	var result int64 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// powValues keeps `pow` closed over the Ints where it can be: an Int
// base to a non-negative Int exponent yields an Int; a zero base to a
// negative exponent is a ZeroDivisionError; everything else goes
// through the float path.
func (vm *VM) powValues(a, b Ref) (Ref, error) {
	ao, bo := vm.arena.Get(a), vm.arena.Get(b)
	if ao.hdr.kind == KindInt && bo.hdr.kind == KindInt {
		if bo.ival >= 0 {
			return vm.newInt(intPow(ao.ival, bo.ival)), nil
		}
		if ao.ival == 0 {
			return NullRef, vm.runtimeError(ZeroDivisionError, "zero to a negative power")
		}
		return vm.newReal(math.Pow(float64(ao.ival), float64(bo.ival))), nil
	}
	base, exp := vm.realOf(a), vm.realOf(b)
	if base == 0 && exp < 0 {
		return NullRef, vm.runtimeError(ZeroDivisionError, "zero to a negative power")
	}
	return vm.newReal(math.Pow(base, exp)), nil
}

func (vm *VM) kindOf(r Ref) Kind {
	if r.IsNull() {
		return KindPair // null counts as the empty list for pair?-style checks
	}
	return vm.arena.Get(r).hdr.kind
}

func (vm *VM) foldExtreme(args []Ref, wantMin bool) Ref {
	best := args[0]
	for _, a := range args[1:] {
		if (vm.realOf(a) < vm.realOf(best)) == wantMin {
			best = a
		}
	}
	return best
}

func (vm *VM) bitFold(args []Ref, f func(a, b int64) int64, identity int64) Ref {
	acc := identity
	for _, a := range args {
		acc = f(acc, vm.arena.Get(a).ival)
	}
	return vm.newInt(acc)
}

func (vm *VM) chainCompare(args []Ref, cmp func(a, b float64) bool) bool {
	for i := 1; i < len(args); i++ {
		if !cmp(vm.realOf(args[i-1]), vm.realOf(args[i])) {
			return false
		}
	}
	return true
}

func (vm *VM) chainEqual(args []Ref, want bool) bool {
	for i := 1; i < len(args); i++ {
		if vm.valuesEqual(args[i-1], args[i]) != want {
			return false
		}
	}
	return true
}

// isPureValue implements `pure?`: true for every built-in tagged Pure
// or HeadPure, and for a user lambda whose compiled body never calls
// a built-in not tagged Pure or any non-built-in procedure, and never
// uses set!, apply, eval, map or unquote (tracked by the compiler as
// FuncProto.Pure). Native procedures and all other values are false.
func (vm *VM) isPureValue(v Ref) bool {
	obj := vm.arena.Get(v)
	if obj.hdr.kind == KindSymbol && IsBuiltin(obj.sym) {
		return Signature(obj.sym).purity != Impure
	}
	if obj.hdr.kind != KindLambda {
		return false
	}
	if obj.hdr.has(flagExternal) {
		return false
	}
	fn := vm.modules[obj.lambdaModule].program.Funcs[obj.funcIndex]
	return fn.Pure
}
