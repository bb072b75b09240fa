package slang

// CallFrame is one activation record on the VM's call-frame stack
// (spec.md §3.3 / §4.6). argsFrame is the base index into the shared
// argument stack where this call's (already arity-checked) parameters
// begin; ownLocalsInEnv mirrors the callee FuncProto's NeedsEnv bit so
// GET_LOCAL/SET_LOCAL don't need to re-look-up the proto on every
// instruction.
type CallFrame struct {
	funcIndex      int32
	argsFrame      int
	env            Ref
	capturedEnv    Ref // parent env this invocation's lambda closed over
	ownLocalsInEnv bool
	globalEnv      Ref
	retAddr        int
	moduleIndex    int
}

// TryFrame records the rollback point for a `try` block (spec.md
// §4.6's error-to-Maybe conversion): the bytecode address to resume
// at, and the stack/frame depths to restore to before wrapping the
// caught error as a Maybe-null.
type TryFrame struct {
	gotoAddr       int
	stackSize      int
	callFrameDepth int
}
