package slang

// Op is one bytecode instruction's opcode byte. The set and grouping
// follow spec.md §4.5 exactly; operand widths are a memory-safe
// rework of the original's raw-pointer/8-byte-pointer operands (see
// DESIGN.md): pointer-shaped operands become fixed-width indices into
// a Program's constant tables instead of addresses.
type Op byte

const (
	// Constants
	OpNoop Op = iota
	OpHalt
	OpNull
	OpBoolTrue
	OpBoolFalse
	OpZero
	OpOne
	OpLoadPtr   // <u32 const-table index>
	OpPushLambda // <u32 func-table index>

	// Variable access
	OpLookup    // <sym32>
	OpSet       // <sym32>
	OpGetLocal  // <u16 idx>
	OpSetLocal  // <u16 idx>
	OpGetGlobal // <sym32>
	OpSetGlobal // <sym32>
	OpDefGlobal // <sym32>
	OpGetRec    // <u16 idx>
	OpSetRec    // <u16 idx>

	// Call protocol
	OpPushFrame
	OpPopArg
	OpUnpack
	OpCopy
	OpCall       // <u16 argc>
	OpCallSym    // <sym16><u16 argc>
	OpRetCall    // <u16 argc>
	OpRetCallSym // <sym16><u16 argc>
	OpRet
	OpRecurse // <u16 argc>
	OpApply
	OpRetApply
	OpEvalForm

	// Control flow
	OpJump      // <i32 relative>
	OpCJumpPop  // <i32 relative>
	OpCNJumpPop // <i32 relative>
	OpCJump     // <i32 relative>
	OpCNJump    // <i32 relative>
	OpCaseJump  // <u32 case-table index>
	OpTry       // <i32 relative>
	OpTryEnd
	OpMaybeNull
	OpMaybeWrap
	OpMaybeUnwrap

	// Inlined built-ins
	OpNot
	OpInc
	OpDec
	OpNeg
	OpInvert
	OpAdd // <u16 n>
	OpSub // <u16 n>
	OpMul // <u16 n>
	OpDiv // <u16 n>
	OpEq
	OpPair
	OpListConcat // <u16 n>
	OpLeft
	OpRight
	OpSetLeft
	OpSetRight
	OpMakeVec
	OpVecGet
	OpVecSet

	// Module linking
	OpExport // <sym32>
	OpImport // <u32 import-list index>

	// Misc
	OpMapStep // <u16 n>
	OpPop

	opCount
)

var opNames = [opCount]string{
	OpNoop: "noop", OpHalt: "halt", OpNull: "null", OpBoolTrue: "bool_true",
	OpBoolFalse: "bool_false", OpZero: "zero", OpOne: "one",
	OpLoadPtr: "load_ptr", OpPushLambda: "push_lambda",
	OpLookup: "lookup", OpSet: "set", OpGetLocal: "get_local",
	OpSetLocal: "set_local", OpGetGlobal: "get_global",
	OpSetGlobal: "set_global", OpDefGlobal: "def_global",
	OpGetRec: "get_rec", OpSetRec: "set_rec",
	OpPushFrame: "push_frame", OpPopArg: "pop_arg", OpUnpack: "unpack",
	OpCopy: "copy", OpCall: "call", OpCallSym: "callsym",
	OpRetCall: "retcall", OpRetCallSym: "retcallsym", OpRet: "ret",
	OpRecurse: "recurse", OpApply: "apply", OpRetApply: "retapply",
	OpEvalForm: "eval_form",
	OpJump: "jump", OpCJumpPop: "cjump_pop", OpCNJumpPop: "cnjump_pop",
	OpCJump: "cjump", OpCNJump: "cnjump", OpCaseJump: "case_jump",
	OpTry: "try", OpTryEnd: "try_end", OpMaybeNull: "maybe_null", OpMaybeWrap: "maybe_wrap",
	OpMaybeUnwrap: "maybe_unwrap",
	OpNot: "not", OpInc: "inc", OpDec: "dec", OpNeg: "neg",
	OpInvert: "invert", OpAdd: "add", OpSub: "sub", OpMul: "mul",
	OpDiv: "div", OpEq: "eq", OpPair: "pair", OpListConcat: "list_concat",
	OpLeft: "left", OpRight: "right", OpSetLeft: "set_left!",
	OpSetRight: "set_right!", OpMakeVec: "make_vec", OpVecGet: "vec_get",
	OpVecSet: "vec_set",
	OpExport: "export", OpImport: "import",
	OpMapStep: "map_step", OpPop: "pop",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "unknown"
}

// opSize is the fixed number of operand bytes following each
// opcode's single byte; spec.md §4.5 requires these "tabulated once
// and never change".
var opSize = [opCount]int{
	OpNoop: 0, OpHalt: 0, OpNull: 0, OpBoolTrue: 0, OpBoolFalse: 0,
	OpZero: 0, OpOne: 0, OpLoadPtr: 4, OpPushLambda: 4,
	OpLookup: 4, OpSet: 4, OpGetLocal: 2, OpSetLocal: 2,
	OpGetGlobal: 4, OpSetGlobal: 4, OpDefGlobal: 4, OpGetRec: 2, OpSetRec: 2,
	OpPushFrame: 0, OpPopArg: 0, OpUnpack: 0, OpCopy: 0,
	OpCall: 2, OpCallSym: 4, OpRetCall: 2, OpRetCallSym: 4, OpRet: 0,
	OpRecurse: 2, OpApply: 0, OpRetApply: 0, OpEvalForm: 0,
	OpJump: 4, OpCJumpPop: 4, OpCNJumpPop: 4, OpCJump: 4, OpCNJump: 4,
	OpCaseJump: 4, OpTry: 4, OpTryEnd: 0, OpMaybeNull: 0, OpMaybeWrap: 0, OpMaybeUnwrap: 0,
	OpNot: 0, OpInc: 0, OpDec: 0, OpNeg: 0, OpInvert: 0,
	OpAdd: 2, OpSub: 2, OpMul: 2, OpDiv: 2, OpEq: 0, OpPair: 0,
	OpListConcat: 2, OpLeft: 0, OpRight: 0, OpSetLeft: 0, OpSetRight: 0,
	OpMakeVec: 0, OpVecGet: 0, OpVecSet: 0,
	OpExport: 4, OpImport: 4,
	OpMapStep: 2, OpPop: 0,
}

// InstrSize returns 1 (the opcode byte) plus op's operand width.
func InstrSize(op Op) int { return 1 + opSize[op] }
