package slang

// Program is the output of the code writer (spec.md §4.5): one flat
// byte-encoded instruction stream per function, a constant pool for
// LOAD_PTR, a function table for PUSH_LAMBDA/CALL, and the precomputed
// case-jump tables CASE_JUMP indexes into. It plays the role of the
// teacher's vm_program.go Program/Bytecode pair, generalized from a
// single parsing program to one program per loaded module.
type Program struct {
	Funcs     []*FuncProto
	Constants []Ref
	Cases     []CaseTable
	Imports   [][]SymbolName

	// ModuleName identifies this program for error locations and for
	// filesystem-based re-import dedup (spec.md §9's module loader).
	ModuleName string
}

// FuncProto is one compiled function body: its bytecode, its declared
// parameters, and the flags the compiler computed while lowering it.
type FuncProto struct {
	Code     []byte
	Params   []SymbolName
	Variadic bool

	// NeedsEnv is spec.md §4.5's "closure" flag: set on a function
	// whose parameter is referenced from a nested lambda, and on every
	// function between that binder and the referencing lambda (the
	// referencing lambda included), forcing their parameters to live
	// in a heap Env at each call rather than directly on the argument
	// stack so the runtime parent chain is unbroken.
	NeedsEnv bool

	// IsRec marks a let/letrec-style synthetic function whose
	// GET_REC/SET_REC accesses were validated against forward
	// references at compile time (spec.md §4.5's currLetInit rule).
	IsRec bool

	// Pure records the compiler's purity analysis result for `pure?`
	// (spec.md §4.5's optional dead-pure-expression optimizer uses the
	// same analysis to drop side-effect-free statements in non-tail
	// position).
	Pure bool

	Name string // empty for anonymous lambdas; used by debug.go
}

// CaseTable is the precomputed hash-keyed dispatch table a `case`
// form compiles to (spec.md §4.5's CASE_JUMP): each entry maps one
// literal key to a jump target relative to the CASE_JUMP
// instruction's own position. Hashes are precomputed at compile time;
// dispatch only runs the structural-equality comparison against keys
// whose hash matches, the same bucket discipline a Dict uses.
type CaseTable struct {
	Keys    []Ref
	Hashes  []uint64
	Targets []int
	Default int
}

func (p *Program) addConst(v Ref) int {
	p.Constants = append(p.Constants, v)
	return len(p.Constants) - 1
}

func (p *Program) addFunc(fp *FuncProto) int32 {
	p.Funcs = append(p.Funcs, fp)
	return int32(len(p.Funcs) - 1)
}
