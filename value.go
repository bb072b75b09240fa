package slang

// Kind tags the runtime type of a heap object. Null is deliberately
// absent: per spec.md §3.1 it is represented by the Ref sentinel
// NullRef (-1), never as an object on the heap.
type Kind uint8

const (
	KindInt Kind = iota
	KindReal
	KindBool
	KindSymbol
	KindEOF
	KindMaybe
	KindPair
	KindVector
	KindString
	KindDict
	KindEnv
	KindParams
	KindLambda
	KindStorage
	KindDictTable
	KindStream
)

func (k Kind) String() string {
	names := [...]string{
		"Int", "Real", "Bool", "Symbol", "EndOfFile", "Maybe", "List",
		"Vector", "String", "Dict", "Env", "Params", "Lambda",
		"Storage", "DictTable", "Stream",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// header flags, reused across kinds the way the original SlangHeader
// packs a single flag byte (§3.1): maybe-occupied, variadic, closure,
// external, is-file. A fifth bit, forwarded, is GC-private and never
// observed outside arena.go/gc.go.
const (
	flagMaybeOccupied uint8 = 1 << iota
	flagVariadic
	flagClosure
	flagExternal
	flagIsFile
	flagForwarded
	// flagConst marks an object materialized at compile time (a quoted
	// list, a vector literal, a string literal). The in-place mutators
	// refuse to touch these (spec.md §5's SetError contract).
	flagConst
)

type header struct {
	kind  Kind
	flags uint8
	// size is reused per kind: element count for Vector/Params,
	// byte length for String, mapping size for Dict/DictTable,
	// occupied-entry count for Env.
	size uint32
}

func (h header) has(f uint8) bool { return h.flags&f != 0 }

// Ref is a handle into the arena: (nothing but an index). NullRef
// (-1, not the zero value: Ref(0) is the arena's first object) plays
// the role of spec.md's null reference.
type Ref int32

const NullRef Ref = -1

func (r Ref) IsNull() bool { return r == NullRef }

// envSlot is one (symbol, value) mapping inside an Env block.
type envSlot struct {
	sym SymbolName
	val Ref
}

// EnvBlockSize is K from spec.md §3.4.
const EnvBlockSize = 4

// NativeFunc is the signature of an external/native procedure body
// (spec.md §4.6 "External/native procedures"): it reads its
// arguments off the current call frame via vm.GetArg and produces
// its result via a plain return.
type NativeFunc func(vm *VM) (Ref, error)

// object is the tagged union backing every heap value. It is
// intentionally a flat struct rather than an interface: the Cheney
// collector (gc.go) needs to copy objects by value between the two
// semispace slices, and a flat struct is what makes that a cheap
// slice append instead of a pointer-chasing deep copy.
type object struct {
	hdr header
	gc  gcExtra

	// scalars
	ival int64
	rval float64
	bval bool
	sym  SymbolName

	// Maybe
	maybePayload Ref

	// List (pair)
	left, right Ref

	// Vector / String / Dict: these three kinds are thin handles
	// pointing at a Storage object that owns the backing buffer,
	// per spec.md §3.1 ("storage behind an indirection").
	storage Ref
	table   Ref // Dict only: points at a DictTable object

	// Storage backing buffers (only one of these is populated,
	// depending on what storage object this is backing)
	elems []Ref  // Vector backing
	bytes []byte // String backing
	keys  []Ref  // Dict key slots (tombstone == NullRef after a pop)
	vals  []Ref  // Dict value slots, parallel to keys

	// DictTable backing: probe table, storageIdx per bucket, -1 empty,
	// -2 vacated by a pop
	slots []int32

	// Env
	envSlots [EnvBlockSize]envSlot
	next     Ref // spillover block in the same scope
	parent   Ref // lexical parent

	// Params
	params []SymbolName

	// Lambda
	funcIndex int32
	// lambdaModule is the index into VM.modules of the module whose
	// Program.Funcs funcIndex is looked up in — the module the lambda
	// was *defined* in, not (necessarily) the one calling it, since an
	// imported Lambda value keeps pointing at its origin module's
	// bytecode after `export`/`import` copies the binding across.
	lambdaModule int32
	env          Ref // NullRef unless flagClosure
	native       NativeFunc

	// Stream
	stream *streamState
}

func (o *object) isHashable() bool {
	switch o.hdr.kind {
	case KindEnv, KindParams, KindStorage, KindDictTable, KindDict, KindStream:
		return false
	default:
		return true
	}
}
