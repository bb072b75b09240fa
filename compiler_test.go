package slang

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileProgram(t *testing.T, src string) *Program {
	t.Helper()
	vm := NewVM(nil)
	mod, err := vm.LoadModule("test", src)
	require.NoError(t, err)
	return mod.Program()
}

func disasmAll(p *Program) string {
	var b strings.Builder
	for _, fn := range p.Funcs {
		name := fn.Name
		if name == "" {
			name = "lambda"
		}
		b.WriteString(Disassemble(name, fn))
	}
	return b.String()
}

func TestSelfTailCallCompilesToRecurse(t *testing.T) {
	p := compileProgram(t, "(def (loop n) (if (= n 0) 'done (loop (- n 1))))")
	d := disasmAll(p)
	assert.Contains(t, d, "recurse")
	assert.NotContains(t, d, "retcall ")
}

func TestNonSelfTailCallCompilesToRetCall(t *testing.T) {
	p := compileProgram(t, "(def (f n) (g n))\n(def (g n) n)")
	d := disasmAll(p)
	assert.Contains(t, d, "retcall")
}

func TestArithFusion(t *testing.T) {
	p := compileProgram(t, "(def (f x) (+ x 1))")
	assert.Contains(t, disasmAll(p), "inc")

	p = compileProgram(t, "(def (f x) (- x 1))")
	assert.Contains(t, disasmAll(p), "dec")

	p = compileProgram(t, "(def (f x y) (+ x y))")
	d := disasmAll(p)
	assert.Contains(t, d, "add")
	assert.NotContains(t, d, "callsym")
}

func TestSmallIntConstantsFuse(t *testing.T) {
	p := compileProgram(t, "(def (f) (list 0 1))")
	d := disasmAll(p)
	assert.Contains(t, d, "zero")
	assert.Contains(t, d, "one")
}

func TestClosureFlagPropagation(t *testing.T) {
	p := compileProgram(t, "(def (make x) (& () x))")
	// both make's body fn and the inner lambda need a heap env
	needs := 0
	for _, fn := range p.Funcs {
		if fn.NeedsEnv {
			needs++
		}
	}
	assert.GreaterOrEqual(t, needs, 2)
}

func TestNoEnvForStackOnlyFunctions(t *testing.T) {
	p := compileProgram(t, "(def (f x y) (+ x y))")
	for _, fn := range p.Funcs {
		assert.False(t, fn.NeedsEnv, "plain arithmetic must keep locals on the stack")
	}
}

func TestOptimizerDropsPureIntermediates(t *testing.T) {
	p := compileProgram(t, "(def (f x) (+ x 1) x)")
	assert.NotContains(t, disasmAll(p), "inc", "a pure intermediate expression is dead code")

	// with the optimizer off it stays
	cfg := NewConfig()
	cfg.SetInt("compiler.optimize", 0)
	vm := NewVM(cfg)
	mod, err := vm.LoadModule("test", "(def (f x) (+ x 1) x)")
	require.NoError(t, err)
	assert.Contains(t, disasmAll(mod.Program()), "inc")
}

func TestOptimizerKeepsImpureIntermediates(t *testing.T) {
	p := compileProgram(t, "(def (f x) (print x) x)")
	assert.Contains(t, disasmAll(p), "callsym")
}

func TestCaseTableShape(t *testing.T) {
	p := compileProgram(t, "(case 'b ((a) 1) ((b c) 2) (else 3))")
	require.Len(t, p.Cases, 1)
	tbl := p.Cases[0]
	assert.Len(t, tbl.Keys, 3)
	assert.Len(t, tbl.Hashes, 3)
	assert.Len(t, tbl.Targets, 3)
	// keys `b` and `c` share one branch target
	assert.Equal(t, tbl.Targets[1], tbl.Targets[2])
	assert.NotEqual(t, tbl.Targets[0], tbl.Targets[1])
	assert.Greater(t, tbl.Default, 0)
}

func TestVariadicFlag(t *testing.T) {
	p := compileProgram(t, "(def (f a . rest) rest)")
	var fn *FuncProto
	for _, f := range p.Funcs {
		if f.Name == "f" {
			fn = f
		}
	}
	require.NotNil(t, fn)
	assert.True(t, fn.Variadic)
	assert.Len(t, fn.Params, 2)
}

func TestImportOnlyAtTopLevel(t *testing.T) {
	vm := NewVM(nil)
	_, err := vm.LoadModule("test", "(def (f) (import (a)))")
	require.Error(t, err)
	list, ok := err.(*ErrorList)
	require.True(t, ok)
	assert.Equal(t, ImportError, list.Errors[0].Kind)
}

func TestCompileErrorCarriesLocation(t *testing.T) {
	vm := NewVM(nil)
	_, err := vm.LoadModule("mod", "\n\n(if)")
	require.Error(t, err)
	list, ok := err.(*ErrorList)
	require.True(t, ok)
	require.NotEmpty(t, list.Errors)
	assert.Equal(t, "mod", list.Errors[0].Location.ModuleName)
	assert.Equal(t, 3, list.Errors[0].Location.Line)
}

func TestDisassembleRendersOperands(t *testing.T) {
	p := compileProgram(t, "(def (f x) (pair x 2))")
	d := disasmAll(p)
	assert.Contains(t, d, "get_local")
	assert.Contains(t, d, "pair")
	assert.Contains(t, d, "ret")
}
