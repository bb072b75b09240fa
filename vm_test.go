package slang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run compiles and evaluates src as a single module, returning the
// value's display string (the same rendering cmd/slang prints),
// exactly the shape the teacher's own api_test.go used for its
// run(grammar, input string) helper.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	vm := NewVM(nil)
	mod, err := vm.LoadModule("test", src)
	if err != nil {
		return "", err
	}
	result, err := vm.Eval(mod)
	if err != nil {
		return "", err
	}
	return vm.Display(result), nil
}

func mustRun(t *testing.T, src string) string {
	t.Helper()
	out, err := run(t, src)
	require.NoError(t, err)
	return out
}

func TestArithmetic(t *testing.T) {
	cases := map[string]string{
		"(+ 1 2 3)":   "6",
		"(- 10 3 2)":  "5",
		"(* 2 3 4)":   "24",
		"(/ 100 5 2)": "10",
		"(- 5)":       "-5",
		"(/ 2)":       "0.5",
		"(mod 7 3)":   "1",
		"(mod -7 3)":  "2",
		"(mod 7 -3)":  "-2",
		"(+ 1 1.5)":   "2.5",
		"(< 1 2 3)":   "true",
		"(<= 1 1 2)":  "true",
		"(= 1 1.0)":   "true",
		"(/= 1 2)":    "true",
		"(& 12 10)":   "8",
		"(| 12 10)":   "14",
		"(abs -5)":    "5",
		"(min 3 1 2)": "1",
		"(max 3 1 2)": "3",
		"(pow 2 10)":  "1024",
		"(floor 2.7)": "2",
		"(ceil 2.1)":  "3",
	}
	for src, want := range cases {
		got := mustRun(t, src)
		assert.Equal(t, want, got, src)
	}
}

func TestPowStaysClosedOverInts(t *testing.T) {
	assert.Equal(t, "true", mustRun(t, "(int? (pow 2 10))"))
	assert.Equal(t, "1024", mustRun(t, "(pow 2 10)"))
	assert.Equal(t, "0.25", mustRun(t, "(pow 2 -2)"))
	assert.Equal(t, "true", mustRun(t, "(real? (pow 2.0 10))"))

	_, err := run(t, "(pow 0 -1)")
	require.Error(t, err)
	serr, ok := err.(*SlangError)
	require.True(t, ok)
	assert.Equal(t, ZeroDivisionError, serr.Kind)
}

func TestPrefixSugar(t *testing.T) {
	assert.Equal(t, "false", mustRun(t, "!true"))
	assert.Equal(t, "-5", mustRun(t, "(let ((x 5)) -x)"))
	assert.Equal(t, "0.5", mustRun(t, "(let ((x 2)) /x)"))
}

func TestZeroDivisionIsRuntimeError(t *testing.T) {
	_, err := run(t, "(/ 1 0)")
	require.Error(t, err)
	serr, ok := err.(*SlangError)
	require.True(t, ok)
	assert.Equal(t, ZeroDivisionError, serr.Kind)
}

// S1 — tail recursion doesn't overflow the Go call stack, because
// RECURSE re-enters the same bytecode block without growing
// vm.frames (spec.md §8.3 S1).
func TestTailRecursionS1(t *testing.T) {
	got := mustRun(t, `
		(def (loop n) (if (= n 0) 'done (loop (- n 1))))
		(loop 200000)
	`)
	assert.Equal(t, "done", got)
}

// Mutual tail calls go through RETCALL rather than RECURSE; both the
// call-frame stack and the argument stack must stay O(1).
func TestMutualTailRecursion(t *testing.T) {
	got := mustRun(t, `
		(def (even? n) (if (= n 0) true (odd? (- n 1))))
		(def (odd? n) (if (= n 0) false (even? (- n 1))))
		(even? 100000)
	`)
	assert.Equal(t, "true", got)
}

// S2 — closures capture their enclosing `let` binding by reference,
// not by value; each call to the returned lambda mutates the same
// heap Env (spec.md §8.3 S2).
func TestClosureCaptureS2(t *testing.T) {
	got := mustRun(t, `
		(def (make) (let ((x 0)) (& () (set! x (+ x 1)) x)))
		(def c (make))
		(c) (c) (c)
	`)
	assert.Equal(t, "3", got)
}

func TestClosuresAreIndependent(t *testing.T) {
	got := mustRun(t, `
		(def (make) (let ((x 0)) (& () (set! x (+ x 1)) x)))
		(def a (make))
		(def b (make))
		(a) (a) (b)
		(list (a) (b))
	`)
	assert.Equal(t, "(3 2)", got)
}

// S3 — case dispatch via the precomputed CASE_JUMP table, including
// falling through to `else` (spec.md §8.3 S3).
func TestCaseDispatchS3(t *testing.T) {
	assert.Equal(t, "2", mustRun(t, "(case 'b ((a) 1) ((b c) 2) (else 3))"))
	assert.Equal(t, "3", mustRun(t, "(case 99 ((a) 1) ((b c) 2) (else 3))"))
	assert.Equal(t, "two", mustRun(t, `(case 2 ((1) 'one) ((2) 'two) (else 'many))`))
	assert.Equal(t, "hit", mustRun(t, `(case "k" (("k") 'hit) (else 'miss))`))
	// no else and no match yields null
	assert.Equal(t, "()", mustRun(t, "(case 9 ((1) 'one))"))
}

// S4 — quasiquote with both unquote and unquote-splicing.
func TestQuasiquoteS4(t *testing.T) {
	got := mustRun(t, "`(1 ,(+ 1 1) @(list 3 4) 5)")
	assert.Equal(t, "(1 2 3 4 5)", got)
}

func TestQuasiquoteNesting(t *testing.T) {
	// inner quasiquote shields its unquote by one level
	assert.Equal(t, "(quasiquote (unquote x))", mustRun(t, "``,x"))
	// quasiquote with every element unquoted equals list (spec.md §8.2)
	assert.Equal(t, "(1 2 3)", mustRun(t, "`(,(+ 0 1) ,(+ 1 1) ,(+ 1 2))"))
}

// S5 — try converts a runtime error into a None Maybe and leaves a
// Some on the success path; unwrap extracts the payload.
func TestTryS5(t *testing.T) {
	assert.Equal(t, "?<>", mustRun(t, "(try (/ 1 0))"))
	assert.Equal(t, "?<42>", mustRun(t, "(try 42)"))
	assert.Equal(t, "42", mustRun(t, "(unwrap (try 42))"))
}

func TestTryRestoresStackAndCatchesDeepErrors(t *testing.T) {
	// the error is raised three calls deep; try must unwind all of it
	got := mustRun(t, `
		(def (boom) (/ 1 0))
		(def (middle) (boom))
		(list 1 (try (middle)) 2)
	`)
	assert.Equal(t, "(1 ?<> 2)", got)
}

func TestUnwrapOfEmptyMaybeIsError(t *testing.T) {
	_, err := run(t, "(unwrap (try (/ 1 0)))")
	require.Error(t, err)
	serr, ok := err.(*SlangError)
	require.True(t, ok)
	assert.Equal(t, UnwrapError, serr.Kind)
}

func TestAndOrNot(t *testing.T) {
	assert.Equal(t, "false", mustRun(t, "(and true false)"))
	assert.Equal(t, "true", mustRun(t, "(or false true)"))
	assert.Equal(t, "false", mustRun(t, "(not true)"))
	// short-circuit: the division never runs
	assert.Equal(t, "false", mustRun(t, "(and false (/ 1 0))"))
	assert.Equal(t, "true", mustRun(t, "(or true (/ 1 0))"))
}

func TestLetAndLetrec(t *testing.T) {
	assert.Equal(t, "3", mustRun(t, "(let ((x 1) (y 2)) (+ x y))"))
	assert.Equal(t, "120", mustRun(t, `
		(letrec ((fact (& (n) (if (= n 0) 1 (* n (fact (- n 1)))))))
			(fact 5))
	`))
}

func TestLetRecForwardReferenceIsCompileError(t *testing.T) {
	vm := NewVM(nil)
	_, err := vm.LoadModule("test", "(letrec ((a b) (b 1)) a)")
	require.Error(t, err)
	list, ok := err.(*ErrorList)
	require.True(t, ok)
	assert.Equal(t, LetRecError, list.Errors[0].Kind)
}

func TestNamedLet(t *testing.T) {
	got := mustRun(t, `
		(let loop ((n 5) (acc 1))
			(if (= n 0) acc (loop (- n 1) (* acc n))))
	`)
	assert.Equal(t, "120", got)
}

func TestVariadicLambda(t *testing.T) {
	assert.Equal(t, "(1 2 3)", mustRun(t, "((& args args) 1 2 3)"))
	assert.Equal(t, "(1 (2 3))", mustRun(t, "((& (a . rest) (list a rest)) 1 2 3)"))
}

func TestListAndVectorBuiltins(t *testing.T) {
	assert.Equal(t, "(1 2 3)", mustRun(t, "(list 1 2 3)"))
	assert.Equal(t, "1", mustRun(t, "(left (pair 1 2))"))
	assert.Equal(t, "2", mustRun(t, "(right (pair 1 2))"))
	assert.Equal(t, "(1 . 2)", mustRun(t, "(pair 1 2)"))
	assert.Equal(t, "(1 2 3 4)", mustRun(t, "(++ (list 1 2) (list 3 4))"))
	assert.Equal(t, "3", mustRun(t, "(list-ref (list 1 2 3) 2)"))
	assert.Equal(t, "#(1 2 3)", mustRun(t, "(vec 1 2 3)"))
	assert.Equal(t, "2", mustRun(t, "(vec-ref (vec 1 2 3) 1)"))
	assert.Equal(t, "#(0 0)", mustRun(t, "(vec-alloc 2 0)"))
	assert.Equal(t, "#(1 2 9)", mustRun(t, "(let ((v (vec 1 2))) (vec-app! v 9) v)"))
	assert.Equal(t, "9", mustRun(t, "(let ((v (vec 1 9))) (vec-pop! v))"))
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "#(1 2 3)", mustRun(t, "#(1 2 3)"))
	// literal contents are constants, never evaluated
	assert.Equal(t, "#((+ 1 2))", mustRun(t, "#((+ 1 2))"))
}

func TestBracketStyles(t *testing.T) {
	assert.Equal(t, "3", mustRun(t, "[+ 1 2]"))
	assert.Equal(t, "3", mustRun(t, "{+ 1 2}"))
	assert.Equal(t, "3", mustRun(t, "(let [(x 1) (y 2)] {+ x y})"))

	vm := NewVM(nil)
	_, err := vm.LoadModule("test", "(+ 1 2]")
	require.Error(t, err)
}

func TestStringBuiltins(t *testing.T) {
	assert.Equal(t, "97", mustRun(t, `(str-ref "abc" 0)`))
	assert.Equal(t, "abcd", mustRun(t, `
		(let ((s (str-join (list "ab" "c") "")))
			(str-app! s "d")
			s)
	`))
	assert.Equal(t, "(a b c)", mustRun(t, `(str-split "a,b,c" ",")`))
	assert.Equal(t, "a-b", mustRun(t, `(str-join (list "a" "b") "-")`))
}

func TestConstantMutationRaisesSetError(t *testing.T) {
	for _, src := range []string{
		"(set-left! '(1 2) 9)",
		"(set-right! '(1 2) 9)",
		`(str-app! "abc" "d")`,
		"(vec-set! #(1 2) 0 9)",
	} {
		_, err := run(t, src)
		require.Error(t, err, src)
		serr, ok := err.(*SlangError)
		require.True(t, ok, src)
		assert.Equal(t, SetError, serr.Kind, src)
	}
	// and try converts it like any other runtime error
	assert.Equal(t, "?<>", mustRun(t, "(try (set-left! '(1 2) 9))"))
}

func TestMapBuiltin(t *testing.T) {
	assert.Equal(t, "(1 4 9)", mustRun(t, "(map (& (x) (* x x)) (list 1 2 3))"))
	// multiple lists, stopping at the shortest
	assert.Equal(t, "(11 22)", mustRun(t, "(map + (list 1 2) (list 10 20 30))"))
}

func TestApplyAndBuiltinsAsValues(t *testing.T) {
	assert.Equal(t, "6", mustRun(t, "(apply + (list 1 2 3))"))
	assert.Equal(t, "10", mustRun(t, "(apply + 1 2 (list 3 4))"))
	assert.Equal(t, "3", mustRun(t, "((& (f) (f 1 2)) +)"))
}

func TestEvalQuote(t *testing.T) {
	assert.Equal(t, "3", mustRun(t, "(eval '(+ 1 2))"))
	// eval (quote e) = e structurally (spec.md §8.2)
	assert.Equal(t, "(1 2 3)", mustRun(t, "(eval '(quote (1 2 3)))"))
	assert.Equal(t, "x", mustRun(t, "(eval ''x)"))
}

func TestIsVsEq(t *testing.T) {
	assert.Equal(t, "true", mustRun(t, "(is 1 1)"))
	assert.Equal(t, "false", mustRun(t, "(is 1 1.0)"))
	assert.Equal(t, "false", mustRun(t, "(is '(1) '(1))"))
	assert.Equal(t, "true", mustRun(t, "(= '(1 2) '(1 2))"))
	assert.Equal(t, "true", mustRun(t, "(let ((x '(1))) (is x x))"))
}

func TestTypePredicates(t *testing.T) {
	cases := map[string]string{
		"(null? '())":      "true",
		"(null? 0)":        "false",
		"(int? 1)":         "true",
		"(real? 1.5)":      "true",
		"(num? 1.5)":       "true",
		"(str? \"x\")":     "true",
		"(pair? '(1))":     "true",
		"(proc? (& () 1))": "true",
		"(vec? #(1))":      "true",
		"(maybe? (try 1))": "true",
	}
	for src, want := range cases {
		assert.Equal(t, want, mustRun(t, src), src)
	}
}

func TestPureAnalysis(t *testing.T) {
	assert.Equal(t, "true", mustRun(t, "(pure? (& (x) (+ x 1)))"))
	assert.Equal(t, "false", mustRun(t, "(pure? (& (x) (print x)))"))
	// dynamic path: the operand is a symbol bound at run time
	assert.Equal(t, "true", mustRun(t, "(def (id x) x) (pure? id)"))
	assert.Equal(t, "false", mustRun(t, "(def (shout x) (print x)) (pure? shout)"))
}

func TestDictBuiltins(t *testing.T) {
	assert.Equal(t, "1", mustRun(t, `
		(let ((d (dict)))
			(dict-set! d "a" 1)
			(dict-set! d 2 3)
			(unwrap (dict-get d "a")))
	`))
	assert.Equal(t, "missing", mustRun(t, "(dict-get (dict) 99 'missing)"))
	assert.Equal(t, "?<>", mustRun(t, `
		(let ((d (dict)))
			(dict-set! d 'k 1)
			(dict-pop! d 'k)
			(dict-get d 'k))
	`))
}

// S6 — import exposes only what a module exports; an exported
// *function* must still run correctly when invoked from the importing
// module, which exercises a call on a Lambda value whose bytecode
// lives in a different module's Program (spec.md §8.3 S6).
func TestImportExportS6(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "a.sl"), []byte(`
		(def secret 7)
		(def public 8)
		(def (double x) (* x 2))
		(export public)
		(export double)
	`), 0644)
	require.NoError(t, err)

	cfg := NewConfig()
	cfg.SetString("module.search_paths", dir)
	vm := NewVM(cfg)
	mod, err := vm.LoadModule("main", `
		(import (a))
		(list public (bound? 'secret) (double 21))
	`)
	require.NoError(t, err)
	result, err := vm.Eval(mod)
	require.NoError(t, err)
	assert.Equal(t, "(8 false 42)", vm.Display(result))
}

func TestImportBuiltinGCModule(t *testing.T) {
	got := mustRun(t, `
		(import (slang gc))
		(collect)
		(proc? collect)
	`)
	assert.Equal(t, "true", got)
}

func TestDoubleExportIsCompileError(t *testing.T) {
	vm := NewVM(nil)
	_, err := vm.LoadModule("test", "(def x 1) (export x) (export x)")
	require.Error(t, err)
	list, ok := err.(*ErrorList)
	require.True(t, ok)
	assert.Equal(t, ExportError, list.Errors[0].Kind)
}

func TestDuplicateCaseKeyIsCompileError(t *testing.T) {
	vm := NewVM(nil)
	_, err := vm.LoadModule("test", "(case 1 ((a) 1) ((a) 2))")
	require.Error(t, err)
	list, ok := err.(*ErrorList)
	require.True(t, ok)
	assert.Equal(t, CaseError, list.Errors[0].Kind)
}

func compileErrKind(t *testing.T, src string) ErrorKind {
	t.Helper()
	vm := NewVM(nil)
	_, err := vm.LoadModule("test", src)
	require.Error(t, err, src)
	list, ok := err.(*ErrorList)
	require.True(t, ok, src)
	require.NotEmpty(t, list.Errors, src)
	return list.Errors[0].Kind
}

func TestRedefiningReservedNamesIsReservedError(t *testing.T) {
	for _, src := range []string{
		"(def + 5)",
		"(def (+ a b) a)",
		"(def if 1)",
		"(set! + 5)",
	} {
		assert.Equal(t, ReservedError, compileErrKind(t, src), src)
	}
	// a parameter shadowing a builtin name is still assignable
	assert.Equal(t, "5", mustRun(t, "((& (max) (set! max 5) max) 1)"))
}

func TestDuplicateNamesAreRedefinedError(t *testing.T) {
	for _, src := range []string{
		"((& (x x) x) 1 2)",
		"(def (f x x) x)",
		"(let ((x 1) (x 2)) x)",
		"(letrec ((x 1) (x 2)) x)",
		"(def (f) 1) (def (f) 2)",
	} {
		assert.Equal(t, RedefinedError, compileErrKind(t, src), src)
	}
}

func TestUndefinedVariableError(t *testing.T) {
	_, err := run(t, "nope")
	require.Error(t, err)
	serr, ok := err.(*SlangError)
	require.True(t, ok)
	assert.Equal(t, UndefinedError, serr.Kind)
}

func TestArityError(t *testing.T) {
	_, err := run(t, "((& (a b) a) 1)")
	require.Error(t, err)
	serr, ok := err.(*SlangError)
	require.True(t, ok)
	assert.Equal(t, ArityError, serr.Kind)
}
