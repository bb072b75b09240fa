package slang

import "fmt"

// ErrorKind names one of the error categories spec.md §7 enumerates.
type ErrorKind string

const (
	SyntaxError       ErrorKind = "SyntaxError"
	TypeError         ErrorKind = "TypeError"
	ArityError        ErrorKind = "ArityError"
	ReservedError     ErrorKind = "ReservedError"
	RedefinedError    ErrorKind = "RedefinedError"
	DefError          ErrorKind = "DefError"
	LetRecError       ErrorKind = "LetRecError"
	CaseError         ErrorKind = "CaseError"
	HashError         ErrorKind = "HashError"
	KeyError          ErrorKind = "KeyError"
	IndexError        ErrorKind = "IndexError"
	ZeroDivisionError ErrorKind = "ZeroDivisionError"
	AssertError       ErrorKind = "AssertError"
	UnwrapError       ErrorKind = "UnwrapError"
	ParseError        ErrorKind = "ParseError"
	FileError         ErrorKind = "FileError"
	StreamError       ErrorKind = "StreamError"
	ImportError       ErrorKind = "ImportError"
	ExportError       ErrorKind = "ExportError"
	SetError          ErrorKind = "SetError"
	UndefinedError    ErrorKind = "UndefinedError"
	QuasiquoteError   ErrorKind = "QuasiquoteError"
	EvalError         ErrorKind = "EvalError"
	ApplyError        ErrorKind = "ApplyError"
	CompileError      ErrorKind = "CompileError"
)

// Location ties an error to the module and line/column it came from,
// so every error in the list is traceable to original source (§4.7).
type Location struct {
	ModuleName string
	Line       int
	Col        int
}

func (l Location) String() string {
	if l.ModuleName == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Col)
	}
	return fmt.Sprintf("%s:%d:%d", l.ModuleName, l.Line, l.Col)
}

// SlangError is the concrete error type every error kind in §7
// surfaces as. Parse/compile errors are collected and are
// non-recoverable within their compilation unit; run-time errors of
// this same type either propagate to the top level or are caught by
// the nearest `try` and converted to a None Maybe.
type SlangError struct {
	Kind     ErrorKind
	Message  string
	Location Location
}

func (e *SlangError) Error() string {
	return fmt.Sprintf("%s: %s @ %s", e.Kind, e.Message, e.Location)
}

func NewError(kind ErrorKind, loc Location, format string, args ...any) *SlangError {
	return &SlangError{Kind: kind, Message: fmt.Sprintf(format, args...), Location: loc}
}

// ErrorList accumulates errors the way the parser and compiler do:
// keep going, collect everything, report at the end.
type ErrorList struct {
	Errors []*SlangError
}

func (l *ErrorList) Add(e *SlangError) {
	l.Errors = append(l.Errors, e)
}

func (l *ErrorList) HasErrors() bool {
	return len(l.Errors) > 0
}

func (l *ErrorList) Error() string {
	if len(l.Errors) == 0 {
		return ""
	}
	s := l.Errors[0].Error()
	for _, e := range l.Errors[1:] {
		s += "\n" + e.Error()
	}
	return s
}
