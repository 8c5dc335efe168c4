package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// LexErrorKind classifies a failure of the Lexer.
type LexErrorKind int

const (
	UnterminatedString LexErrorKind = iota
	UnexpectedCharacter
	UnterminatedComment
)

func (k LexErrorKind) String() string {
	switch k {
	case UnterminatedString:
		return "UnterminatedString"
	case UnexpectedCharacter:
		return "UnexpectedCharacter"
	case UnterminatedComment:
		return "UnterminatedComment"
	}
	return fmt.Sprintf("LexErrorKind(%d)", int(k))
}

// LexError reports the first position at which the source could not be
// tokenized.
type LexError struct {
	Kind LexErrorKind
	Pos  Position
	Char rune // offending character, for UnexpectedCharacter
}

func (e *LexError) Error() string {
	switch e.Kind {
	case UnterminatedString:
		return fmt.Sprintf("%s: unterminated string literal", e.Pos)
	case UnterminatedComment:
		return fmt.Sprintf("%s: unterminated block comment", e.Pos)
	default:
		return fmt.Sprintf("%s: unexpected character %q", e.Pos, e.Char)
	}
}

// ParseErrorKind classifies a failure of the Parser.
type ParseErrorKind int

const (
	ExpectedToken ParseErrorKind = iota
	InvalidAssignmentTarget
	UnexpectedEndOfInput
	InvalidNumber
)

func (k ParseErrorKind) String() string {
	switch k {
	case ExpectedToken:
		return "ExpectedToken"
	case InvalidAssignmentTarget:
		return "InvalidAssignmentTarget"
	case UnexpectedEndOfInput:
		return "UnexpectedEndOfInput"
	case InvalidNumber:
		return "InvalidNumber"
	}
	return fmt.Sprintf("ParseErrorKind(%d)", int(k))
}

// ParseError reports the first grammar violation.
//
// Expected names what the grammar required at Pos: a token type name such as
// "RPAREN" or a grammar category such as "expression". Actual is the token
// that was found instead.
type ParseError struct {
	Kind     ParseErrorKind
	Expected string
	Actual   Token
	Pos      Position
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case InvalidAssignmentTarget:
		return fmt.Sprintf("%s: invalid assignment target", e.Pos)
	case UnexpectedEndOfInput:
		return fmt.Sprintf("%s: unexpected end of input, expected %s", e.Pos, e.Expected)
	case InvalidNumber:
		return fmt.Sprintf("%s: invalid number %q", e.Pos, e.Actual.Lexeme)
	default:
		return fmt.Sprintf("%s: expected %s, got %s (%q)", e.Pos, e.Expected, e.Actual.Type, e.Actual.Lexeme)
	}
}

// CodegenErrorKind classifies a failure of the code generator.
type CodegenErrorKind int

const (
	UndefinedVariable CodegenErrorKind = iota
	UndefinedFunction
	InvalidTarget
	DuplicateFunction
	ArityMismatch
)

func (k CodegenErrorKind) String() string {
	switch k {
	case UndefinedVariable:
		return "UndefinedVariable"
	case UndefinedFunction:
		return "UndefinedFunction"
	case InvalidTarget:
		return "InvalidAssignmentTarget"
	case DuplicateFunction:
		return "DuplicateFunction"
	case ArityMismatch:
		return "ArityMismatch"
	}
	return fmt.Sprintf("CodegenErrorKind(%d)", int(k))
}

// CodegenError reports a program that parsed but cannot be translated.
type CodegenError struct {
	Kind CodegenErrorKind
	Name string // variable or function involved, if any
	Pos  Position
	Msg  string // extra detail, e.g. expected and actual argument counts
}

func (e *CodegenError) Error() string {
	var msg string
	switch e.Kind {
	case UndefinedVariable:
		msg = fmt.Sprintf("undefined variable %q", e.Name)
	case UndefinedFunction:
		msg = fmt.Sprintf("undefined function %q", e.Name)
	case InvalidTarget:
		msg = "invalid assignment target"
	case DuplicateFunction:
		msg = fmt.Sprintf("function %q declared more than once", e.Name)
	case ArityMismatch:
		msg = fmt.Sprintf("wrong number of arguments to %q", e.Name)
	default:
		msg = e.Kind.String()
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Pos, msg)
}

// ErrorPos extracts the source position carried by any of the compiler's
// error types, looking through wrapped errors.
func ErrorPos(err error) (Position, bool) {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		return lexErr.Pos, true
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Pos, true
	}
	var cgErr *CodegenError
	if errors.As(err, &cgErr) {
		return cgErr.Pos, true
	}
	return Position{}, false
}

// Excerpt renders the source line containing pos with a caret under the
// offending column:
//
//	3| var x = 1 $ 2;
//	             ^
func Excerpt(src string, pos Position) string {
	lines := strings.Split(src, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return ""
	}
	text := strings.TrimRight(lines[pos.Line-1], "\r")
	prefix := fmt.Sprintf("%d| ", pos.Line)

	col := max(pos.Col, 1)
	var pad strings.Builder
	pad.WriteString(strings.Repeat(" ", len(prefix)))
	for i, r := range []rune(text) {
		if i >= col-1 {
			break
		}
		// keep tabs so the caret lines up under the same terminal column
		if r == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	return prefix + text + "\n" + pad.String() + "^"
}
