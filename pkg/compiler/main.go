// Package compiler provides the lexer, parser and code generator for a small
// statement language that targets the stack VM described in package vm.
//
// Pipeline: source → Lex → Parse → Generate → VM assembly text
package compiler
