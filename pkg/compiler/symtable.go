package compiler

import (
	"fmt"
	"sort"
	"strings"
)

type ScopeType int

const (
	ScopeGlobal ScopeType = iota
	ScopeLocal
)

func (s ScopeType) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "local"
}

// Symbol is the storage slot a variable name is bound to.
type Symbol struct {
	Name  string
	Slot  int // global index, or index within the current frame
	Scope ScopeType
}

type scope struct {
	kind  ScopeType
	names map[string]Symbol
}

// frame is the per-function allocation state saved by EnterFunction.
type frame struct {
	scopes    []*scope
	nextLocal int
	frameSize int
}

// SymbolTable maps variable names to storage slots.
//
// It is a stack of scopes. Scopes opened outside any function hand out
// global slots; scopes opened inside a function hand out frame-local slots.
// Lookup walks from the innermost scope outwards, so inner declarations
// shadow outer ones. A function body sees the global scopes that were open
// at its declaration but never the locals of an enclosing function.
type SymbolTable struct {
	scopes []*scope

	// Next available slots; slots are never reused within a program/frame.
	nextGlobal int
	nextLocal  int
	frameSize  int

	saved []frame // frames of enclosing functions
}

func NewSymbolTable() *SymbolTable {
	s := &SymbolTable{}
	s.scopes = []*scope{{kind: ScopeGlobal, names: make(map[string]Symbol)}}
	return s
}

// inFunction returns true if we are inside a function.
func (s *SymbolTable) inFunction() bool {
	return len(s.saved) > 0
}

// EnterScope opens a nested scope for a block.
func (s *SymbolTable) EnterScope() {
	kind := ScopeGlobal
	if s.inFunction() {
		kind = ScopeLocal
	}
	s.scopes = append(s.scopes, &scope{kind: kind, names: make(map[string]Symbol)})
}

// ExitScope closes the innermost scope, dropping every name it declared.
func (s *SymbolTable) ExitScope() {
	if len(s.scopes) <= 1 {
		panic("ExitScope called without matching EnterScope")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// EnterFunction starts a new frame whose first slots are the parameters, in
// order. Only global scopes stay visible.
func (s *SymbolTable) EnterFunction(params []string) {
	s.saved = append(s.saved, frame{scopes: s.scopes, nextLocal: s.nextLocal, frameSize: s.frameSize})

	var visible []*scope
	for _, sc := range s.scopes {
		if sc.kind == ScopeGlobal {
			visible = append(visible, sc)
		}
	}
	s.scopes = append(visible, &scope{kind: ScopeLocal, names: make(map[string]Symbol)})
	s.nextLocal = 0
	s.frameSize = 0

	for _, name := range params {
		s.Declare(name)
	}
}

// ExitFunction restores the enclosing frame and returns the number of slots
// the finished frame needs.
func (s *SymbolTable) ExitFunction() int {
	if !s.inFunction() {
		panic("ExitFunction called outside function")
	}
	size := s.frameSize
	f := s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
	s.scopes = f.scopes
	s.nextLocal = f.nextLocal
	s.frameSize = f.frameSize
	return size
}

// Declare binds name to a fresh slot in the CURRENT scope. Declaring a name
// twice in one scope rebinds it to the new slot.
func (s *SymbolTable) Declare(name string) Symbol {
	cur := s.scopes[len(s.scopes)-1]
	sym := Symbol{Name: name, Scope: cur.kind}
	if cur.kind == ScopeLocal {
		sym.Slot = s.nextLocal
		s.nextLocal++
		s.frameSize = max(s.frameSize, s.nextLocal)
	} else {
		sym.Slot = s.nextGlobal
		s.nextGlobal++
	}
	cur.names[name] = sym
	return sym
}

// Lookup returns the symbol and whether it was found.
func (s *SymbolTable) Lookup(name string) (Symbol, bool) {
	// Search from top of stack down
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if sym, ok := s.scopes[i].names[name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// Depth is the number of open scopes, including the outermost global scope.
func (s *SymbolTable) Depth() int {
	return len(s.scopes)
}

// Globals is the number of global slots handed out so far.
func (s *SymbolTable) Globals() int {
	return s.nextGlobal
}

// String returns a deterministically ordered dump of the visible scopes.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Globals: %d slot(s)\n", s.nextGlobal)
	for i, sc := range s.scopes {
		fmt.Fprintf(&sb, "  Scope %d (%s):\n", i, sc.kind)
		names := make([]string, 0, len(sc.names))
		for name := range sc.names {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "    %-20s  Slot: %d\n", name, sc.names[name].Slot)
		}
	}
	return sb.String()
}
