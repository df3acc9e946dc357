package syntax

import (
	"errors"
	"fmt"
	"math"
)

// Symbol is a grammar symbol ID (terminal or nonterminal).
type Symbol uint16

// StateID is a parser state index.
type StateID uint16

const (
	// SymbolEnd is the terminal produced at the end of input.
	SymbolEnd Symbol = 0

	// SymbolError labels nodes that wrap unexpected input.
	SymbolError Symbol = math.MaxUint16
)

// ABI range of Language tables this runtime understands.
const (
	LanguageVersion              = 2
	MinCompatibleLanguageVersion = 1
)

// SymbolMetadata holds display information about a symbol.
type SymbolMetadata struct {
	Name  string
	Named bool
}

// LexTransition maps an inclusive byte range to a next lexer state.
type LexTransition struct {
	Lo, Hi byte
	Next   uint16
}

// LexState is one state in the byte-level lexer DFA.
//
// A state with a non-zero Accept symbol accepts that token. A Skip state
// accepts whitespace that becomes padding of the following token.
type LexState struct {
	Accept      Symbol
	Skip        bool
	Transitions []LexTransition
}

func (s *LexState) accepting() bool {
	return s.Accept != SymbolEnd || s.Skip
}

func (s *LexState) next(b byte) (uint16, bool) {
	for _, t := range s.Transitions {
		if b >= t.Lo && b <= t.Hi {
			return t.Next, true
		}
	}
	return 0, false
}

// ActionType identifies the kind of parse action.
type ActionType uint8

const (
	// ActionError is the zero action: the token is unexpected in this state.
	ActionError ActionType = iota

	// ActionShift appends the token to the node being built and moves the
	// parser to State. For nonterminals it is the goto taken after the
	// node is complete.
	ActionShift

	// ActionOpen starts a new Symbol node whose first child is the token;
	// the new node is parsed in State.
	ActionOpen

	// ActionClose appends the token and completes the innermost open node.
	// On SymbolEnd a non-zero Symbol names the token to insert as missing.
	ActionClose

	// ActionExtra appends the token without changing state.
	ActionExtra

	// ActionAccept completes the root node.
	ActionAccept
)

func (t ActionType) String() string {
	switch t {
	case ActionShift:
		return "shift"
	case ActionOpen:
		return "open"
	case ActionClose:
		return "close"
	case ActionExtra:
		return "extra"
	case ActionAccept:
		return "accept"
	default:
		return "error"
	}
}

// ParseAction is a single entry of the parse table.
type ParseAction struct {
	Type   ActionType
	State  StateID
	Symbol Symbol
}

// Language holds all data needed to parse a specific language.
//
// A Language is immutable once built and may be shared by any number of
// parsers and trees. Grammar authoring tools produce these tables; the
// runtime only consumes them.
type Language struct {
	Name    string
	Version uint32

	// SymbolMetadata is indexed by Symbol. Index 0 describes SymbolEnd.
	SymbolMetadata []SymbolMetadata

	// RootSymbol labels the node produced for a whole document.
	RootSymbol Symbol

	// LexStates is the lexer DFA. LexModes maps each parse state to the
	// lexer state that starts a token in it.
	LexStates []LexState
	LexModes  []uint16

	// ParseTable is indexed by [state][symbol]. Missing entries are errors.
	ParseTable [][]ParseAction

	InitialState StateID
}

// LanguageError reports a Language whose ABI version this runtime cannot run.
type LanguageError struct {
	Version uint32
}

func (e *LanguageError) Error() string {
	return fmt.Sprintf("incompatible language version %d, expected minimum %d and maximum %d",
		e.Version, MinCompatibleLanguageVersion, LanguageVersion)
}

// SymbolCount returns the number of symbols in the language.
func (l *Language) SymbolCount() int {
	return len(l.SymbolMetadata)
}

// SymbolName returns the display name of sym.
func (l *Language) SymbolName(sym Symbol) string {
	if sym == SymbolError {
		return "ERROR"
	}
	if int(sym) < len(l.SymbolMetadata) {
		return l.SymbolMetadata[sym].Name
	}
	return ""
}

// SymbolForName returns the first symbol with the given name.
func (l *Language) SymbolForName(name string, named bool) (Symbol, bool) {
	if name == "ERROR" {
		return SymbolError, true
	}
	for i, m := range l.SymbolMetadata {
		if m.Name == name && m.Named == named {
			return Symbol(i), true
		}
	}
	return 0, false
}

// IsNamed reports whether sym is a named symbol rather than anonymous syntax.
func (l *Language) IsNamed(sym Symbol) bool {
	if sym == SymbolError {
		return true
	}
	if int(sym) < len(l.SymbolMetadata) {
		return l.SymbolMetadata[sym].Named
	}
	return false
}

func (l *Language) action(state StateID, sym Symbol) ParseAction {
	if int(state) < len(l.ParseTable) {
		row := l.ParseTable[state]
		if int(sym) < len(row) {
			return row[sym]
		}
	}
	return ParseAction{}
}

func (l *Language) lexMode(state StateID) uint16 {
	if int(state) < len(l.LexModes) {
		return l.LexModes[state]
	}
	return 0
}

// Validate checks that the tables are internally consistent.
func (l *Language) Validate() error {
	var errs []error
	if len(l.SymbolMetadata) == 0 {
		errs = append(errs, errors.New("no symbols"))
	}
	if int(l.RootSymbol) >= len(l.SymbolMetadata) {
		errs = append(errs, fmt.Errorf("root symbol %d out of range", l.RootSymbol))
	}
	if len(l.LexModes) != len(l.ParseTable) {
		errs = append(errs, fmt.Errorf("%d lex modes for %d parse states", len(l.LexModes), len(l.ParseTable)))
	}
	if int(l.InitialState) >= len(l.ParseTable) {
		errs = append(errs, fmt.Errorf("initial state %d out of range", l.InitialState))
	}
	for state, mode := range l.LexModes {
		if int(mode) >= len(l.LexStates) {
			errs = append(errs, fmt.Errorf("parse state %d: lex mode %d out of range", state, mode))
		}
	}
	for i, ls := range l.LexStates {
		if int(ls.Accept) >= len(l.SymbolMetadata) {
			errs = append(errs, fmt.Errorf("lex state %d: accepts unknown symbol %d", i, ls.Accept))
		}
		for _, t := range ls.Transitions {
			if t.Lo > t.Hi {
				errs = append(errs, fmt.Errorf("lex state %d: empty range %#x-%#x", i, t.Lo, t.Hi))
			}
			if int(t.Next) >= len(l.LexStates) {
				errs = append(errs, fmt.Errorf("lex state %d: transition to unknown state %d", i, t.Next))
			}
		}
	}
	for state, row := range l.ParseTable {
		if len(row) > len(l.SymbolMetadata) {
			errs = append(errs, fmt.Errorf("parse state %d: %d entries for %d symbols", state, len(row), len(l.SymbolMetadata)))
		}
		for sym, a := range row {
			switch a.Type {
			case ActionShift, ActionOpen:
				if int(a.State) >= len(l.ParseTable) {
					errs = append(errs, fmt.Errorf("parse state %d, symbol %d: %s to unknown state %d", state, sym, a.Type, a.State))
				}
			}
			if a.Type == ActionOpen && int(a.Symbol) >= len(l.SymbolMetadata) {
				errs = append(errs, fmt.Errorf("parse state %d, symbol %d: opens unknown symbol %d", state, sym, a.Symbol))
			}
		}
	}
	return errors.Join(errs...)
}
