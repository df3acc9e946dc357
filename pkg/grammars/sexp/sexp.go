// Package sexp provides a grammar for S-expressions with line comments.
//
//	source_file = { list | symbol | number | string | comment } .
//	list        = "(" { list | symbol | number | string | comment } ")" .
//
// Comments start with ';' and run to the end of the line. They may appear
// anywhere between tokens.
package sexp

import (
	"sync"

	"github.com/albertocavalcante/arbor/pkg/syntax"
)

// Symbols of the grammar.
const (
	SymbolEnd syntax.Symbol = iota
	SymbolLParen
	SymbolRParen
	SymbolSymbol
	SymbolNumber
	SymbolString
	SymbolComment
	SymbolSourceFile
	SymbolList
)

const (
	stateTop syntax.StateID = iota
	stateList
)

// Lexer states.
const (
	lexStart uint16 = iota
	lexSpace
	lexLParen
	lexRParen
	lexComment
	lexNumber
	lexSymbol
	lexString
	lexFraction
	lexStringEnd
	lexEscape
)

var (
	once     sync.Once
	language *syntax.Language
)

// Language returns the S-expression grammar.
func Language() *syntax.Language {
	once.Do(func() { language = build() })
	return language
}

func build() *syntax.Language {
	return &syntax.Language{
		Name:    "sexp",
		Version: syntax.LanguageVersion,
		SymbolMetadata: []syntax.SymbolMetadata{
			SymbolEnd:        {Name: "end"},
			SymbolLParen:     {Name: "("},
			SymbolRParen:     {Name: ")"},
			SymbolSymbol:     {Name: "symbol", Named: true},
			SymbolNumber:     {Name: "number", Named: true},
			SymbolString:     {Name: "string", Named: true},
			SymbolComment:    {Name: "comment", Named: true},
			SymbolSourceFile: {Name: "source_file", Named: true},
			SymbolList:       {Name: "list", Named: true},
		},
		RootSymbol:   SymbolSourceFile,
		LexStates:    lexStates(),
		LexModes:     []uint16{stateTop: lexStart, stateList: lexStart},
		ParseTable:   [][]syntax.ParseAction{stateTop: row(stateTop), stateList: row(stateList)},
		InitialState: stateTop,
	}
}

// row returns the actions for a state that accepts a sequence of items and
// either the end of input (top level) or a closing paren (inside a list).
func row(state syntax.StateID) []syntax.ParseAction {
	r := make([]syntax.ParseAction, SymbolList+1)
	for _, sym := range []syntax.Symbol{SymbolSymbol, SymbolNumber, SymbolString, SymbolList} {
		r[sym] = syntax.ParseAction{Type: syntax.ActionShift, State: state}
	}
	r[SymbolComment] = syntax.ParseAction{Type: syntax.ActionExtra}
	r[SymbolLParen] = syntax.ParseAction{Type: syntax.ActionOpen, Symbol: SymbolList, State: stateList}
	if state == stateTop {
		r[SymbolEnd] = syntax.ParseAction{Type: syntax.ActionAccept}
	} else {
		r[SymbolRParen] = syntax.ParseAction{Type: syntax.ActionClose}
		r[SymbolEnd] = syntax.ParseAction{Type: syntax.ActionClose, Symbol: SymbolRParen}
	}
	return r
}

type span = syntax.LexTransition

// symbolStart lists the bytes that may begin a symbol: printable ASCII
// other than digits, whitespace, parens, quotes, ';', '[', ']', '{', '}'
// and '|', plus every non-ASCII byte.
var symbolStart = []span{
	{Lo: '!', Hi: '!'},
	{Lo: '#', Hi: '&'},
	{Lo: '*', Hi: '+'},
	{Lo: '-', Hi: '/'},
	{Lo: ':', Hi: ':'},
	{Lo: '<', Hi: 'Z'},
	{Lo: '^', Hi: '_'},
	{Lo: 'a', Hi: 'z'},
	{Lo: '~', Hi: '~'},
	{Lo: 0x80, Hi: 0xff},
}

func to(next uint16, ranges ...span) []span {
	out := make([]span, len(ranges))
	for i, r := range ranges {
		r.Next = next
		out[i] = r
	}
	return out
}

func lexStates() []syntax.LexState {
	whitespace := []span{{Lo: '\t', Hi: '\n'}, {Lo: '\r', Hi: '\r'}, {Lo: ' ', Hi: ' '}}
	digits := span{Lo: '0', Hi: '9'}
	symbolRest := append(append([]span(nil), symbolStart...), digits)

	var start []span
	start = append(start, to(lexSpace, whitespace...)...)
	start = append(start, to(lexLParen, span{Lo: '(', Hi: '('})...)
	start = append(start, to(lexRParen, span{Lo: ')', Hi: ')'})...)
	start = append(start, to(lexComment, span{Lo: ';', Hi: ';'})...)
	start = append(start, to(lexNumber, digits)...)
	start = append(start, to(lexString, span{Lo: '"', Hi: '"'})...)
	start = append(start, to(lexSymbol, symbolStart...)...)

	return []syntax.LexState{
		lexStart:  {Transitions: start},
		lexSpace:  {Skip: true, Transitions: to(lexSpace, whitespace...)},
		lexLParen: {Accept: SymbolLParen},
		lexRParen: {Accept: SymbolRParen},
		lexComment: {
			Accept:      SymbolComment,
			Transitions: to(lexComment, span{Lo: 0x00, Hi: '\n' - 1}, span{Lo: '\n' + 1, Hi: 0xff}),
		},
		lexNumber: {
			Accept: SymbolNumber,
			Transitions: append(to(lexNumber, digits),
				to(lexFraction, span{Lo: '.', Hi: '.'})...),
		},
		lexFraction: {Accept: SymbolNumber, Transitions: to(lexFraction, digits)},
		lexSymbol:   {Accept: SymbolSymbol, Transitions: to(lexSymbol, symbolRest...)},
		lexString: {
			Transitions: append(
				to(lexString, span{Lo: 0x00, Hi: '"' - 1}, span{Lo: '"' + 1, Hi: '\\' - 1}, span{Lo: '\\' + 1, Hi: 0xff}),
				append(to(lexStringEnd, span{Lo: '"', Hi: '"'}), to(lexEscape, span{Lo: '\\', Hi: '\\'})...)...),
		},
		lexStringEnd: {Accept: SymbolString},
		lexEscape:    {Transitions: to(lexString, span{Lo: 0x00, Hi: 0xff})},
	}
}
