package syntax

// token is one lexed terminal. padding is the skipped text before it and
// lookahead counts the bytes past its end the lexer examined to find it.
type token struct {
	symbol    Symbol
	padding   Length
	size      Length
	lookahead uint32
}

func (t token) end(start Length) Length {
	return start.add(t.padding).add(t.size)
}

type lexer struct {
	language *Language
	src      *source
}

// lex scans the next token starting at pos using the DFA entered at mode.
// It reports false if the parse was halted while reading.
func (l *lexer) lex(pos Length, mode uint16) (token, bool) {
	l.src.releaseBefore(pos.Bytes)
	start := pos
	for {
		accept, acceptEnd, probeEnd, found := l.scan(pos, mode)
		if l.src.halted {
			return token{}, false
		}
		if found && accept.Skip {
			pos = acceptEnd
			continue
		}
		if found {
			return token{
				symbol:    accept.Accept,
				padding:   pos.sub(start),
				size:      acceptEnd.sub(pos),
				lookahead: probeEnd - acceptEnd.Bytes,
			}, true
		}
		b, ok := l.src.byteAt(pos)
		if l.src.halted {
			return token{}, false
		}
		if !ok {
			return token{
				symbol:    SymbolEnd,
				padding:   pos.sub(start),
				lookahead: 1,
			}, true
		}
		end := pos.advance(b)
		if probeEnd < end.Bytes {
			probeEnd = end.Bytes
		}
		return token{
			symbol:    SymbolError,
			padding:   pos.sub(start),
			size:      end.sub(pos),
			lookahead: probeEnd - end.Bytes,
		}, true
	}
}

// scan runs the DFA from pos and returns the longest accepted match.
// probeEnd is one past the furthest byte examined, counting the end-of-input
// probe as a byte.
func (l *lexer) scan(pos Length, mode uint16) (accept *LexState, acceptEnd Length, probeEnd uint32, found bool) {
	states := l.language.LexStates
	state := mode
	cur := pos
	probeEnd = pos.Bytes
	for int(state) < len(states) {
		ls := &states[state]
		if cur.Bytes > pos.Bytes && ls.accepting() {
			accept, acceptEnd, found = ls, cur, true
		}
		if len(ls.Transitions) == 0 {
			break
		}
		b, ok := l.src.byteAt(cur)
		probeEnd = cur.Bytes + 1
		if !ok {
			break
		}
		next, ok := ls.next(b)
		if !ok {
			break
		}
		state = next
		cur = cur.advance(b)
	}
	return accept, acceptEnd, probeEnd, found
}
