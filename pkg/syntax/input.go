package syntax

import "sync"

// Input supplies source text to a streaming parse.
//
// Read returns the text starting at the given byte offset and position.
// An empty result means the end of the input. The parser copies what it
// needs, so the returned slice may be reused by the caller once Read is
// called again. Offsets increase strictly within a single parse call.
type Input interface {
	Read(offset uint32, pos Point) []byte
}

// ReadFunc adapts an ordinary function to the Input interface.
type ReadFunc func(offset uint32, pos Point) []byte

// Read calls f(offset, pos).
func (f ReadFunc) Read(offset uint32, pos Point) []byte {
	return f(offset, pos)
}

const chunkCapacity = 4096

var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, chunkCapacity)
		return &b
	},
}

// chunk is a parser-owned copy of one Read result.
type chunk struct {
	start uint32
	buf   *[]byte
}

func (c *chunk) end() uint32 { return c.start + uint32(len(*c.buf)) }

// source is the parser's window onto its input. Streaming reads are copied
// into pooled chunks and released once the lexer has moved past them.
// Materialized text is borrowed directly.
type source struct {
	input Input
	text  []byte

	chunks []chunk
	eof    bool
	eofAt  uint32

	// afterRead is consulted after every Read; returning true halts the parse.
	afterRead func() bool
	halted    bool

	stats *Stats
}

func newTextSource(text []byte, stats *Stats) *source {
	return &source{text: text, eof: true, eofAt: uint32(len(text)), stats: stats}
}

func newInputSource(input Input, stats *Stats) *source {
	return &source{input: input, stats: stats}
}

// byteAt returns the byte at pos. It reports false at the end of the input
// or when the parse was halted while waiting for more text.
func (s *source) byteAt(pos Length) (byte, bool) {
	if s.input == nil {
		if pos.Bytes < uint32(len(s.text)) {
			return s.text[pos.Bytes], true
		}
		return 0, false
	}
	for i := len(s.chunks) - 1; i >= 0; i-- {
		c := &s.chunks[i]
		if pos.Bytes >= c.start && pos.Bytes < c.end() {
			return (*c.buf)[pos.Bytes-c.start], true
		}
		if pos.Bytes >= c.end() {
			break
		}
	}
	if s.halted || (s.eof && pos.Bytes >= s.eofAt) {
		return 0, false
	}
	if !s.fetch(pos) {
		return 0, false
	}
	c := &s.chunks[len(s.chunks)-1]
	return (*c.buf)[pos.Bytes-c.start], true
}

func (s *source) fetch(pos Length) bool {
	if n := len(s.chunks); n > 0 && pos.Bytes > s.chunks[n-1].end() {
		// Jumped past buffered text after reusing a subtree.
		s.releaseAll()
	}
	data := s.input.Read(pos.Bytes, pos.Extent)
	s.stats.Reads++
	if len(data) == 0 {
		s.eof = true
		s.eofAt = pos.Bytes
	} else {
		buf := chunkPool.Get().(*[]byte)
		*buf = append((*buf)[:0], data...)
		s.chunks = append(s.chunks, chunk{start: pos.Bytes, buf: buf})
		s.stats.ChunksAcquired++
		s.stats.BytesRead += uint64(len(data))
	}
	if s.afterRead != nil && s.afterRead() {
		s.halted = true
		return false
	}
	return len(data) > 0
}

// releaseBefore returns chunks that end at or before offset to the pool.
func (s *source) releaseBefore(offset uint32) {
	n := 0
	for n < len(s.chunks) && s.chunks[n].end() <= offset {
		s.release(&s.chunks[n])
		n++
	}
	if n > 0 {
		s.chunks = append(s.chunks[:0], s.chunks[n:]...)
	}
}

func (s *source) releaseAll() {
	for i := range s.chunks {
		s.release(&s.chunks[i])
	}
	s.chunks = s.chunks[:0]
}

func (s *source) release(c *chunk) {
	if cap(*c.buf) <= 4*chunkCapacity {
		chunkPool.Put(c.buf)
	}
	c.buf = nil
	s.stats.ChunksReleased++
}
