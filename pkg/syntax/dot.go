package syntax

import (
	"bufio"
	"fmt"
	"io"
)

// PrintDotGraphs makes the parser write a DOT graph of its stack to w after
// every parse action. A nil w turns this off.
func (p *Parser) PrintDotGraphs(w io.Writer) {
	p.dot = w
}

// StopPrintingDotGraphs turns off the graphs started by PrintDotGraphs.
func (p *Parser) StopPrintingDotGraphs() {
	p.dot = nil
}

func (r *parseRun) printStack(event string, sym Symbol) {
	if r.p.dot == nil {
		return
	}
	w := bufio.NewWriter(r.p.dot)
	fmt.Fprintf(w, "digraph stack {\nrankdir=\"RL\";\nlabel=%q;\n",
		fmt.Sprintf("%s %s @%d", event, r.lang.SymbolName(sym), r.pos.Bytes))
	for i, f := range r.stack {
		label := fmt.Sprintf("%s\nstate: %d\nchildren: %d", r.lang.SymbolName(f.symbol), f.state, len(f.children))
		fmt.Fprintf(w, "frame_%d [shape=box, label=%q];\n", i, label)
		if i > 0 {
			fmt.Fprintf(w, "frame_%d -> frame_%d;\n", i, i-1)
		}
	}
	fmt.Fprint(w, "}\n\n")
	_ = w.Flush()
}

// PrintDotGraph writes a DOT graph of the tree to w.
func (t *Tree) PrintDotGraph(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "digraph tree {\nedge [arrowhead=none];\n")
	id := 0
	var visit func(n Node) int
	visit = func(n Node) int {
		self := id
		id++
		label := n.Type()
		if n.IsMissing() {
			label = "MISSING " + label
		}
		fmt.Fprintf(bw, "tree_%d [label=%q, tooltip=%q", self, label,
			fmt.Sprintf("range: %d - %d\nstate: %d\nerror: %t\nchanged: %t",
				n.StartByte(), n.EndByte(), n.st.parseState, n.HasError(), n.HasChanges()))
		switch {
		case n.IsError() || n.IsMissing():
			fmt.Fprint(bw, ", color=red")
		case n.IsExtra():
			fmt.Fprint(bw, ", fontcolor=gray")
		case !n.IsNamed():
			fmt.Fprint(bw, ", shape=plaintext")
		}
		fmt.Fprint(bw, "];\n")
		for i := 0; i < int(n.ChildCount()); i++ {
			child := visit(n.Child(i))
			fmt.Fprintf(bw, "tree_%d -> tree_%d;\n", self, child)
		}
		return self
	}
	visit(t.RootNode())
	fmt.Fprint(bw, "}\n")
	return bw.Flush()
}
