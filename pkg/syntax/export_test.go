package syntax

// SameSubtree reports whether a and b view the same stored subtree.
func SameSubtree(a, b Node) bool {
	return a.st != nil && a.st == b.st
}
