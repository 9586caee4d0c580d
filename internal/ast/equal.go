package ast

// Equal reports structural equality between two programs: same classes,
// members, and statement/expression trees, ignoring node IDs and source
// positions. Defined exactly in terms of the pretty-printer's canonical
// order, so comparing rendered text is both the definition and the
// implementation rather than an approximation of it.
func Equal(a, b *Program) bool {
	return Print(a) == Print(b)
}
