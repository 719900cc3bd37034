package filter

// Split separates f into a native part that the qualifier accepts and a
// residual that must be evaluated over the native results. The conjunction
// of the two is equivalent to f.
//
// Only AND is decomposed: a disjunction or negation that does not qualify as
// a whole stays entirely in the residual. A qualifier error is treated as
// "not qualified".
func Split(f Filter, qualifier Walker[bool]) (native, residual Filter) {
	if f == nil {
		return True{}, True{}
	}
	if qualifies(f, qualifier) {
		return f, True{}
	}
	l, ok := f.(Logic)
	if !ok || l.Op != OpAnd {
		return True{}, f
	}

	natives := make([]Filter, 0, len(l.Parts))
	residuals := make([]Filter, 0, len(l.Parts))
	for _, part := range l.Parts {
		n, r := Split(part, qualifier)
		natives = append(natives, n)
		residuals = append(residuals, r)
	}
	native = And(natives...)
	if conj, ok := native.(Logic); ok && !qualifies(native, qualifier) {
		// The backend cannot conjoin; push the first fragment only.
		native = conj.Parts[0]
		residuals = append(residuals, conj.Parts[1:]...)
	}
	return native, And(residuals...)
}

func qualifies(f Filter, qualifier Walker[bool]) bool {
	ok, err := Walk(qualifier, f)
	return err == nil && ok
}
