package synth

// Path is an immutable list of the type names on the current recursion path.
// Push returns a new Path that shares its parent, so sibling branches each see
// their own ancestry and never each other's.
type Path struct {
	name   string
	parent *Path
	size   int
}

// Push returns a path extended with name. The receiver may be nil.
func (p *Path) Push(name string) *Path {
	return &Path{name: name, parent: p, size: p.Len() + 1}
}

// Contains reports whether name is on the path.
func (p *Path) Contains(name string) bool {
	for cur := p; cur != nil; cur = cur.parent {
		if cur.name == name {
			return true
		}
	}
	return false
}

// Len returns the number of names on the path.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return p.size
}
