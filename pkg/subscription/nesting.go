package subscription

// NestingPolicy says which child URI schemes a parent scheme is allowed
// to spawn a Pull-handler for. A scheme always nests into itself,
// regardless of what the policy otherwise allows.
type NestingPolicy map[string][]string

// DefaultNestingPolicy is file→{file,http}, http→{http}.
func DefaultNestingPolicy() NestingPolicy {
	return NestingPolicy{
		"file": {"file", "http"},
		"http": {"http"},
	}
}

// Allows reports whether parentScheme may spawn a handler for
// childScheme.
func (p NestingPolicy) Allows(parentScheme, childScheme string) bool {
	if parentScheme == childScheme {
		return true
	}
	for _, allowed := range p[parentScheme] {
		if allowed == childScheme {
			return true
		}
	}
	return false
}
