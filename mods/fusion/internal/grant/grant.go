// Package grant holds the capability that unlocks the privileged state
// operations. Only packages under mods/fusion can import it.
package grant

// Key is passed to the privileged state operations.
// Only Engine is accepted; the zero Key is rejected.
type Key struct {
	t *token
}

type token struct {
	_ byte
}

// Engine is the key used by the propagation and update side of the filter.
var Engine = Key{t: &token{}}

// Valid reports whether k is the engine key.
func (k Key) Valid() bool {
	return k.t != nil && k == Engine
}
