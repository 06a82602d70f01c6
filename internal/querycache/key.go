package querycache

// Key names a cached query and fixes the type of its data.
type Key[T any] struct {
	name string
}

// NewKey creates a typed key. Two keys with the same name share an entry,
// so a name must only ever be used with one type.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key's logical query name.
func (k Key[T]) Name() string { return k.name }

func (k Key[T]) String() string { return k.name }

// Named is implemented by every Key and is what the untyped cache
// operations accept.
type Named interface {
	Name() string
}
