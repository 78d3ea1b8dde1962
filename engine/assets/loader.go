package assets

// Loader turns the file at path into an asset of type T.
type Loader[T any] interface {
	Load(path string) (T, error)
}
