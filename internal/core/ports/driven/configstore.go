package driven

// ConfigStore is a flat view over a persisted settings document.
// Keys are dotted paths such as "embedding.provider". Typed getters return
// the zero value when a key is missing or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores a value and persists the document.
	Set(key string, value any) error

	// Delete removes a key and persists the document. Missing keys are ignored.
	Delete(key string) error

	// Path is where the document is persisted.
	Path() string
}
