package driven

// ConfigStore is the key/value view of the settings file. Keys use dot
// notation, for example "llm.provider" or "chunking.size".
//
// Typed getters return the zero value when a key is missing or holds a
// value of another type; callers that need to tell the two apart use Get.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int

	// GetFloat also accepts integers, so "temperature = 1" reads as 1.0.
	GetFloat(key string) float64

	// Set stores one value and persists it.
	Set(key string, value any) error

	// SetAll stores every value and persists once.
	SetAll(values map[string]any) error
}
