package config

// ConfigBackend abstracts platform-specific config storage. Values are read
// as strings and parsed by the key table; writes keep the native type where
// the platform has one.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	Set(key string, val any) error
	Delete(key string) error
}
