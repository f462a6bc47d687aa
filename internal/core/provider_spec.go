package core

// ProviderAuthSpec describes how a provider expects the secret on the wire.
type ProviderAuthSpec struct {
	Header string // e.g. "Authorization", "x-api-key"
	Scheme string // prefix placed before the secret, e.g. "Bearer "
	EnvVar string // conventional environment variable holding the key
}

// ProviderSpec is the canonical provider definition used for registration.
type ProviderSpec struct {
	ID             Provider
	Info           ProviderInfo
	Auth           ProviderAuthSpec
	DefaultBaseURL string
}
