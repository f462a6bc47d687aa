package core

// KeyType is the provider-specific subtype of a key.
type KeyType string

const (
	KeyTypeAdmin             KeyType = "admin"
	KeyTypeProject           KeyType = "project"
	KeyTypeAPI               KeyType = "api"
	KeyTypeSearch            KeyType = "search"
	KeyTypeNews              KeyType = "news"
	KeyTypeAI                KeyType = "ai"
	KeyTypeAccessKey         KeyType = "access_key"
	KeyTypeClaude            KeyType = "claude"
	KeyTypeToken             KeyType = "token"
	KeyTypeServiceAccount    KeyType = "service_account"
	KeyTypeCognitiveServices KeyType = "cognitive_services"
	KeyTypeSubscriptionID    KeyType = "subscription_id"
	KeyTypeUnknown           KeyType = "unknown"
)

type Classification struct {
	Provider Provider `json:"provider"`
	KeyType  KeyType  `json:"key_type"`
}

func (c Classification) IsUnknown() bool {
	return c.Provider == ProviderUnknown
}
