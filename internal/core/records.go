package core

import "time"

type Account struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	OrganizationName string    `json:"organization_name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// KeyRecord is a stored key joined with its admin key and account. Secret is
// never serialized; use the explicit reveal paths.
type KeyRecord struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Secret           string    `json:"-"`
	MaskedKey        string    `json:"key"`
	Provider         Provider  `json:"provider"`
	KeyType          KeyType   `json:"key_type"`
	AccountID        int64     `json:"account_id"`
	AdminKeyID       *int64    `json:"admin_key_id"`
	AdminName        string    `json:"admin_name,omitempty"`
	AccountEmail     string    `json:"account_email,omitempty"`
	AccountName      string    `json:"account_name,omitempty"`
	OrganizationName string    `json:"organization_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (k KeyRecord) IsAdmin() bool {
	return k.KeyType == KeyTypeAdmin
}

// IsOrphanedProject reports an OpenAI project key with no admin link.
func (k KeyRecord) IsOrphanedProject() bool {
	return k.Provider == ProviderOpenAI && k.KeyType == KeyTypeProject && k.AdminKeyID == nil
}
