package clerk

import "encoding/json"

type ClerkWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type ClerkEmailAddress struct {
	EmailAddress string `json:"email_address"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type ClerkExternalAccount struct {
	Provider string `json:"provider"` // e.g. "oauth_google"
}

type ClerkUserData struct {
	ID               string                 `json:"id"`
	Username         string                 `json:"username"`
	FirstName        string                 `json:"first_name"`
	LastName         string                 `json:"last_name"`
	ImageURL         string                 `json:"image_url"`
	ProfileImageURL  string                 `json:"profile_image_url"`
	PasswordEnabled  bool                   `json:"password_enabled"`
	EmailAddresses   []ClerkEmailAddress    `json:"email_addresses"`
	ExternalAccounts []ClerkExternalAccount `json:"external_accounts"`
}
