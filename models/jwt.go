package models

// SpeedrawJWT are the claims carried by API bearer tokens.
type SpeedrawJWT struct {
	Issuer    string     `json:"iss"` // optional
	Subject   string     `json:"sub"`
	IssuedAt  int64      `json:"iat"`
	ExpiresAt int64      `json:"exp"`
	Batch     BatchGrant `json:"batch"`
}

// BatchGrant scopes what a token holder may submit.
type BatchGrant struct {
	CompletionCallback string            `json:"completionCallback,omitempty"` // POSTed when a batch finishes
	CallbackHeaders    map[string]string `json:"callbackHeaders,omitempty"`
	MaxItems           int               `json:"maxItems,omitempty"` // 0 = unlimited

	// StorageKey references backend credentials stored in the credentials DB.
	StorageKey string `json:"storageKey,omitempty"`
	SubDir     string `json:"subDir,omitempty"` // tenant folder for published animations
}
