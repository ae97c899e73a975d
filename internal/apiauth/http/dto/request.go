// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	apiauthDomain "github.com/gateproof/authcore/internal/apiauth/domain"
	customValidation "github.com/gateproof/authcore/internal/validation"
)

// knownScopes are the scopes a client may be granted.
var knownScopes = []apiauthDomain.Scope{
	apiauthDomain.ScopeAuditRead,
	apiauthDomain.ScopeAuditAdmin,
	apiauthDomain.ScopeKeysRotate,
	apiauthDomain.ScopeClientsAdmin,
}

// CreateClientRequest contains the parameters for creating a new admin client.
type CreateClientRequest struct {
	Name     string                 `json:"name"`
	IsActive bool                   `json:"is_active"`
	Scopes   []apiauthDomain.Scope  `json:"scopes"`
}

// Validate checks if the create client request is valid.
func (r *CreateClientRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Scopes,
			validation.Required,
			validation.Each(validation.By(validateScope)),
		),
	)
}

// UpdateClientRequest contains the parameters for updating an existing client.
type UpdateClientRequest struct {
	Name     string                `json:"name"`
	IsActive bool                  `json:"is_active"`
	Scopes   []apiauthDomain.Scope `json:"scopes"`
}

// Validate checks if the update client request is valid.
func (r *UpdateClientRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Scopes,
			validation.Required,
			validation.Each(validation.By(validateScope)),
		),
	)
}

// validateScope rejects scopes outside the known set.
func validateScope(value interface{}) error {
	scope, ok := value.(apiauthDomain.Scope)
	if !ok {
		return validation.NewError("validation_scope_type", "must be a scope string")
	}
	for _, known := range knownScopes {
		if scope == known {
			return nil
		}
	}
	return validation.NewError("validation_scope_unknown", "unknown scope")
}

// IssueTokenRequest contains the parameters for issuing an authentication token.
type IssueTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Validate checks if the issue token request is valid.
func (r *IssueTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ClientID,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.ClientSecret,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}
