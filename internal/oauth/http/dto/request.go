// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/gateproof/authcore/internal/validation"
)

// AuthorizeRequest contains the parameters for starting an authorization flow.
type AuthorizeRequest struct {
	RedirectURI string   `json:"redirect_uri"`
	Scopes      []string `json:"scopes"`
}

// Validate checks if the authorize request is valid.
func (r *AuthorizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RedirectURI,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 2000),
		),
	)
}

// CallbackRequest contains the query parameters of a provider callback.
type CallbackRequest struct {
	State            string `form:"state"`
	Code             string `form:"code"`
	Error            string `form:"error"`
	ErrorDescription string `form:"error_description"`
}

// Validate checks if the callback request is valid. The provider may return
// an error instead of a code, so only the state is mandatory here; the use
// case decides what a provider error means.
func (r *CallbackRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.State,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}
