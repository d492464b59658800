package source

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Credentials is the per-source-type credential variant. The set of
// implementations is closed; DecodeCredentials is the only constructor path
// from stored key/value maps.
type Credentials interface {
	SourceType() Type
	// Fields returns the key/value form persisted (sealed) on the data source.
	Fields() map[string]string
	Validate() error
	sealed()
}

// SearchConsoleCredentials authenticate against the Search Console API.
type SearchConsoleCredentials struct {
	AccessToken string `json:"access_token" validate:"required"`
	PropertyURL string `json:"property_url" validate:"required,gscproperty"`
}

func (SearchConsoleCredentials) SourceType() Type { return TypeSearchConsole }
func (SearchConsoleCredentials) sealed()          {}

func (c SearchConsoleCredentials) Fields() map[string]string {
	return map[string]string{"access_token": c.AccessToken, "property_url": c.PropertyURL}
}

func (c SearchConsoleCredentials) Validate() error {
	return validateCredentials(TypeSearchConsole, c)
}

// LLMCredentials configure one LLM citation provider.
type LLMCredentials struct {
	Provider   Type   `json:"-"`
	APIKey     string `json:"api_key" validate:"required"`
	WebhookURL string `json:"webhook_url" validate:"omitempty,url"`
}

func (c LLMCredentials) SourceType() Type { return c.Provider }
func (LLMCredentials) sealed()            {}

func (c LLMCredentials) Fields() map[string]string {
	fields := map[string]string{"api_key": c.APIKey}
	if c.WebhookURL != "" {
		fields["webhook_url"] = c.WebhookURL
	}
	return fields
}

func (c LLMCredentials) Validate() error {
	return validateCredentials(c.Provider, c)
}

// DecodeCredentials builds and validates the credential variant for t.
func DecodeCredentials(t Type, raw map[string]string) (Credentials, error) {
	get := func(key string) string { return strings.TrimSpace(raw[key]) }

	var creds Credentials
	switch {
	case t == TypeSearchConsole:
		creds = SearchConsoleCredentials{AccessToken: get("access_token"), PropertyURL: get("property_url")}
	case t == TypeCustom:
		return nil, fmt.Errorf("%w: %s has no adapter", ErrUnsupportedSource, t)
	case t.IsLLM():
		creds = LLMCredentials{Provider: t, APIKey: get("api_key"), WebhookURL: get("webhook_url")}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, t)
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return creds, nil
}

var credentialValidate = newCredentialValidator()

func newCredentialValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("gscproperty", validateProperty)
	return v
}

// validateProperty accepts URL-prefix properties (https://example.com/) and
// domain properties (sc-domain:example.com).
func validateProperty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if domain, ok := strings.CutPrefix(value, "sc-domain:"); ok {
		return domain != "" && !strings.ContainsAny(domain, "/ ")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func validateCredentials(t Type, creds any) error {
	err := credentialValidate.Struct(creds)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ConfigError{Source: t, Reason: err.Error()}
	}

	first := fieldErrs[0]
	reason := "is invalid"
	switch first.Tag() {
	case "required":
		reason = "is required"
	case "gscproperty":
		reason = "must be a URL-prefix or sc-domain: property"
	case "url":
		reason = "must be a valid URL"
	}
	return &ConfigError{Source: t, Field: first.Field(), Reason: reason}
}
