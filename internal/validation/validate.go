package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/roach88/formsession/internal/document"
)

// Category groups validation errors for display.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryConnection Category = "connection"
	CategoryField      Category = "field"
)

// Validation error codes (V100-V199)
const (
	// Document-level errors (V100-V109)
	ErrNoFields   = "V100" // document has no fields
	ErrNoDelivery = "V101" // no delivery target configured

	// Field errors (V110-V119)
	ErrEmptyLabel     = "V110" // label empty or whitespace
	ErrNoOptions      = "V111" // choice field without options
	ErrNoAcceptedType = "V112" // file field without accept list

	// Rule errors (V120-V129)
	ErrInvalidPattern  = "V120" // pattern does not compile
	ErrInvertedRange   = "V121" // min greater than max
	ErrDuplicateOption = "V122" // two options share a value
	ErrInvalidRedirect = "V123" // redirect enabled without an absolute URL
)

// KeyFields and KeyDelivery are the keys of the document-level errors.
const (
	KeyFields   = "fields"
	KeyDelivery = "delivery"
	KeyRedirect = "behavior.redirect_url"
)

// MessageNoFields is the message for a document without fields.
const MessageNoFields = "document must have at least one field"

// Error is one finding. Key identifies the offending area: a document-level
// key, or "<fieldID>.<attribute>" for field findings.
type Error struct {
	Category Category `json:"category" yaml:"category"`
	Code     string   `json:"code" yaml:"code"`
	Key      string   `json:"key" yaml:"key"`
	Message  string   `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Key, e.Message)
}

// Validate computes every finding for doc. It does not fail fast, consults
// no state beyond doc, and returns findings in a stable order: document
// level first, then fields in document order, then behavior rules.
//
// A document with no findings returns nil.
func Validate(doc document.Document) []Error {
	var errs []Error

	// V100: at least one field
	if len(doc.Fields) == 0 {
		errs = append(errs, Error{
			Category: CategoryField,
			Code:     ErrNoFields,
			Key:      KeyFields,
			Message:  MessageNoFields,
		})
	}

	// V101: delivery target configured
	if !doc.HasDelivery() {
		errs = append(errs, Error{
			Category: CategoryConnection,
			Code:     ErrNoDelivery,
			Key:      KeyDelivery,
			Message:  "a delivery target must be connected before the document can be used",
		})
	}

	for _, f := range doc.Fields {
		errs = append(errs, validateField(f)...)
	}

	// V123: redirect target
	if b := doc.Behavior; b.RedirectEnabled && !isAbsoluteURL(b.RedirectURL) {
		errs = append(errs, Error{
			Category: CategoryValidation,
			Code:     ErrInvalidRedirect,
			Key:      KeyRedirect,
			Message:  "redirect is enabled but the redirect URL is not an absolute http(s) URL",
		})
	}

	return errs
}

func validateField(f document.Field) []Error {
	var errs []Error
	key := func(attr string) string { return f.ID + "." + attr }

	// V110: label required
	if strings.TrimSpace(f.Label) == "" {
		errs = append(errs, Error{
			Category: CategoryField,
			Code:     ErrEmptyLabel,
			Key:      key("label"),
			Message:  "label is required",
		})
	}

	// V111: choice fields need options
	if f.Type.IsChoice() && len(f.Options) == 0 {
		errs = append(errs, Error{
			Category: CategoryField,
			Code:     ErrNoOptions,
			Key:      key("options"),
			Message:  fmt.Sprintf("%s field needs at least one option", f.Type),
		})
	}

	// V112: file fields need an accept list
	if f.Type.IsFile() && (f.Validation == nil || len(f.Validation.Accept) == 0) {
		errs = append(errs, Error{
			Category: CategoryField,
			Code:     ErrNoAcceptedType,
			Key:      key("accept"),
			Message:  "file field must declare accepted file types",
		})
	}

	// V122: option values unique
	seen := make(map[string]bool, len(f.Options))
	for _, opt := range f.Options {
		if seen[opt.Value] {
			errs = append(errs, Error{
				Category: CategoryValidation,
				Code:     ErrDuplicateOption,
				Key:      key("options"),
				Message:  fmt.Sprintf("duplicate option value %q", opt.Value),
			})
			break
		}
		seen[opt.Value] = true
	}

	if v := f.Validation; v != nil {
		// V120: pattern compiles
		if v.Pattern != "" {
			if _, err := regexp.Compile(v.Pattern); err != nil {
				errs = append(errs, Error{
					Category: CategoryValidation,
					Code:     ErrInvalidPattern,
					Key:      key("pattern"),
					Message:  fmt.Sprintf("invalid pattern: %v", err),
				})
			}
		}

		// V121: min <= max
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			errs = append(errs, Error{
				Category: CategoryValidation,
				Code:     ErrInvertedRange,
				Key:      key("range"),
				Message:  fmt.Sprintf("min %d is greater than max %d", *v.Min, *v.Max),
			})
		}
	}

	return errs
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
