package validators

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
)

var _ validator.String = mailValidator{}

// mailValidator validates that a string looks like local@domain.tld.
type mailValidator struct{}

func (v mailValidator) Description(_ context.Context) string {
	return "value must be an email address of the form local@domain.tld"
}

func (v mailValidator) MarkdownDescription(ctx context.Context) string {
	return "value must be an email address of the form `local@domain.tld`"
}

func (v mailValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if !ipa.ValidateMail(value) {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Email Address",
			fmt.Sprintf("The value %q is not a valid email address.", value),
		)
	}
}

// IsValidMail returns a validator which ensures that any configured attribute
// value is an email address. Unknown and null values are skipped.
func IsValidMail() validator.String {
	return mailValidator{}
}
