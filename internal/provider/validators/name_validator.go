package validators

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
)

// Ensure the implementation satisfies the expected interface.
var _ validator.String = nameValidator{}

// nameValidator validates that a string is an acceptable IPA user or group name.
type nameValidator struct{}

// Description describes the validation in plain text.
func (v nameValidator) Description(_ context.Context) string {
	return "value must start with a lower-case letter followed by at least one lower-case letter, digit, underscore or hyphen"
}

// MarkdownDescription describes the validation in Markdown.
func (v nameValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

// ValidateString performs the validation.
func (v nameValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if !ipa.ValidateName(value) {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Name",
			fmt.Sprintf("The value %q is not a valid name: %s", value, v.Description(ctx)),
		)
	}
}

// IsValidName returns a validator which ensures that any configured attribute
// value is a valid IPA user or group name.
//
// Unknown values and null values are skipped from validation.
func IsValidName() validator.String {
	return nameValidator{}
}
