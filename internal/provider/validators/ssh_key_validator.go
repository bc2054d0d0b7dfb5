package validators

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
)

var _ validator.String = sshKeyValidator{}

// sshKeyValidator validates a single authorized_keys style public key.
type sshKeyValidator struct{}

func (v sshKeyValidator) Description(_ context.Context) string {
	return "value must be a single SSH public key in authorized_keys format"
}

func (v sshKeyValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v sshKeyValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	if err := ipa.ValidateSSHPublicKey(request.ConfigValue.ValueString()); err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid SSH Public Key",
			fmt.Sprintf("The value is not a valid SSH public key: %s", err.Error()),
		)
	}
}

// IsValidSSHPublicKey returns a validator for SSH public keys, typically used
// as a set element validator. Unknown and null values are skipped.
func IsValidSSHPublicKey() validator.String {
	return sshKeyValidator{}
}
