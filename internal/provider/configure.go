package provider

import (
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/diag"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
)

// providerDataFrom extracts the configured *ipa.ProviderData passed to resources
// and data sources. It returns nil without diagnostics while the provider is
// still unconfigured.
func providerDataFrom(data any, title string, diags *diag.Diagnostics) *ipa.ProviderData {
	// Prevent panic if the provider has not been configured.
	if data == nil {
		return nil
	}

	providerData, ok := data.(*ipa.ProviderData)
	if !ok {
		diags.AddError(
			title,
			fmt.Sprintf("Expected *ipa.ProviderData, got: %T. Please report this issue to the provider developers.", data),
		)
		return nil
	}

	return providerData
}
