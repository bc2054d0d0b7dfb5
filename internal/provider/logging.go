package provider

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
)

// initializeLogging initializes the provider and library subsystems for consistent logging.
// This should be called at the beginning of each data source Read method
// and resource Create/Read/Update/Delete methods.
func initializeLogging(ctx context.Context) context.Context {
	// Pattern: TF_LOG_PROVIDER_IPA_<SUBSYSTEM>
	for _, subsystem := range []string{
		ipa.SubsystemProvider,
		ipa.SubsystemIPA,
		ipa.SubsystemKerberos,
		ipa.SubsystemHost,
	} {
		ctx = tflog.NewSubsystem(ctx, subsystem,
			tflog.WithLevelFromEnv("TF_LOG_PROVIDER_IPA_"+strings.ToUpper(subsystem)))
	}
	return ctx
}
