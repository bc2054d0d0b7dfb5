package ipa

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-ipa/internal/host"
)

// ProviderData wraps the IPA client, its managers and the local host resolver for
// use by Terraform resources.
type ProviderData struct {
	Client     Client
	Users      *UserManager
	Groups     *GroupManager
	Membership *GroupMembershipManager
	Host       *host.Resolver

	// ClearSSSDCache invalidates the local SSSD cache after every successful change.
	ClearSSSDCache bool
}

// NewProviderData creates a new provider data wrapper.
func NewProviderData(client Client, resolver *host.Resolver, clearSSSDCache bool) *ProviderData {
	if resolver == nil {
		resolver = host.NewResolver(nil, nil)
	}

	return &ProviderData{
		Client:         client,
		Users:          NewUserManager(client),
		Groups:         NewGroupManager(client),
		Membership:     NewGroupMembershipManager(client),
		Host:           resolver,
		ClearSSSDCache: clearSSSDCache,
	}
}

// ValidateConnection ensures the client is available and the session works.
func (pd *ProviderData) ValidateConnection(ctx context.Context) error {
	if pd.Client == nil {
		return fmt.Errorf("IPA client is not initialized")
	}

	if err := pd.Client.Ping(ctx); err != nil {
		return fmt.Errorf("IPA client connection failed: %w", err)
	}

	tflog.Debug(ctx, "Provider data validation successful", map[string]any{
		"client_available":   pd.Client != nil,
		"clear_sssd_cache":   pd.ClearSSSDCache,
		"host_resolver_type": fmt.Sprintf("%T", pd.Host),
	})

	return nil
}

// AfterChange runs the post-mutation hooks. Cache invalidation failures are
// logged, not returned.
func (pd *ProviderData) AfterChange(ctx context.Context) {
	if !pd.ClearSSSDCache || pd.Host == nil {
		return
	}

	if err := pd.Host.ClearSSSDCache(ctx); err != nil {
		tflog.Warn(ctx, "Failed to clear SSSD cache after change", map[string]any{
			"error": err.Error(),
		})
	}
}

// Close releases the client.
func (pd *ProviderData) Close() error {
	if pd.Client == nil {
		return nil
	}
	return pd.Client.Close()
}
