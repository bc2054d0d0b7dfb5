package provider

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/providervalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-ipa/internal/host"
	"github.com/isometry/terraform-provider-ipa/internal/ipa"
)

// Ensure IPAProvider satisfies various provider interfaces.
var _ provider.Provider = &IPAProvider{}
var _ provider.ProviderWithFunctions = &IPAProvider{}
var _ provider.ProviderWithConfigValidators = &IPAProvider{}

// IPAProvider defines the provider implementation.
type IPAProvider struct {
	// Version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	Version string
}

// IPAProviderModel describes the provider data model.
type IPAProviderModel struct {
	// Connection settings
	Server     types.String `tfsdk:"server"`
	APIVersion types.String `tfsdk:"api_version"`
	Timeout    types.Int64  `tfsdk:"timeout"`

	// Authentication settings
	Username types.String `tfsdk:"username"`
	Password types.String `tfsdk:"password"`

	// Kerberos settings (optional)
	KerberosRealm  types.String `tfsdk:"kerberos_realm"`
	KerberosKeytab types.String `tfsdk:"kerberos_keytab"`
	KerberosConfig types.String `tfsdk:"kerberos_config"`
	KerberosCCache types.String `tfsdk:"kerberos_ccache"`

	// TLS settings
	CACertFile         types.String `tfsdk:"ca_cert_file"`
	InsecureSkipVerify types.Bool   `tfsdk:"insecure_skip_verify"`

	// Host settings
	ClearSSSDCache types.Bool `tfsdk:"clear_sssd_cache"`
}

func (p *IPAProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "ipa"
	resp.Version = p.Version
}

func (p *IPAProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The FreeIPA provider manages FreeIPA users, groups and group membership through the IPA JSON-RPC API. " +
			"It supports password and Kerberos (SPNEGO) session login, and can query the local NSS view with `getent`.",
		Attributes: map[string]schema.Attribute{
			"server": schema.StringAttribute{
				MarkdownDescription: "Hostname of the IPA server (e.g., `ipa.example.com`). " +
					"Can be set via the `IPA_SERVER` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"api_version": schema.StringAttribute{
				MarkdownDescription: "IPA API version sent with every call (e.g., `2.251`). Defaults to the server's version. " +
					"Can be set via the `IPA_API_VERSION` environment variable.",
				Optional: true,
			},
			"timeout": schema.Int64Attribute{
				MarkdownDescription: "HTTP request timeout in seconds. Defaults to `30`. " +
					"Can be set via the `IPA_TIMEOUT` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},

			// Authentication settings
			"username": schema.StringAttribute{
				MarkdownDescription: "Username for session login. For Kerberos, the principal name without the realm, which is set with `kerberos_realm`. " +
					"Can be set via the `IPA_USERNAME` environment variable.",
				Optional: true,
			},
			"password": schema.StringAttribute{
				MarkdownDescription: "Password for session login. " +
					"Can be set via the `IPA_PASSWORD` environment variable.",
				Optional:  true,
				Sensitive: true,
			},

			// Kerberos settings
			"kerberos_realm": schema.StringAttribute{
				MarkdownDescription: "Kerberos realm (e.g., `EXAMPLE.COM`). Setting a realm selects Kerberos login. " +
					"Can be set via the `IPA_KERBEROS_REALM` environment variable.",
				Optional: true,
			},
			"kerberos_keytab": schema.StringAttribute{
				MarkdownDescription: "Path to a Kerberos keytab file. " +
					"Can be set via the `IPA_KERBEROS_KEYTAB` environment variable.",
				Optional: true,
			},
			"kerberos_config": schema.StringAttribute{
				MarkdownDescription: "Path to the Kerberos configuration file. Defaults to `/etc/krb5.conf`. " +
					"Can be set via the `IPA_KERBEROS_CONFIG` environment variable.",
				Optional: true,
			},
			"kerberos_ccache": schema.StringAttribute{
				MarkdownDescription: "Path to a Kerberos credential cache. When present, existing tickets are used. " +
					"Can be set via the `IPA_KERBEROS_CCACHE` environment variable.",
				Optional: true,
			},

			// TLS settings
			"ca_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to the IPA CA certificate, usually `/etc/ipa/ca.crt`. " +
					"Can be set via the `IPA_CA_CERT_FILE` environment variable.",
				Optional: true,
			},
			"insecure_skip_verify": schema.BoolAttribute{
				MarkdownDescription: "Skip TLS certificate verification. Not recommended for production. Defaults to `false`. " +
					"Can be set via the `IPA_INSECURE_SKIP_VERIFY` environment variable.",
				Optional: true,
			},

			// Host settings
			"clear_sssd_cache": schema.BoolAttribute{
				MarkdownDescription: "Run `sudo /sbin/sss_cache -E` after every change so the local NSS view is refreshed. Defaults to `false`. " +
					"Can be set via the `IPA_CLEAR_SSSD_CACHE` environment variable.",
				Optional: true,
			},
		},
	}
}

// ConfigValidators implements provider.ProviderWithConfigValidators.
func (p *IPAProvider) ConfigValidators(ctx context.Context) []provider.ConfigValidator {
	return []provider.ConfigValidator{
		// A CA certificate is pointless when verification is skipped
		providervalidator.Conflicting(
			path.MatchRoot("ca_cert_file"),
			path.MatchRoot("insecure_skip_verify"),
		),
		// Keytab and credential cache are alternative Kerberos credentials
		providervalidator.Conflicting(
			path.MatchRoot("kerberos_keytab"),
			path.MatchRoot("kerberos_ccache"),
		),
	}
}

func (p *IPAProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data IPAProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = p.configureLogging(ctx)

	tflog.Info(ctx, "Configuring FreeIPA provider", map[string]any{
		"version": p.Version,
	})

	config := p.buildIPAConfig(&data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	start := time.Now()
	client, err := ipa.NewClientWithContext(ctx, config)
	if err != nil {
		tflog.Error(ctx, "Failed to create IPA client", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Unable to Create IPA Client",
			"An unexpected error occurred when creating the IPA client. "+
				"If the error is not clear, please contact the provider developers.\n\n"+
				"IPA Client Error: "+err.Error(),
		)
		return
	}

	clearCache := p.getBoolValue(data.ClearSSSDCache, "IPA_CLEAR_SSSD_CACHE", false)
	providerData := ipa.NewProviderData(client, host.NewResolver(nil, nil), clearCache)

	// Logs in and pings the server
	start = time.Now()
	if err := providerData.ValidateConnection(ctx); err != nil {
		tflog.Error(ctx, "Connection test failed", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if ipa.IsAuthenticationError(err) {
			resp.Diagnostics.AddError(
				"Authentication Failed",
				"The provider could not log in to FreeIPA. "+
					"Please verify your authentication credentials and settings.\n\n"+
					"Authentication Error: "+err.Error(),
			)
		} else {
			resp.Diagnostics.AddError(
				"Unable to Connect to FreeIPA",
				"The provider could not reach the IPA server. "+
					"Please verify your configuration settings.\n\n"+
					"Connection Error: "+err.Error(),
			)
		}
		return
	}

	tflog.Info(ctx, "FreeIPA provider configured successfully", map[string]any{
		"duration_ms":      time.Since(start).Milliseconds(),
		"auth_method":      config.GetAuthMethod().String(),
		"clear_sssd_cache": clearCache,
	})

	resp.DataSourceData = providerData
	resp.ResourceData = providerData
}

// configureLogging sets up logging configuration based on environment variables.
func (p *IPAProvider) configureLogging(ctx context.Context) context.Context {
	ctx = initializeLogging(ctx)

	// Add persistent fields for all logs
	ctx = tflog.SetField(ctx, "provider", "ipa")
	ctx = tflog.SetField(ctx, "provider_version", p.Version)
	ctx = tflog.MaskFieldValuesWithFieldKeys(ctx, "password")

	tflog.Debug(ctx, "FreeIPA provider logging configured")

	return ctx
}

// buildIPAConfig constructs the IPA client configuration from provider config and environment variables.
func (p *IPAProvider) buildIPAConfig(data *IPAProviderModel, diags *diag.Diagnostics) *ipa.ConnectionConfig {
	config := ipa.DefaultConfig()

	config.Server = p.getStringValue(data.Server, "IPA_SERVER")
	if config.Server == "" {
		diags.AddAttributeError(
			path.Root("server"),
			"Missing IPA Server",
			"The provider needs the IPA server hostname. "+
				"Set the 'server' attribute or the IPA_SERVER environment variable.",
		)
		return config
	}

	config.APIVersion = p.getStringValue(data.APIVersion, "IPA_API_VERSION")
	if timeout := p.getInt64Value(data.Timeout, "IPA_TIMEOUT", 30); timeout > 0 {
		config.Timeout = time.Duration(timeout) * time.Second
	}

	username := p.getStringValue(data.Username, "IPA_USERNAME")
	password := p.getStringValue(data.Password, "IPA_PASSWORD")
	kerberosRealm := p.getStringValue(data.KerberosRealm, "IPA_KERBEROS_REALM")

	hasPasswordAuth := username != "" && password != ""
	hasKerberosAuth := kerberosRealm != ""

	if !hasPasswordAuth && !hasKerberosAuth {
		diags.AddError(
			"Missing Authentication Configuration",
			"Either username/password authentication or Kerberos authentication must be configured. "+
				"For username/password: provide 'username' and 'password' attributes or set IPA_USERNAME and IPA_PASSWORD environment variables. "+
				"For Kerberos: provide 'kerberos_realm' and optionally 'username'/'password' (for password auth), 'kerberos_keytab' (for keytab auth), or 'kerberos_ccache' (for credential cache auth).",
		)
		return config
	}

	config.Username = username
	config.Password = password
	config.KerberosRealm = kerberosRealm
	config.KerberosKeytab = p.getStringValue(data.KerberosKeytab, "IPA_KERBEROS_KEYTAB")
	config.KerberosCCache = p.getStringValue(data.KerberosCCache, "IPA_KERBEROS_CCACHE")
	if krb5conf := p.getStringValue(data.KerberosConfig, "IPA_KERBEROS_CONFIG"); krb5conf != "" {
		config.KerberosConfig = krb5conf
	}

	config.CACertFile = p.getStringValue(data.CACertFile, "IPA_CA_CERT_FILE")
	config.InsecureSkipVerify = p.getBoolValue(data.InsecureSkipVerify, "IPA_INSECURE_SKIP_VERIFY", false)

	return config
}

// Helper functions for configuration value resolution

func (p *IPAProvider) getStringValue(configValue types.String, envVar string) string {
	if !configValue.IsNull() && configValue.ValueString() != "" {
		return configValue.ValueString()
	}
	return os.Getenv(envVar)
}

func (p *IPAProvider) getBoolValue(configValue types.Bool, envVar string, defaultValue bool) bool {
	if !configValue.IsNull() {
		return configValue.ValueBool()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *IPAProvider) getInt64Value(configValue types.Int64, envVar string, defaultValue int64) int64 {
	if !configValue.IsNull() {
		return configValue.ValueInt64()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *IPAProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewUserResource,
		NewGroupResource,
		NewGroupMembershipResource,
	}
}

func (p *IPAProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewUserDataSource,
		NewUsersDataSource,
		NewGroupDataSource,
		NewGroupsDataSource,
		NewNSSGroupDataSource,
		NewNSSUserDataSource,
	}
}

func (p *IPAProvider) Functions(ctx context.Context) []func() function.Function {
	return []func() function.Function{
		NewValidNameFunction,
		NewValidMailFunction,
		NewNormalizeSSHKeyFunction,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &IPAProvider{
			Version: version,
		}
	}
}
