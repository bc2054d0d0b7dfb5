package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/datasourcevalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-ipa/internal/host"
	"github.com/isometry/terraform-provider-ipa/internal/ipa"
	"github.com/isometry/terraform-provider-ipa/internal/provider/validators"
)

var _ datasource.DataSource = &NSSGroupDataSource{}
var _ datasource.DataSourceWithConfigValidators = &NSSGroupDataSource{}
var _ datasource.DataSource = &NSSUserDataSource{}

func NewNSSGroupDataSource() datasource.DataSource {
	return &NSSGroupDataSource{}
}

func NewNSSUserDataSource() datasource.DataSource {
	return &NSSUserDataSource{}
}

// NSSGroupDataSource resolves a group through the name service switch of the
// host running Terraform.
type NSSGroupDataSource struct {
	providerData *ipa.ProviderData
}

// NSSGroupDataSourceModel describes the data source data model.
type NSSGroupDataSourceModel struct {
	ID    types.String `tfsdk:"id"`
	Name  types.String `tfsdk:"name"`
	GID   types.Int64  `tfsdk:"gid"`
	Found types.Bool   `tfsdk:"found"`
}

func (d *NSSGroupDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_nss_group"
}

func (d *NSSGroupDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Resolves a group on the local host with `getent group`, by name or by gid. " +
			"Useful to check that SSSD sees a group managed by this provider.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The lookup key.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The group name to resolve, or the resolved name when looking up by gid.",
				Optional:            true,
				Computed:            true,
				Validators: []validator.String{
					validators.IsValidName(),
				},
			},
			"gid": schema.Int64Attribute{
				MarkdownDescription: "The gid to resolve, or the resolved gid when looking up by name.",
				Optional:            true,
				Computed:            true,
				Validators: []validator.Int64{
					int64validator.AtLeast(0),
				},
			},
			"found": schema.BoolAttribute{
				MarkdownDescription: "Whether the host has a matching group entry.",
				Computed:            true,
			},
		},
	}
}

// ConfigValidators implements datasource.DataSourceWithConfigValidators.
func (d *NSSGroupDataSource) ConfigValidators(ctx context.Context) []datasource.ConfigValidator {
	return []datasource.ConfigValidator{
		datasourcevalidator.ExactlyOneOf(
			path.MatchRoot("name"),
			path.MatchRoot("gid"),
		),
	}
}

func (d *NSSGroupDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.providerData = providerDataFrom(req.ProviderData, "Unexpected Data Source Configure Type", &resp.Diagnostics)
}

func (d *NSSGroupDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data NSSGroupDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	var err error
	if !data.Name.IsNull() {
		name := data.Name.ValueString()
		data.ID = types.StringValue("group:" + name)

		var gid int
		gid, err = d.providerData.Host.GIDByGroupName(ctx, name)
		if err == nil {
			data.GID = types.Int64Value(int64(gid))
		} else {
			data.GID = types.Int64Null()
		}
	} else {
		gid := data.GID.ValueInt64()
		data.ID = types.StringValue(fmt.Sprintf("gid:%d", gid))

		var name string
		name, err = d.providerData.Host.GroupNameByGID(ctx, int(gid))
		if err == nil {
			data.Name = types.StringValue(name)
		} else {
			data.Name = types.StringNull()
		}
	}

	if err != nil && !errors.Is(err, host.ErrNoEntry) {
		resp.Diagnostics.AddError(
			"Error Resolving Group",
			"Could not resolve group on the local host: "+err.Error(),
		)
		return
	}
	data.Found = types.BoolValue(err == nil)

	tflog.Debug(ctx, "Resolved group through NSS", map[string]any{
		"id":    data.ID.ValueString(),
		"found": err == nil,
	})

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// NSSUserDataSource resolves a uid through the name service switch of the host
// running Terraform.
type NSSUserDataSource struct {
	providerData *ipa.ProviderData
}

// NSSUserDataSourceModel describes the data source data model.
type NSSUserDataSourceModel struct {
	ID    types.String `tfsdk:"id"`
	UID   types.Int64  `tfsdk:"uid"`
	Name  types.String `tfsdk:"name"`
	Found types.Bool   `tfsdk:"found"`
}

func (d *NSSUserDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_nss_user"
}

func (d *NSSUserDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Resolves a uid to a login name on the local host with `getent passwd`.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The lookup key.",
				Computed:            true,
			},
			"uid": schema.Int64Attribute{
				MarkdownDescription: "The uid to resolve.",
				Required:            true,
				Validators: []validator.Int64{
					int64validator.AtLeast(0),
				},
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The resolved login name, null when not found.",
				Computed:            true,
			},
			"found": schema.BoolAttribute{
				MarkdownDescription: "Whether the host has a matching passwd entry.",
				Computed:            true,
			},
		},
	}
}

func (d *NSSUserDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.providerData = providerDataFrom(req.ProviderData, "Unexpected Data Source Configure Type", &resp.Diagnostics)
}

func (d *NSSUserDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data NSSUserDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	uid := data.UID.ValueInt64()
	data.ID = types.StringValue(fmt.Sprintf("uid:%d", uid))

	name, err := d.providerData.Host.UserNameByUID(ctx, int(uid))
	switch {
	case err == nil:
		data.Name = types.StringValue(name)
		data.Found = types.BoolValue(true)
	case errors.Is(err, host.ErrNoEntry):
		data.Name = types.StringNull()
		data.Found = types.BoolValue(false)
	default:
		resp.Diagnostics.AddError(
			"Error Resolving User",
			"Could not resolve uid on the local host: "+err.Error(),
		)
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
