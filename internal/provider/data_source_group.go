package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
	"github.com/isometry/terraform-provider-ipa/internal/provider/helpers"
	"github.com/isometry/terraform-provider-ipa/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &GroupDataSource{}

func NewGroupDataSource() datasource.DataSource {
	return &GroupDataSource{}
}

// GroupDataSource defines the data source implementation.
type GroupDataSource struct {
	providerData *ipa.ProviderData
}

// GroupDataSourceModel describes the data source data model.
type GroupDataSourceModel struct {
	ID           types.String `tfsdk:"id"`
	Name         types.String `tfsdk:"name"`
	Description  types.String `tfsdk:"description"`
	GID          types.Int64  `tfsdk:"gid"`
	UniqueID     types.String `tfsdk:"unique_id"`
	Users        types.Set    `tfsdk:"users"`
	MemberUsers  types.Set    `tfsdk:"member_users"`
	MemberGroups types.Set    `tfsdk:"member_groups"`
	UserCount    types.Int64  `tfsdk:"user_count"`
}

func (d *GroupDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_group"
}

func (d *GroupDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves information about a FreeIPA group, including its direct and indirect member users.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The name of the group.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The name of the group to look up.",
				Required:            true,
				Validators: []validator.String{
					validators.IsValidName(),
				},
			},
			"description": schema.StringAttribute{
				MarkdownDescription: "The description of the group, empty when unset.",
				Computed:            true,
			},
			"gid": schema.Int64Attribute{
				MarkdownDescription: "The POSIX gid number of the group, 0 for non-POSIX groups.",
				Computed:            true,
			},
			"unique_id": schema.StringAttribute{
				MarkdownDescription: "The ipaUniqueID of the group entry.",
				Computed:            true,
			},
			"users": schema.SetAttribute{
				MarkdownDescription: "All member users of the group, direct and indirect.",
				Computed:            true,
				ElementType:         types.StringType,
			},
			"member_users": schema.SetAttribute{
				MarkdownDescription: "The direct member users of the group.",
				Computed:            true,
				ElementType:         types.StringType,
			},
			"member_groups": schema.SetAttribute{
				MarkdownDescription: "The direct member groups of the group.",
				Computed:            true,
				ElementType:         types.StringType,
			},
			"user_count": schema.Int64Attribute{
				MarkdownDescription: "The number of users in `users`.",
				Computed:            true,
			},
		},
	}
}

func (d *GroupDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.providerData = providerDataFrom(req.ProviderData, "Unexpected Data Source Configure Type", &resp.Diagnostics)
}

func (d *GroupDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data GroupDataSourceModel

	ctx = initializeLogging(ctx)

	// Read Terraform configuration data into the model
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	group, err := d.providerData.Groups.GetGroup(ctx, data.Name.ValueString())
	if err != nil {
		if ipa.IsNotFoundError(err) {
			resp.Diagnostics.AddError(
				"Group Not Found",
				"The FreeIPA group "+data.Name.ValueString()+" does not exist.",
			)
			return
		}
		resp.Diagnostics.AddError(
			"Error Reading Group",
			"Could not read FreeIPA group: "+err.Error(),
		)
		return
	}

	// Log the successful retrieval
	tflog.Debug(ctx, "Successfully retrieved IPA group", map[string]any{
		"group":      group.Group,
		"gid":        group.GID,
		"user_count": len(group.Users),
	})

	d.mapGroupToModel(group, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	// Save data into Terraform state
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// mapGroupToModel maps the IPA group data to the Terraform model.
func (d *GroupDataSource) mapGroupToModel(group *ipa.Group, data *GroupDataSourceModel, diags *diag.Diagnostics) {
	data.ID = types.StringValue(group.Group)
	data.Name = types.StringValue(group.Group)
	data.Description = types.StringValue(group.Description)
	data.GID = types.Int64Value(int64(group.GID))
	data.UniqueID = types.StringValue(group.UniqueID.String())
	data.UserCount = types.Int64Value(int64(len(group.Users)))

	var d2 diag.Diagnostics
	data.Users, d2 = helpers.SliceToStringSet(group.Users)
	diags.Append(d2...)
	data.MemberUsers, d2 = helpers.SliceToStringSet(group.MemberUsers)
	diags.Append(d2...)
	data.MemberGroups, d2 = helpers.SliceToStringSet(group.MemberGroups)
	diags.Append(d2...)
}
