package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/datasourcevalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
	"github.com/isometry/terraform-provider-ipa/internal/provider/helpers"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &GroupsDataSource{}
var _ datasource.DataSourceWithConfigValidators = &GroupsDataSource{}

func NewGroupsDataSource() datasource.DataSource {
	return &GroupsDataSource{}
}

// GroupsDataSource searches FreeIPA groups.
type GroupsDataSource struct {
	providerData *ipa.ProviderData
}

// GroupsDataSourceModel describes the data source data model.
type GroupsDataSourceModel struct {
	ID         types.String `tfsdk:"id"`
	Name       types.String `tfsdk:"name"`
	GID        types.Int64  `tfsdk:"gid"`
	Groups     types.List   `tfsdk:"groups"`
	GroupCount types.Int64  `tfsdk:"group_count"`
}

func (d *GroupsDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_groups"
}

func (d *GroupsDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Searches FreeIPA groups by name or gid. At least one criterion is required.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "A stable identifier derived from the search criteria.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "Match groups whose name contains this value.",
				Optional:            true,
			},
			"gid": schema.Int64Attribute{
				MarkdownDescription: "Match the group with this gid number. A gid of `0` is ignored.",
				Optional:            true,
				Validators: []validator.Int64{
					int64validator.AtLeast(0),
				},
			},
			"groups": schema.ListAttribute{
				MarkdownDescription: "Names of the matching groups, in server order.",
				Computed:            true,
				ElementType:         types.StringType,
			},
			"group_count": schema.Int64Attribute{
				MarkdownDescription: "The number of matching groups.",
				Computed:            true,
			},
		},
	}
}

// ConfigValidators implements datasource.DataSourceWithConfigValidators.
func (d *GroupsDataSource) ConfigValidators(ctx context.Context) []datasource.ConfigValidator {
	return []datasource.ConfigValidator{
		datasourcevalidator.AtLeastOneOf(
			path.MatchRoot("name"),
			path.MatchRoot("gid"),
		),
	}
}

func (d *GroupsDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.providerData = providerDataFrom(req.ProviderData, "Unexpected Data Source Configure Type", &resp.Diagnostics)
}

func (d *GroupsDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data GroupsDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	filter := &ipa.GroupSearchFilter{
		Group: data.Name.ValueString(),
		GID:   helpers.OptionalInt(data.GID),
	}

	done := ipa.LogDataSourceOperation(ctx, "ipa_groups", "read", map[string]any{
		"name": filter.Group,
		"gid":  data.GID.ValueInt64(),
	})
	groups, err := d.providerData.Groups.FindGroups(ctx, filter)
	done(err)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Searching Groups",
			"Could not search FreeIPA groups: "+err.Error(),
		)
		return
	}

	gid := ""
	if filter.GID != nil {
		gid = fmt.Sprint(*filter.GID)
	}
	data.ID = types.StringValue(fmt.Sprintf("groups:%s:%s", filter.Group, gid))
	data.GroupCount = types.Int64Value(int64(len(groups)))

	list, diags := helpers.SliceToStringList(groups)
	resp.Diagnostics.Append(diags...)
	data.Groups = list
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
