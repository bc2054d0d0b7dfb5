package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/datasourcevalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
	"github.com/isometry/terraform-provider-ipa/internal/provider/helpers"
	"github.com/isometry/terraform-provider-ipa/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &UsersDataSource{}
var _ datasource.DataSourceWithConfigValidators = &UsersDataSource{}

func NewUsersDataSource() datasource.DataSource {
	return &UsersDataSource{}
}

// UsersDataSource searches FreeIPA users.
type UsersDataSource struct {
	providerData *ipa.ProviderData
}

// UsersDataSourceModel describes the data source data model.
type UsersDataSourceModel struct {
	ID             types.String `tfsdk:"id"`
	User           types.String `tfsdk:"user"`
	Email          types.String `tfsdk:"email"`
	EmployeeNumber types.String `tfsdk:"employee_number"`
	Users          types.List   `tfsdk:"users"`
	UserCount      types.Int64  `tfsdk:"user_count"`
}

func (d *UsersDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_users"
}

func (d *UsersDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Searches FreeIPA users. Every given criterion must match; at least one is required.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "A stable identifier derived from the search criteria.",
				Computed:            true,
			},
			"user": schema.StringAttribute{
				MarkdownDescription: "Match users whose login name contains this value.",
				Optional:            true,
			},
			"email": schema.StringAttribute{
				MarkdownDescription: "Match users with this email address.",
				Optional:            true,
				Validators: []validator.String{
					validators.IsValidMail(),
				},
			},
			"employee_number": schema.StringAttribute{
				MarkdownDescription: "Match users with this employee number.",
				Optional:            true,
			},
			"users": schema.ListAttribute{
				MarkdownDescription: "Login names of the matching users, in server order.",
				Computed:            true,
				ElementType:         types.StringType,
			},
			"user_count": schema.Int64Attribute{
				MarkdownDescription: "The number of matching users.",
				Computed:            true,
			},
		},
	}
}

// ConfigValidators implements datasource.DataSourceWithConfigValidators.
func (d *UsersDataSource) ConfigValidators(ctx context.Context) []datasource.ConfigValidator {
	return []datasource.ConfigValidator{
		datasourcevalidator.AtLeastOneOf(
			path.MatchRoot("user"),
			path.MatchRoot("email"),
			path.MatchRoot("employee_number"),
		),
	}
}

func (d *UsersDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.providerData = providerDataFrom(req.ProviderData, "Unexpected Data Source Configure Type", &resp.Diagnostics)
}

func (d *UsersDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data UsersDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	filter := &ipa.UserSearchFilter{
		User:           data.User.ValueString(),
		Email:          data.Email.ValueString(),
		EmployeeNumber: data.EmployeeNumber.ValueString(),
	}

	done := ipa.LogDataSourceOperation(ctx, "ipa_users", "read", map[string]any{
		"user":            filter.User,
		"email":           filter.Email,
		"employee_number": filter.EmployeeNumber,
	})
	users, err := d.providerData.Users.FindUsers(ctx, filter)
	done(err)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Searching Users",
			"Could not search FreeIPA users: "+err.Error(),
		)
		return
	}

	data.ID = types.StringValue(fmt.Sprintf("users:%s:%s:%s", filter.User, filter.Email, filter.EmployeeNumber))
	data.UserCount = types.Int64Value(int64(len(users)))

	list, diags := helpers.SliceToStringList(users)
	resp.Diagnostics.Append(diags...)
	data.Users = list
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
