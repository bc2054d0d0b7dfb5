package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
	"github.com/isometry/terraform-provider-ipa/internal/provider/helpers"
	"github.com/isometry/terraform-provider-ipa/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &UserDataSource{}

func NewUserDataSource() datasource.DataSource {
	return &UserDataSource{}
}

// UserDataSource defines the data source implementation.
type UserDataSource struct {
	providerData *ipa.ProviderData
}

// UserDataSourceModel describes the data source data model.
type UserDataSourceModel struct {
	ID             types.String `tfsdk:"id"`
	User           types.String `tfsdk:"user"`
	FirstName      types.String `tfsdk:"first_name"`
	LastName       types.String `tfsdk:"last_name"`
	Email          types.String `tfsdk:"email"`
	EmployeeNumber types.String `tfsdk:"employee_number"`
	SSHPublicKeys  types.Set    `tfsdk:"ssh_public_keys"`
	UID            types.Int64  `tfsdk:"uid"`
	GID            types.Int64  `tfsdk:"gid"`
	UniqueID       types.String `tfsdk:"unique_id"`
}

func (d *UserDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_user"
}

func (d *UserDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves a FreeIPA user by login name.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The login name of the user.",
				Computed:            true,
			},
			"user": schema.StringAttribute{
				MarkdownDescription: "The login name of the user to look up.",
				Required:            true,
				Validators: []validator.String{
					validators.IsValidName(),
				},
			},
			"first_name": schema.StringAttribute{
				MarkdownDescription: "The given name of the user.",
				Computed:            true,
			},
			"last_name": schema.StringAttribute{
				MarkdownDescription: "The surname of the user.",
				Computed:            true,
			},
			"email": schema.StringAttribute{
				MarkdownDescription: "The primary email address of the user.",
				Computed:            true,
			},
			"employee_number": schema.StringAttribute{
				MarkdownDescription: "The employee number of the user, empty when unset.",
				Computed:            true,
			},
			"ssh_public_keys": schema.SetAttribute{
				MarkdownDescription: "SSH public keys of the user in authorized_keys format.",
				Computed:            true,
				ElementType:         types.StringType,
			},
			"uid": schema.Int64Attribute{
				MarkdownDescription: "The POSIX uid number of the user.",
				Computed:            true,
			},
			"gid": schema.Int64Attribute{
				MarkdownDescription: "The POSIX gid number of the user's primary group.",
				Computed:            true,
			},
			"unique_id": schema.StringAttribute{
				MarkdownDescription: "The ipaUniqueID of the user entry.",
				Computed:            true,
			},
		},
	}
}

func (d *UserDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.providerData = providerDataFrom(req.ProviderData, "Unexpected Data Source Configure Type", &resp.Diagnostics)
}

func (d *UserDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data UserDataSourceModel

	ctx = initializeLogging(ctx)

	// Read Terraform configuration data into the model
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	user, err := d.providerData.Users.GetUser(ctx, data.User.ValueString())
	if err != nil {
		if ipa.IsNotFoundError(err) {
			resp.Diagnostics.AddError(
				"User Not Found",
				"The FreeIPA user "+data.User.ValueString()+" does not exist.",
			)
			return
		}
		resp.Diagnostics.AddError(
			"Error Reading User",
			"Could not read FreeIPA user: "+err.Error(),
		)
		return
	}

	tflog.Debug(ctx, "Successfully retrieved IPA user", map[string]any{
		"user": user.User,
		"uid":  user.UID,
	})

	data.ID = types.StringValue(user.User)
	data.User = types.StringValue(user.User)
	data.FirstName = types.StringValue(user.FirstName)
	data.LastName = types.StringValue(user.LastName)
	data.Email = types.StringValue(user.Email)
	data.EmployeeNumber = types.StringValue(user.EmployeeNumber)
	data.UID = types.Int64Value(int64(user.UID))
	data.GID = types.Int64Value(int64(user.GID))
	data.UniqueID = types.StringValue(user.UniqueID.String())

	keys, diags := helpers.SliceToStringSet(user.SSHKeys)
	resp.Diagnostics.Append(diags...)
	data.SSHPublicKeys = keys
	if resp.Diagnostics.HasError() {
		return
	}

	// Save data into Terraform state
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
