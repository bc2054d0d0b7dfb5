package provider

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/setvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/int64planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
	customtypes "github.com/isometry/terraform-provider-ipa/internal/provider/types"
	"github.com/isometry/terraform-provider-ipa/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ resource.Resource = &UserResource{}
var _ resource.ResourceWithImportState = &UserResource{}

// NewUserResource creates a new instance of the user resource.
func NewUserResource() resource.Resource {
	return &UserResource{}
}

// UserResource defines the resource implementation.
type UserResource struct {
	providerData *ipa.ProviderData
}

// UserResourceModel describes the resource data model.
type UserResourceModel struct {
	ID             types.String               `tfsdk:"id"`              // login name (computed)
	User           types.String               `tfsdk:"user"`            // Required - uid
	FirstName      types.String               `tfsdk:"first_name"`      // Required - givenname
	LastName       types.String               `tfsdk:"last_name"`       // Required - sn
	Email          types.String               `tfsdk:"email"`           // Optional+Computed - mail
	EmployeeNumber types.String               `tfsdk:"employee_number"` // Optional
	SSHPublicKeys  customtypes.SSHKeySetValue `tfsdk:"ssh_public_keys"` // Optional - ipasshpubkey
	// Computed attributes
	UID      types.Int64  `tfsdk:"uid"`
	GID      types.Int64  `tfsdk:"gid"`
	UniqueID types.String `tfsdk:"unique_id"`
}

func (r *UserResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_user"
}

func (r *UserResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages a FreeIPA user account. The uid and gid are assigned by the server when the user is created.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The login name of the user.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"user": schema.StringAttribute{
				MarkdownDescription: "The login name of the user. Must start with a lowercase letter followed by at least one " +
					"lowercase letter, digit, underscore or hyphen. Changing this forces a new user.",
				Required: true,
				Validators: []validator.String{
					validators.IsValidName(),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"first_name": schema.StringAttribute{
				MarkdownDescription: "The given name of the user.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"last_name": schema.StringAttribute{
				MarkdownDescription: "The surname of the user.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"email": schema.StringAttribute{
				MarkdownDescription: "The primary email address of the user. FreeIPA assigns `<user>@<domain>` when not set.",
				Optional:            true,
				Computed:            true,
				Validators: []validator.String{
					validators.IsValidMail(),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"employee_number": schema.StringAttribute{
				MarkdownDescription: "The employee number of the user.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"ssh_public_keys": schema.SetAttribute{
				MarkdownDescription: "SSH public keys of the user in authorized_keys format. " +
					"Keys that differ only in whitespace are treated as equal.",
				Optional:    true,
				CustomType:  customtypes.NewSSHKeySetType(),
				ElementType: types.StringType,
				Validators: []validator.Set{
					setvalidator.SizeAtLeast(1),
					setvalidator.ValueStringsAre(validators.IsValidSSHPublicKey()),
				},
			},
			"uid": schema.Int64Attribute{
				MarkdownDescription: "The POSIX uid number assigned to the user.",
				Computed:            true,
				PlanModifiers: []planmodifier.Int64{
					int64planmodifier.UseStateForUnknown(),
				},
			},
			"gid": schema.Int64Attribute{
				MarkdownDescription: "The POSIX gid number of the user's private group.",
				Computed:            true,
				PlanModifiers: []planmodifier.Int64{
					int64planmodifier.UseStateForUnknown(),
				},
			},
			"unique_id": schema.StringAttribute{
				MarkdownDescription: "The ipaUniqueID of the user entry.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
		},
	}
}

func (r *UserResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.providerData = providerDataFrom(req.ProviderData, "Unexpected Resource Configure Type", &resp.Diagnostics)
}

func (r *UserResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data UserResourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	// Read Terraform plan data into the model
	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)

	if resp.Diagnostics.HasError() {
		return
	}

	// Set up entry/exit logging
	start := time.Now()
	tflog.Debug(ctx, "Starting resource operation", map[string]any{
		"operation": "create",
		"resource":  "ipa_user",
		"user":      data.User.ValueString(),
	})
	defer func() {
		duration := time.Since(start)
		if resp.Diagnostics.HasError() {
			tflog.Error(ctx, "Resource operation failed", map[string]any{
				"operation":   "create",
				"resource":    "ipa_user",
				"duration_ms": duration.Milliseconds(),
			})
		} else {
			tflog.Info(ctx, "Resource operation completed", map[string]any{
				"operation":   "create",
				"resource":    "ipa_user",
				"duration_ms": duration.Milliseconds(),
			})
		}
	}()

	createReq := &ipa.CreateUserRequest{
		User:      data.User.ValueString(),
		FirstName: data.FirstName.ValueString(),
		LastName:  data.LastName.ValueString(),
	}
	if !data.Email.IsNull() && !data.Email.IsUnknown() {
		createReq.Email = data.Email.ValueString()
	}
	if !data.EmployeeNumber.IsNull() {
		createReq.EmployeeNumber = data.EmployeeNumber.ValueString()
	}

	ids, err := r.providerData.Users.CreateUser(ctx, createReq)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Creating User",
			"Could not create user, unexpected error: "+err.Error(),
		)
		return
	}

	tflog.Debug(ctx, "Created IPA user", map[string]any{
		"user": createReq.User,
		"uid":  ids.UID,
		"gid":  ids.GID,
	})

	// Track the user from here on, so a later failure leaves a tainted resource
	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("id"), createReq.User)...)
	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("user"), createReq.User)...)
	if resp.Diagnostics.HasError() {
		return
	}

	// user_add does not take SSH keys, so they are added with a follow-up user_mod
	keys := r.sshKeysFromModel(ctx, data.SSHPublicKeys, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}
	if len(keys) > 0 {
		err = r.providerData.Users.ModifyUser(ctx, createReq.User, &ipa.ModifyUserRequest{SSHPublicKeys: keys})
		if err != nil {
			resp.Diagnostics.AddError(
				"Error Setting User SSH Keys",
				"User was created but its SSH public keys could not be set: "+err.Error(),
			)
			return
		}
	}

	r.providerData.AfterChange(ctx)

	user, err := r.providerData.Users.GetUser(ctx, createReq.User)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Reading User",
			"Could not read user after creation: "+err.Error(),
		)
		return
	}

	r.updateModelFromUser(ctx, &data, user, &resp.Diagnostics)

	// Save data into Terraform state
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data UserResourceModel

	ctx = initializeLogging(ctx)

	// Read Terraform prior state data into the model
	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)

	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Reading IPA user", map[string]any{
		"user": data.ID.ValueString(),
	})

	user, err := r.providerData.Users.GetUser(ctx, data.ID.ValueString())
	if err != nil {
		if ipa.IsNotFoundError(err) {
			tflog.Warn(ctx, "IPA user no longer exists, removing from state", map[string]any{
				"user": data.ID.ValueString(),
			})
			resp.State.RemoveResource(ctx)
			return
		}

		resp.Diagnostics.AddError(
			"Error Reading User",
			"Could not read user "+data.ID.ValueString()+": "+err.Error(),
		)
		return
	}

	r.updateModelFromUser(ctx, &data, user, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data, currentData UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &currentData)...)

	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Updating IPA user", map[string]any{
		"user": data.ID.ValueString(),
	})

	updateReq := r.buildModifyRequest(ctx, &data, &currentData, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	if updateReq != nil {
		if err := r.providerData.Users.ModifyUser(ctx, data.ID.ValueString(), updateReq); err != nil {
			resp.Diagnostics.AddError(
				"Error Updating User",
				"Could not update user, unexpected error: "+err.Error(),
			)
			return
		}
		r.providerData.AfterChange(ctx)
	} else {
		tflog.Debug(ctx, "No changes detected for IPA user")
	}

	user, err := r.providerData.Users.GetUser(ctx, data.ID.ValueString())
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Reading User",
			"Could not read user after update: "+err.Error(),
		)
		return
	}

	r.updateModelFromUser(ctx, &data, user, &resp.Diagnostics)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)

	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Deleting IPA user", map[string]any{
		"user": data.ID.ValueString(),
	})

	err := r.providerData.Users.DeleteUser(ctx, data.ID.ValueString())
	if err != nil && !ipa.IsNotFoundError(err) {
		resp.Diagnostics.AddError(
			"Error Deleting User",
			"Could not delete user, unexpected error: "+err.Error(),
		)
		return
	}

	r.providerData.AfterChange(ctx)
}

func (r *UserResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	importID := strings.TrimSpace(req.ID)

	tflog.Debug(ctx, "Importing IPA user", map[string]any{
		"import_id": importID,
	})

	if !ipa.ValidateName(importID) {
		resp.Diagnostics.AddError(
			"Invalid Import ID",
			"Expected the login name of an existing FreeIPA user, got: "+req.ID,
		)
		return
	}

	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("id"), importID)...)
	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("user"), importID)...)
}

// buildModifyRequest compares plan and state and returns the user_mod request,
// or nil when nothing changed.
func (r *UserResource) buildModifyRequest(ctx context.Context, plan, state *UserResourceModel, diags *diag.Diagnostics) *ipa.ModifyUserRequest {
	updateReq := &ipa.ModifyUserRequest{}
	hasChanges := false

	if !plan.FirstName.Equal(state.FirstName) {
		updateReq.FirstName = plan.FirstName.ValueString()
		hasChanges = true
	}

	if !plan.LastName.Equal(state.LastName) {
		updateReq.LastName = plan.LastName.ValueString()
		hasChanges = true
	}

	if !plan.Email.IsUnknown() && !plan.Email.IsNull() && !plan.Email.Equal(state.Email) {
		updateReq.Email = plan.Email.ValueString()
		hasChanges = true
	}

	if !plan.EmployeeNumber.Equal(state.EmployeeNumber) {
		if plan.EmployeeNumber.IsNull() {
			updateReq.ClearEmployeeNumber = true
		} else {
			updateReq.EmployeeNumber = plan.EmployeeNumber.ValueString()
		}
		hasChanges = true
	}

	keysEqual, keyDiags := plan.SSHPublicKeys.SetSemanticEquals(ctx, state.SSHPublicKeys)
	diags.Append(keyDiags...)
	if !keysEqual {
		keys := r.sshKeysFromModel(ctx, plan.SSHPublicKeys, diags)
		if len(keys) == 0 {
			updateReq.ClearSSHPublicKeys = true
		} else {
			updateReq.SSHPublicKeys = keys
		}
		hasChanges = true
	}

	if !hasChanges {
		return nil
	}
	return updateReq
}

func (r *UserResource) sshKeysFromModel(ctx context.Context, value customtypes.SSHKeySetValue, diags *diag.Diagnostics) []string {
	if value.IsNull() || value.IsUnknown() {
		return nil
	}

	var keys []string
	diags.Append(value.ElementsAs(ctx, &keys, false)...)
	return keys
}

// updateModelFromUser copies the server view of a user into the model. SSH keys
// keep the configured representation when they are semantically equal, so
// whitespace differences do not cause a perpetual diff.
func (r *UserResource) updateModelFromUser(ctx context.Context, data *UserResourceModel, user *ipa.User, diags *diag.Diagnostics) {
	data.ID = types.StringValue(user.User)
	data.User = types.StringValue(user.User)
	data.FirstName = types.StringValue(user.FirstName)
	data.LastName = types.StringValue(user.LastName)
	data.Email = types.StringValue(user.Email)
	data.UID = types.Int64Value(int64(user.UID))
	data.GID = types.Int64Value(int64(user.GID))
	data.UniqueID = types.StringValue(user.UniqueID.String())

	if user.EmployeeNumber == "" {
		data.EmployeeNumber = types.StringNull()
	} else {
		data.EmployeeNumber = types.StringValue(user.EmployeeNumber)
	}

	if len(user.SSHKeys) == 0 {
		data.SSHPublicKeys = customtypes.SSHKeySetNull()
		return
	}

	serverKeys, keyDiags := customtypes.SSHKeySet(ctx, user.SSHKeys)
	diags.Append(keyDiags...)
	if keyDiags.HasError() {
		return
	}

	if !data.SSHPublicKeys.IsNull() && !data.SSHPublicKeys.IsUnknown() {
		equal, eqDiags := data.SSHPublicKeys.SetSemanticEquals(ctx, serverKeys)
		diags.Append(eqDiags...)
		if equal {
			return
		}
	}
	data.SSHPublicKeys = serverKeys
}
