package provider

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/setvalidator"
	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/setdefault"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
	"github.com/isometry/terraform-provider-ipa/internal/provider/helpers"
	"github.com/isometry/terraform-provider-ipa/internal/provider/validators"
)

var _ resource.Resource = &GroupMembershipResource{}
var _ resource.ResourceWithImportState = &GroupMembershipResource{}

func NewGroupMembershipResource() resource.Resource {
	return &GroupMembershipResource{}
}

// GroupMembershipResource manages the direct members of a FreeIPA group.
type GroupMembershipResource struct {
	providerData *ipa.ProviderData
}

// GroupMembershipResourceModel describes the resource data model.
type GroupMembershipResourceModel struct {
	ID     types.String `tfsdk:"id"`     // Group name (same as group)
	Group  types.String `tfsdk:"group"`  // Group name (required)
	Users  types.Set    `tfsdk:"users"`  // Direct member users
	Groups types.Set    `tfsdk:"groups"` // Direct member groups
}

func (r *GroupMembershipResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_group_membership"
}

func (r *GroupMembershipResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	emptySet := types.SetValueMust(types.StringType, []attr.Value{})

	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages the direct membership of a FreeIPA group. This resource is authoritative: " +
			"members not listed in `users` or `groups` are removed from the group.\n\n" +
			"Do not combine multiple `ipa_group_membership` resources for the same group.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The resource identifier, which is the name of the group.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"group": schema.StringAttribute{
				MarkdownDescription: "The name of the group whose membership is being managed. The group must already exist.",
				Required:            true,
				Validators: []validator.String{
					validators.IsValidName(),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"users": schema.SetAttribute{
				MarkdownDescription: "Login names of the users that are direct members of the group.",
				Optional:            true,
				Computed:            true,
				ElementType:         types.StringType,
				Default:             setdefault.StaticValue(emptySet),
				Validators: []validator.Set{
					setvalidator.ValueStringsAre(validators.IsValidName()),
				},
			},
			"groups": schema.SetAttribute{
				MarkdownDescription: "Names of the groups that are direct members of the group.",
				Optional:            true,
				Computed:            true,
				ElementType:         types.StringType,
				Default:             setdefault.StaticValue(emptySet),
				Validators: []validator.Set{
					setvalidator.ValueStringsAre(validators.IsValidName()),
				},
			},
		},
	}
}

func (r *GroupMembershipResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.providerData = providerDataFrom(req.ProviderData, "Unexpected Resource Configure Type", &resp.Diagnostics)
}

func (r *GroupMembershipResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data GroupMembershipResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	start := time.Now()
	tflog.Debug(ctx, "Starting resource operation", map[string]any{
		"operation": "create",
		"resource":  "ipa_group_membership",
		"group":     data.Group.ValueString(),
	})
	defer func() {
		duration := time.Since(start)
		if resp.Diagnostics.HasError() {
			tflog.Error(ctx, "Resource operation failed", map[string]any{
				"operation":   "create",
				"resource":    "ipa_group_membership",
				"duration_ms": duration.Milliseconds(),
			})
		} else {
			tflog.Info(ctx, "Resource operation completed", map[string]any{
				"operation":   "create",
				"resource":    "ipa_group_membership",
				"duration_ms": duration.Milliseconds(),
			})
		}
	}()

	r.applyMembership(ctx, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupMembershipResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data GroupMembershipResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Reading IPA group membership", map[string]any{
		"group": data.Group.ValueString(),
	})

	err := r.refreshMembershipState(ctx, &data, &resp.Diagnostics)
	if err != nil {
		if ipa.IsNotFoundError(err) {
			tflog.Warn(ctx, "Group no longer exists, removing membership from state", map[string]any{
				"group": data.Group.ValueString(),
			})
			resp.State.RemoveResource(ctx)
			return
		}

		resp.Diagnostics.AddError(
			"Error Reading Group Membership",
			"Could not read members of group "+data.Group.ValueString()+": "+err.Error(),
		)
		return
	}
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupMembershipResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data GroupMembershipResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Updating IPA group membership", map[string]any{
		"group": data.Group.ValueString(),
	})

	r.applyMembership(ctx, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupMembershipResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data GroupMembershipResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	done := ipa.LogResourceOperation(ctx, "ipa_group_membership", "delete", map[string]any{
		"group": data.Group.ValueString(),
	})
	err := r.providerData.Membership.SetGroupMembers(ctx, data.Group.ValueString(), nil, nil)
	done(err)
	if err != nil {
		if ipa.IsNotFoundError(err) {
			tflog.Debug(ctx, "Group already deleted", map[string]any{
				"group": data.Group.ValueString(),
			})
			return
		}

		resp.Diagnostics.AddError(
			"Error Deleting Group Membership",
			"Could not remove members from group "+data.Group.ValueString()+": "+err.Error(),
		)
		return
	}

	r.providerData.AfterChange(ctx)
}

func (r *GroupMembershipResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	importID := strings.TrimSpace(req.ID)

	tflog.Debug(ctx, "Importing IPA group membership", map[string]any{
		"import_id": importID,
	})

	if !ipa.ValidateName(importID) {
		resp.Diagnostics.AddError(
			"Invalid Import ID",
			"Expected the name of an existing FreeIPA group, got: "+req.ID,
		)
		return
	}

	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("id"), importID)...)
	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("group"), importID)...)
}

// applyMembership makes the planned members the exact direct membership of the
// group and refreshes the model from the server.
func (r *GroupMembershipResource) applyMembership(ctx context.Context, data *GroupMembershipResourceModel, diags *diag.Diagnostics) {
	users, d := helpers.StringSetToSlice(ctx, data.Users)
	diags.Append(d...)
	groups, d := helpers.StringSetToSlice(ctx, data.Groups)
	diags.Append(d...)
	if diags.HasError() {
		return
	}

	group := data.Group.ValueString()
	done := ipa.LogResourceOperation(ctx, "ipa_group_membership", "apply", map[string]any{
		"group":       group,
		"user_count":  len(users),
		"group_count": len(groups),
	})
	err := r.providerData.Membership.SetGroupMembers(ctx, group, users, groups)
	done(err)
	if err != nil {
		diags.AddError(
			"Error Setting Group Membership",
			"Could not set members of group "+group+": "+err.Error(),
		)
		return
	}

	r.providerData.AfterChange(ctx)

	if err := r.refreshMembershipState(ctx, data, diags); err != nil {
		diags.AddError(
			"Error Reading Group Membership",
			"Could not read members of group "+group+" after update: "+err.Error(),
		)
	}
}

// refreshMembershipState reads the current direct members into the model.
// Conversion problems are reported through diags; IPA failures are returned.
func (r *GroupMembershipResource) refreshMembershipState(ctx context.Context, model *GroupMembershipResourceModel, diags *diag.Diagnostics) error {
	users, groups, err := r.providerData.Membership.GetGroupMembers(ctx, model.Group.ValueString())
	if err != nil {
		return err
	}

	model.ID = model.Group

	var d diag.Diagnostics
	model.Users, d = helpers.SliceToStringSet(users)
	diags.Append(d...)
	model.Groups, d = helpers.SliceToStringSet(groups)
	diags.Append(d...)

	return nil
}
