package provider

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
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
	"github.com/isometry/terraform-provider-ipa/internal/provider/helpers"
	"github.com/isometry/terraform-provider-ipa/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ resource.Resource = &GroupResource{}
var _ resource.ResourceWithImportState = &GroupResource{}

// NewGroupResource creates a new instance of the group resource.
func NewGroupResource() resource.Resource {
	return &GroupResource{}
}

// GroupResource defines the resource implementation.
type GroupResource struct {
	providerData *ipa.ProviderData
}

// GroupResourceModel describes the resource data model.
type GroupResourceModel struct {
	ID          types.String `tfsdk:"id"`          // group name (computed)
	Name        types.String `tfsdk:"name"`        // Required - cn attribute
	Description types.String `tfsdk:"description"` // Optional
	GID         types.Int64  `tfsdk:"gid"`         // Optional+Computed - gidnumber
	// Computed attributes
	UniqueID     types.String `tfsdk:"unique_id"`
	Users        types.Set    `tfsdk:"users"`
	MemberUsers  types.Set    `tfsdk:"member_users"`
	MemberGroups types.Set    `tfsdk:"member_groups"`
}

func (r *GroupResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_group"
}

func (r *GroupResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		// This description is used by the documentation generator and the language server.
		MarkdownDescription: "Manages a FreeIPA group. Membership is managed separately with `ipa_group_membership`.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The name of the group.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The name of the group (cn attribute). Changing this forces a new group.",
				Required:            true,
				Validators: []validator.String{
					validators.IsValidName(),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"description": schema.StringAttribute{
				MarkdownDescription: "A description for the group.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(1, 1024),
				},
			},
			"gid": schema.Int64Attribute{
				MarkdownDescription: "The POSIX gid number of the group. Assigned by the server when not set.",
				Optional:            true,
				Computed:            true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
				PlanModifiers: []planmodifier.Int64{
					int64planmodifier.UseStateForUnknown(),
				},
			},
			"unique_id": schema.StringAttribute{
				MarkdownDescription: "The ipaUniqueID of the group entry.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
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
		},
	}
}

func (r *GroupResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.providerData = providerDataFrom(req.ProviderData, "Unexpected Resource Configure Type", &resp.Diagnostics)
}

func (r *GroupResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data GroupResourceModel

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
		"resource":  "ipa_group",
		"name":      data.Name.ValueString(),
	})
	defer func() {
		duration := time.Since(start)
		if resp.Diagnostics.HasError() {
			tflog.Error(ctx, "Resource operation failed", map[string]any{
				"operation":   "create",
				"resource":    "ipa_group",
				"duration_ms": duration.Milliseconds(),
			})
		} else {
			tflog.Info(ctx, "Resource operation completed", map[string]any{
				"operation":   "create",
				"resource":    "ipa_group",
				"duration_ms": duration.Milliseconds(),
			})
		}
	}()

	createReq := &ipa.CreateGroupRequest{
		Group:       data.Name.ValueString(),
		GID:         helpers.OptionalInt(data.GID),
		Description: data.Description.ValueString(),
	}

	gid, err := r.providerData.Groups.CreateGroup(ctx, createReq)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Creating Group",
			"Could not create group, unexpected error: "+err.Error(),
		)
		return
	}

	tflog.Debug(ctx, "Created IPA group", map[string]any{
		"name": createReq.Group,
		"gid":  gid,
	})

	// Track the group from here on, so a later failure leaves a tainted resource
	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("id"), createReq.Group)...)
	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("name"), createReq.Group)...)
	if resp.Diagnostics.HasError() {
		return
	}

	r.providerData.AfterChange(ctx)

	group, err := r.providerData.Groups.GetGroup(ctx, createReq.Group)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Reading Group",
			"Could not read group after creation: "+err.Error(),
		)
		return
	}

	r.updateModelFromGroup(&data, group, &resp.Diagnostics)

	// Save data into Terraform state
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data GroupResourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	// Read Terraform prior state data into the model
	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)

	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Reading IPA group", map[string]any{
		"name": data.ID.ValueString(),
	})

	group, err := r.providerData.Groups.GetGroup(ctx, data.ID.ValueString())
	if err != nil {
		// Check if the group was not found
		if ipa.IsNotFoundError(err) {
			resp.State.RemoveResource(ctx)
			return
		}

		resp.Diagnostics.AddError(
			"Error Reading Group",
			"Could not read group "+data.ID.ValueString()+": "+err.Error(),
		)
		return
	}

	// Update the model with the current group data
	r.updateModelFromGroup(&data, group, &resp.Diagnostics)

	// Save updated data into Terraform state
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data GroupResourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	// Read Terraform plan data into the model
	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)

	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Updating IPA group", map[string]any{
		"name": data.ID.ValueString(),
	})

	var currentData GroupResourceModel
	resp.Diagnostics.Append(req.State.Get(ctx, &currentData)...)
	if resp.Diagnostics.HasError() {
		return
	}

	// Create update request
	updateReq := &ipa.ModifyGroupRequest{}
	hasChanges := false

	// Check for description changes; a removed description is cleared
	if !data.Description.Equal(currentData.Description) {
		description := data.Description.ValueString()
		updateReq.Description = &description
		hasChanges = true
	}

	// Check for gid changes
	if !data.GID.IsUnknown() && !data.GID.Equal(currentData.GID) {
		updateReq.GID = helpers.OptionalInt(data.GID)
		hasChanges = true
	}

	if hasChanges {
		if err := r.providerData.Groups.ModifyGroup(ctx, data.ID.ValueString(), updateReq); err != nil {
			resp.Diagnostics.AddError(
				"Error Updating Group",
				"Could not update group, unexpected error: "+err.Error(),
			)
			return
		}
		r.providerData.AfterChange(ctx)
	} else {
		tflog.Debug(ctx, "No changes detected for IPA group")
	}

	group, err := r.providerData.Groups.GetGroup(ctx, data.ID.ValueString())
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Reading Group",
			"Could not read group after update: "+err.Error(),
		)
		return
	}

	// Update the model with the updated group data
	r.updateModelFromGroup(&data, group, &resp.Diagnostics)

	// Save updated data into Terraform state
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data GroupResourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	// Read Terraform prior state data into the model
	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)

	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Deleting IPA group", map[string]any{
		"name": data.ID.ValueString(),
	})

	err := r.providerData.Groups.DeleteGroup(ctx, data.ID.ValueString())
	if err != nil && !ipa.IsNotFoundError(err) {
		resp.Diagnostics.AddError(
			"Error Deleting Group",
			"Could not delete group, unexpected error: "+err.Error(),
		)
		return
	}

	r.providerData.AfterChange(ctx)

	tflog.Debug(ctx, "Deleted IPA group", map[string]any{
		"name": data.ID.ValueString(),
	})
}

func (r *GroupResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	importID := strings.TrimSpace(req.ID)

	tflog.Debug(ctx, "Importing IPA group", map[string]any{
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
	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("name"), importID)...)
}

// updateModelFromGroup updates the Terraform model with data from the IPA group.
func (r *GroupResource) updateModelFromGroup(data *GroupResourceModel, group *ipa.Group, diags *diag.Diagnostics) {
	data.ID = types.StringValue(group.Group)
	data.Name = types.StringValue(group.Group)
	data.Description = helpers.StringValueOrNull(group.Description)
	data.GID = types.Int64Value(int64(group.GID))
	data.UniqueID = types.StringValue(group.UniqueID.String())

	var d diag.Diagnostics
	data.Users, d = helpers.SliceToStringSet(group.Users)
	diags.Append(d...)
	data.MemberUsers, d = helpers.SliceToStringSet(group.MemberUsers)
	diags.Append(d...)
	data.MemberGroups, d = helpers.SliceToStringSet(group.MemberGroups)
	diags.Append(d...)
}
