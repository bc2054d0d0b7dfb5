package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/function"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
	customtypes "github.com/isometry/terraform-provider-ipa/internal/provider/types"
)

var (
	_ function.Function = &ValidNameFunction{}
	_ function.Function = &ValidMailFunction{}
	_ function.Function = &NormalizeSSHKeyFunction{}
)

// ValidNameFunction implements the valid_name function.
type ValidNameFunction struct{}

// Metadata returns the function name.
func (f ValidNameFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "valid_name"
}

// Definition returns the function schema including parameters and return types.
func (f ValidNameFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary:     "Check whether a string is a valid FreeIPA user or group name",
		Description: "Returns true when name is a lowercase letter followed by one or more lowercase letters, digits, underscores or hyphens.",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:        "name",
				Description: "The user or group name to check.",
			},
		},
		Return: function.BoolReturn{},
	}
}

// Run implements the function logic.
func (f ValidNameFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var name string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &name))
	if resp.Error != nil {
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, ipa.ValidateName(name)))
}

// NewValidNameFunction creates a new instance of the valid_name function.
func NewValidNameFunction() function.Function {
	return &ValidNameFunction{}
}

// ValidMailFunction implements the valid_mail function.
type ValidMailFunction struct{}

// Metadata returns the function name.
func (f ValidMailFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "valid_mail"
}

// Definition returns the function schema including parameters and return types.
func (f ValidMailFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary:     "Check whether a string is an email address FreeIPA accepts",
		Description: "Returns true when mail has the form local@domain.tld.",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:        "mail",
				Description: "The email address to check.",
			},
		},
		Return: function.BoolReturn{},
	}
}

// Run implements the function logic.
func (f ValidMailFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var mail string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &mail))
	if resp.Error != nil {
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, ipa.ValidateMail(mail)))
}

// NewValidMailFunction creates a new instance of the valid_mail function.
func NewValidMailFunction() function.Function {
	return &ValidMailFunction{}
}

// NormalizeSSHKeyFunction implements the normalize_ssh_key function.
type NormalizeSSHKeyFunction struct{}

// Metadata returns the function name.
func (f NormalizeSSHKeyFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "normalize_ssh_key"
}

// Definition returns the function schema including parameters and return types.
func (f NormalizeSSHKeyFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary: "Normalize an SSH public key",
		Description: "Returns key in the canonical \"<type> <base64> [comment]\" form that FreeIPA stores. " +
			"Fails when key is not a valid authorized_keys line.",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:        "key",
				Description: "An SSH public key in authorized_keys format.",
			},
		},
		Return: function.StringReturn{},
	}
}

// Run implements the function logic.
func (f NormalizeSSHKeyFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var key string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &key))
	if resp.Error != nil {
		return
	}

	if err := ipa.ValidateSSHPublicKey(key); err != nil {
		resp.Error = function.NewArgumentFuncError(0, "Invalid SSH public key: "+err.Error())
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, customtypes.NormalizeSSHKey(key)))
}

// NewNormalizeSSHKeyFunction creates a new instance of the normalize_ssh_key function.
func NewNormalizeSSHKeyFunction() function.Function {
	return &NormalizeSSHKeyFunction{}
}
