package types

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types/basetypes"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"golang.org/x/crypto/ssh"
)

// Ensure the implementation satisfies the expected interfaces.
var (
	_ basetypes.SetTypable                    = SSHKeySetType{}
	_ basetypes.SetValuable                   = SSHKeySetValue{}
	_ basetypes.SetValuableWithSemanticEquals = SSHKeySetValue{}
)

// SSHKeySetType is a custom set type for authorized_keys style public keys.
// Keys that differ only in whitespace are treated as equal.
type SSHKeySetType struct {
	basetypes.SetType
}

// NewSSHKeySetType creates a new SSHKeySetType with proper element type initialization.
func NewSSHKeySetType() SSHKeySetType {
	return SSHKeySetType{
		SetType: basetypes.SetType{
			ElemType: basetypes.StringType{},
		},
	}
}

// String returns a human readable string of the type name.
func (t SSHKeySetType) String() string {
	return "SSHKeySetType"
}

// ValueType returns the Value type.
func (t SSHKeySetType) ValueType(ctx context.Context) attr.Value {
	return SSHKeySetValue{}
}

// Equal returns true if the given type is equivalent.
func (t SSHKeySetType) Equal(o attr.Type) bool {
	other, ok := o.(SSHKeySetType)
	if !ok {
		return false
	}

	return t.SetType.Equal(other.SetType)
}

// ValueFromSet returns a SetValuable type given a SetValue.
func (t SSHKeySetType) ValueFromSet(ctx context.Context, in basetypes.SetValue) (basetypes.SetValuable, diag.Diagnostics) {
	return SSHKeySetValue{SetValue: in}, nil
}

// ValueFromTerraform returns a Value given a tftypes.Value.
func (t SSHKeySetType) ValueFromTerraform(ctx context.Context, in tftypes.Value) (attr.Value, error) {
	attrValue, err := t.SetType.ValueFromTerraform(ctx, in)
	if err != nil {
		return nil, err
	}

	setValue, ok := attrValue.(basetypes.SetValue)
	if !ok {
		return nil, fmt.Errorf("expected basetypes.SetValue, got: %T", attrValue)
	}

	setValuable, diags := t.ValueFromSet(ctx, setValue)
	if diags.HasError() {
		return nil, fmt.Errorf("could not create SSHKeySetValue: %v", diags.Errors())
	}

	return setValuable, nil
}

// SSHKeySetValue is a set of SSH public keys with whitespace-insensitive semantic equality.
type SSHKeySetValue struct {
	basetypes.SetValue
}

// Equal returns true if the given value is equivalent.
func (v SSHKeySetValue) Equal(o attr.Value) bool {
	other, ok := o.(SSHKeySetValue)
	if !ok {
		return false
	}

	return v.SetValue.Equal(other.SetValue)
}

// Type returns the type of the value.
func (v SSHKeySetValue) Type(ctx context.Context) attr.Type {
	return NewSSHKeySetType()
}

// SetSemanticEquals compares both sets after normalizing every key.
func (v SSHKeySetValue) SetSemanticEquals(ctx context.Context, newValuable basetypes.SetValuable) (bool, diag.Diagnostics) {
	var diags diag.Diagnostics

	newValue, ok := newValuable.(SSHKeySetValue)
	if !ok {
		diags.AddError(
			"Semantic Equality Check Error",
			"An unexpected value type was received while attempting to perform semantic equality checks. "+
				"This is always an error in the provider. Please report the following to the provider developer:\n\n"+
				fmt.Sprintf("Expected SSHKeySetValue, but got: %T", newValuable),
		)
		return false, diags
	}

	if v.IsNull() || v.IsUnknown() || newValue.IsNull() || newValue.IsUnknown() {
		return v.Equal(newValue), diags
	}

	var oldKeys, newKeys []string

	diags.Append(v.ElementsAs(ctx, &oldKeys, false)...)
	if diags.HasError() {
		return false, diags
	}

	diags.Append(newValue.ElementsAs(ctx, &newKeys, false)...)
	if diags.HasError() {
		return false, diags
	}

	if len(oldKeys) != len(newKeys) {
		return false, diags
	}

	oldSet := make(map[string]bool, len(oldKeys))
	for _, key := range oldKeys {
		oldSet[NormalizeSSHKey(key)] = true
	}

	newSet := make(map[string]bool, len(newKeys))
	for _, key := range newKeys {
		newSet[NormalizeSSHKey(key)] = true
	}

	if len(oldSet) != len(newSet) {
		return false, diags
	}

	for key := range oldSet {
		if !newSet[key] {
			return false, diags
		}
	}

	return true, diags
}

// NormalizeSSHKey returns the canonical "<type> <base64> [comment]" form of key.
// Keys that do not parse have their whitespace collapsed instead.
func NormalizeSSHKey(key string) string {
	parsed, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(key))
	if err != nil {
		return strings.Join(strings.Fields(key), " ")
	}

	normalized := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(parsed)))
	if comment = strings.TrimSpace(comment); comment != "" {
		normalized += " " + comment
	}
	return normalized
}

// SSHKeySet is a helper function to create an SSHKeySetValue from a slice of strings.
func SSHKeySet(ctx context.Context, elements []string) (SSHKeySetValue, diag.Diagnostics) {
	var diags diag.Diagnostics

	attrValues := make([]attr.Value, len(elements))
	for i, element := range elements {
		attrValues[i] = basetypes.NewStringValue(element)
	}

	setValue, setDiags := basetypes.NewSetValue(basetypes.StringType{}, attrValues)
	diags.Append(setDiags...)
	if diags.HasError() {
		return SSHKeySetValue{}, diags
	}

	return SSHKeySetValue{SetValue: setValue}, diags
}

// SSHKeySetNull is a helper function to create a null SSHKeySetValue.
func SSHKeySetNull() SSHKeySetValue {
	return SSHKeySetValue{
		SetValue: basetypes.NewSetNull(basetypes.StringType{}),
	}
}
