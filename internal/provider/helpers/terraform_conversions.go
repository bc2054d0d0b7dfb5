// Package helpers provides common utility functions for Terraform type conversions
// that can be reused across resources, data sources, and functions.
package helpers

import (
	"context"
	"slices"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

// StringSetToSlice converts a set of strings to a sorted Go slice.
// Null and unknown sets yield an empty slice.
func StringSetToSlice(ctx context.Context, set types.Set) ([]string, diag.Diagnostics) {
	if set.IsNull() || set.IsUnknown() {
		return []string{}, nil
	}

	var result []string
	diags := set.ElementsAs(ctx, &result, false)
	if diags.HasError() {
		return nil, diags
	}

	slices.Sort(result)
	return result, diags
}

// StringListToSlice converts a list of strings to a Go slice, preserving order.
func StringListToSlice(ctx context.Context, list types.List) ([]string, diag.Diagnostics) {
	if list.IsNull() || list.IsUnknown() {
		return []string{}, nil
	}

	var result []string
	diags := list.ElementsAs(ctx, &result, false)
	return result, diags
}

// SliceToStringSet converts a Go slice to a set of strings. A nil slice yields an
// empty, non-null set.
func SliceToStringSet(values []string) (types.Set, diag.Diagnostics) {
	elements := make([]attr.Value, len(values))
	for i, v := range values {
		elements[i] = types.StringValue(v)
	}
	return types.SetValue(types.StringType, elements)
}

// SliceToStringList converts a Go slice to a list of strings. A nil slice yields an
// empty, non-null list.
func SliceToStringList(values []string) (types.List, diag.Diagnostics) {
	elements := make([]attr.Value, len(values))
	for i, v := range values {
		elements[i] = types.StringValue(v)
	}
	return types.ListValue(types.StringType, elements)
}

// StringValueOrNull returns a null string for "", otherwise the value.
func StringValueOrNull(s string) types.String {
	if s == "" {
		return types.StringNull()
	}
	return types.StringValue(s)
}

// OptionalString returns a pointer to the configured value, or nil when the
// value is null or unknown.
func OptionalString(value types.String) *string {
	if value.IsNull() || value.IsUnknown() {
		return nil
	}
	s := value.ValueString()
	return &s
}

// OptionalInt returns a pointer to the configured value as an int, or nil when the
// value is null or unknown.
func OptionalInt(value types.Int64) *int {
	if value.IsNull() || value.IsUnknown() {
		return nil
	}
	n := int(value.ValueInt64())
	return &n
}
