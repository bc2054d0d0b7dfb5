package ipa

import (
	"context"
	"strings"
)

// MembershipDelta represents the changes needed to achieve desired membership state.
type MembershipDelta struct {
	AddUsers     []string
	RemoveUsers  []string
	AddGroups    []string
	RemoveGroups []string
}

// IsEmpty reports whether the delta has no changes.
func (d *MembershipDelta) IsEmpty() bool {
	return len(d.AddUsers) == 0 && len(d.RemoveUsers) == 0 &&
		len(d.AddGroups) == 0 && len(d.RemoveGroups) == 0
}

// GroupMembershipManager handles FreeIPA group membership operations.
type GroupMembershipManager struct {
	client       Client
	userManager  *UserManager
	groupManager *GroupManager
}

// NewGroupMembershipManager creates a new group membership manager instance.
func NewGroupMembershipManager(client Client) *GroupMembershipManager {
	return &GroupMembershipManager{
		client:       client,
		userManager:  NewUserManager(client),
		groupManager: NewGroupManager(client),
	}
}

// AddUser adds user to group. A user that is already a member is not an error.
func (gmm *GroupMembershipManager) AddUser(ctx context.Context, group, user string) error {
	const operation = "group_add_user"
	if group == "" {
		return NewMissingVariableError(operation, "group")
	}
	if user == "" {
		return NewMissingVariableError(operation, "user")
	}

	return LogOperation(ctx, SubsystemIPA, operation, map[string]any{"group": group, "user": user}, func() error {
		return gmm.changeMember(ctx, operation, methodGroupAddMember, group, memberKindUser, user)
	})
}

// RemoveUser removes user from group after checking that the user exists. A user
// that is not a member is not an error.
func (gmm *GroupMembershipManager) RemoveUser(ctx context.Context, group, user string) error {
	const operation = "group_remove_user"
	if group == "" {
		return NewMissingVariableError(operation, "group")
	}
	if user == "" {
		return NewMissingVariableError(operation, "user")
	}

	return LogOperation(ctx, SubsystemIPA, operation, map[string]any{"group": group, "user": user}, func() error {
		if err := gmm.userManager.UserExists(ctx, user); err != nil {
			return err
		}
		return gmm.changeMember(ctx, operation, methodGroupRemoveMember, group, memberKindUser, user)
	})
}

// AddGroup adds group as a member of parent. A group that is already a member is not an error.
func (gmm *GroupMembershipManager) AddGroup(ctx context.Context, parent, group string) error {
	const operation = "group_add_group"
	if parent == "" {
		return NewMissingVariableError(operation, "parent")
	}
	if group == "" {
		return NewMissingVariableError(operation, "group")
	}

	return LogOperation(ctx, SubsystemIPA, operation, map[string]any{"parent": parent, "group": group}, func() error {
		return gmm.changeMember(ctx, operation, methodGroupAddMember, parent, memberKindGroup, group)
	})
}

// RemoveGroup removes group from parent after checking that group exists. A group
// that is not a member is not an error.
func (gmm *GroupMembershipManager) RemoveGroup(ctx context.Context, parent, group string) error {
	const operation = "group_remove_group"
	if parent == "" {
		return NewMissingVariableError(operation, "parent")
	}
	if group == "" {
		return NewMissingVariableError(operation, "group")
	}

	return LogOperation(ctx, SubsystemIPA, operation, map[string]any{"parent": parent, "group": group}, func() error {
		if err := gmm.groupManager.GroupExists(ctx, group); err != nil {
			return err
		}
		return gmm.changeMember(ctx, operation, methodGroupRemoveMember, parent, memberKindGroup, group)
	})
}

// changeMember issues group_add_member or group_remove_member for a single member
// and interprets the per-member failure text.
func (gmm *GroupMembershipManager) changeMember(ctx context.Context, operation, method, group, kind, member string) error {
	resp, err := gmm.client.Call(ctx, method, []any{group}, map[string]any{kind: []string{member}})
	if err != nil {
		return err
	}
	if err := checkResponse(operation, objectTypeGroup, resp); err != nil {
		return err
	}

	return interpretMemberFailure(operation, kind, resp, method == methodGroupAddMember)
}

// interpretMemberFailure maps the first failure reported for kind. Adding tolerates
// "already a member"; removing tolerates "not a member".
func interpretMemberFailure(operation, kind string, resp *Response, adding bool) error {
	failures := resp.MemberFailures(kind)
	if len(failures) == 0 {
		return nil
	}

	text := strings.ToLower(failures[0].Reason())
	if adding {
		if strings.Contains(text, "already") {
			return nil
		}
		if strings.Contains(text, "no matching") {
			return NewMemberNotFoundError(operation, kind)
		}
	} else if strings.Contains(text, "not a member") {
		return nil
	}

	return NewUnhandledFailureError(operation, text)
}

// GetGroupMembers returns the direct member users and groups of a group.
func (gmm *GroupMembershipManager) GetGroupMembers(ctx context.Context, group string) (users, groups []string, err error) {
	g, err := gmm.groupManager.GetGroup(ctx, group)
	if err != nil {
		return nil, nil, err
	}
	return g.MemberUsers, g.MemberGroups, nil
}

// CalculateMembershipDelta computes the changes that turn the current direct
// membership of group into the desired one.
func (gmm *GroupMembershipManager) CalculateMembershipDelta(ctx context.Context, group string, users, groups []string) (*MembershipDelta, error) {
	currentUsers, currentGroups, err := gmm.GetGroupMembers(ctx, group)
	if err != nil {
		return nil, err
	}

	delta := &MembershipDelta{}
	delta.AddUsers, delta.RemoveUsers = calculateSetDifferences(currentUsers, users)
	delta.AddGroups, delta.RemoveGroups = calculateSetDifferences(currentGroups, groups)
	return delta, nil
}

// SetGroupMembers makes users and groups the exact direct membership of group.
// Changes are applied one member at a time, removals first.
func (gmm *GroupMembershipManager) SetGroupMembers(ctx context.Context, group string, users, groups []string) error {
	if group == "" {
		return NewMissingVariableError("set_group_members", "group")
	}

	delta, err := gmm.CalculateMembershipDelta(ctx, group, users, groups)
	if err != nil {
		return WrapError("calculate_membership_delta", err)
	}
	logger := NewTFLogger(ctx, SubsystemIPA)
	if delta.IsEmpty() {
		logger.Trace("Group membership already up to date", map[string]any{"group": group})
		return nil
	}

	logger.Debug("Applying group membership changes", map[string]any{
		"group":         group,
		"add_users":     delta.AddUsers,
		"remove_users":  delta.RemoveUsers,
		"add_groups":    delta.AddGroups,
		"remove_groups": delta.RemoveGroups,
	})

	for _, user := range delta.RemoveUsers {
		if err := gmm.RemoveUser(ctx, group, user); err != nil {
			return err
		}
	}
	for _, member := range delta.RemoveGroups {
		if err := gmm.RemoveGroup(ctx, group, member); err != nil {
			return err
		}
	}
	for _, user := range delta.AddUsers {
		if err := gmm.AddUser(ctx, group, user); err != nil {
			return err
		}
	}
	for _, member := range delta.AddGroups {
		if err := gmm.AddGroup(ctx, group, member); err != nil {
			return err
		}
	}

	return nil
}

// calculateSetDifferences returns the sorted members to add and to remove.
func calculateSetDifferences(current, desired []string) (toAdd, toRemove []string) {
	currentSet := make(map[string]struct{}, len(current))
	for _, m := range current {
		currentSet[m] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, m := range desired {
		desiredSet[m] = struct{}{}
	}

	addSet := make(map[string]struct{})
	for m := range desiredSet {
		if _, ok := currentSet[m]; !ok {
			addSet[m] = struct{}{}
		}
	}
	removeSet := make(map[string]struct{})
	for m := range currentSet {
		if _, ok := desiredSet[m]; !ok {
			removeSet[m] = struct{}{}
		}
	}

	return sortedKeys(addSet), sortedKeys(removeSet)
}
