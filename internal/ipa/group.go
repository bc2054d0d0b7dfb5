package ipa

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// RPC methods for group operations.
const (
	methodGroupAdd          = "group_add"
	methodGroupShow         = "group_show"
	methodGroupFind         = "group_find"
	methodGroupMod          = "group_mod"
	methodGroupDel          = "group_del"
	methodGroupAddMember    = "group_add_member"
	methodGroupRemoveMember = "group_remove_member"

	objectTypeGroup = "group"
)

// Group represents a FreeIPA group as returned by group_show.
type Group struct {
	Group        string    `json:"group"`
	Description  string    `json:"description"`
	GID          int       `json:"gid"`
	Users        []string  `json:"users"`        // Direct and indirect member users, sorted
	MemberUsers  []string  `json:"member_users"` // Direct member users, sorted
	MemberGroups []string  `json:"member_groups"`
	UniqueID     uuid.UUID `json:"ipauniqueid"`
}

// GroupSearchFilter represents the criteria of group_find. At least one field must be set.
type GroupSearchFilter struct {
	Group string `json:"group,omitempty"`
	GID   *int   `json:"gid,omitempty"`
}

// CreateGroupRequest represents the arguments of group_add.
type CreateGroupRequest struct {
	Group       string `json:"group"`                 // Group name (required)
	GID         *int   `json:"gid,omitempty"`         // Explicit gid, assigned by the server when nil
	Description string `json:"description,omitempty"` // Free text description
}

// ModifyGroupRequest represents the arguments of group_mod. Nil fields are left unchanged.
type ModifyGroupRequest struct {
	Description *string `json:"description,omitempty"`
	GID         *int    `json:"gid,omitempty"`
}

// GroupManager handles FreeIPA group operations.
type GroupManager struct {
	client Client
}

// NewGroupManager creates a new group manager instance.
func NewGroupManager(client Client) *GroupManager {
	return &GroupManager{client: client}
}

// GetGroup retrieves a group by name.
func (gm *GroupManager) GetGroup(ctx context.Context, group string) (*Group, error) {
	if group == "" {
		return nil, NewMissingVariableError(methodGroupShow, "group")
	}

	var result *Group
	err := LogOperation(ctx, SubsystemIPA, methodGroupShow, map[string]any{"group": group}, func() error {
		resp, err := gm.client.Call(ctx, methodGroupShow, []any{group}, map[string]any{"all": true, "raw": true})
		if err != nil {
			return err
		}
		if err := checkResponse(methodGroupShow, objectTypeGroup, resp); err != nil {
			return err
		}

		entry, err := resp.Entry()
		if err != nil {
			return WrapError(methodGroupShow, err)
		}

		result, err = entryToGroup(group, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// FindGroups returns the names of groups matching every given criterion.
func (gm *GroupManager) FindGroups(ctx context.Context, filter *GroupSearchFilter) ([]string, error) {
	opts := make(map[string]any)
	if filter != nil {
		if filter.Group != "" {
			opts["cn"] = filter.Group
		}
		// gid 0 counts as not given
		if filter.GID != nil && *filter.GID != 0 {
			opts["gidnumber"] = *filter.GID
		}
	}
	if len(opts) == 0 {
		return nil, NewNoSearchOptionsError(methodGroupFind)
	}

	var groups []string
	err := LogOperation(ctx, SubsystemIPA, methodGroupFind, map[string]any{"criteria": len(opts)}, func() error {
		resp, err := gm.client.Call(ctx, methodGroupFind, nil, opts)
		if err != nil {
			return err
		}
		if err := checkResponse(methodGroupFind, objectTypeGroup, resp); err != nil {
			return err
		}

		entries, err := resp.Entries()
		if err != nil {
			return WrapError(methodGroupFind, err)
		}

		groups = make([]string, 0, len(entries))
		for _, entry := range entries {
			if cn := entry.GetAttributeValue("cn"); cn != "" {
				groups = append(groups, cn)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return groups, nil
}

// CreateGroup creates a group and returns its gid.
func (gm *GroupManager) CreateGroup(ctx context.Context, req *CreateGroupRequest) (int, error) {
	if req == nil || req.Group == "" {
		return 0, NewMissingVariableError(methodGroupAdd, "group")
	}
	if !ValidateName(req.Group) {
		return 0, NewInvalidVariableError(methodGroupAdd, "group")
	}
	if req.GID != nil && *req.GID < 0 {
		return 0, NewInvalidVariableError(methodGroupAdd, "gid")
	}

	opts := map[string]any{
		"description": req.Description,
	}
	if req.GID != nil {
		opts["gidnumber"] = *req.GID
	}

	var gid int
	err := LogOperation(ctx, SubsystemIPA, methodGroupAdd, map[string]any{"group": req.Group}, func() error {
		resp, err := gm.client.Call(ctx, methodGroupAdd, []any{req.Group}, opts)
		if err != nil {
			return err
		}
		if err := checkResponse(methodGroupAdd, objectTypeGroup, resp); err != nil {
			return err
		}

		entry, err := resp.Entry()
		if err != nil {
			return WrapError(methodGroupAdd, err)
		}

		gid, err = ParseGroupGID(entry.GetAttributeValue("gidnumber"))
		if err != nil {
			return WrapError(methodGroupAdd, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return gid, nil
}

// ModifyGroup updates the description or gid of a group. Nothing is sent when req is empty.
func (gm *GroupManager) ModifyGroup(ctx context.Context, group string, req *ModifyGroupRequest) error {
	if group == "" {
		return NewMissingVariableError(methodGroupMod, "group")
	}
	if req == nil {
		return nil
	}

	opts := make(map[string]any)
	if req.Description != nil {
		opts["description"] = *req.Description
	}
	if req.GID != nil {
		if *req.GID < 0 {
			return NewInvalidVariableError(methodGroupMod, "gid")
		}
		opts["gidnumber"] = *req.GID
	}
	if len(opts) == 0 {
		return nil
	}

	return LogOperation(ctx, SubsystemIPA, methodGroupMod, map[string]any{"group": group, "changes": len(opts)}, func() error {
		resp, err := gm.client.Call(ctx, methodGroupMod, []any{group}, opts)
		if err != nil {
			return err
		}
		return checkResponse(methodGroupMod, objectTypeGroup, resp)
	})
}

// DeleteGroup removes a group.
func (gm *GroupManager) DeleteGroup(ctx context.Context, group string) error {
	if group == "" {
		return NewMissingVariableError(methodGroupDel, "group")
	}

	return LogOperation(ctx, SubsystemIPA, methodGroupDel, map[string]any{"group": group}, func() error {
		resp, err := gm.client.Call(ctx, methodGroupDel, []any{group}, nil)
		if err != nil {
			return err
		}
		return checkResponse(methodGroupDel, objectTypeGroup, resp)
	})
}

// GroupExists checks a group with group_show, mapping a missing group to an
// ErrorCategoryNotFound error.
func (gm *GroupManager) GroupExists(ctx context.Context, group string) error {
	if group == "" {
		return NewMissingVariableError(methodGroupShow, "group")
	}

	resp, err := gm.client.Call(ctx, methodGroupShow, []any{group}, nil)
	if err != nil {
		return err
	}
	return checkResponse(methodGroupShow, objectTypeGroup, resp)
}

// entryToGroup converts a raw group_show entry. A group without gidnumber
// (non-POSIX) reports gid 0.
func entryToGroup(name string, entry Entry) (*Group, error) {
	group := &Group{
		Group:       entry.GetAttributeValue("cn"),
		Description: entry.GetAttributeValue("description"),
	}
	if group.Group == "" {
		group.Group = name
	}

	if entry.HasAttribute("gidnumber") {
		gid, err := ParseGroupGID(entry.GetAttributeValue("gidnumber"))
		if err != nil {
			return nil, WrapError(methodGroupShow, err)
		}
		group.GID = gid
	}

	if id := entry.GetAttributeValue("ipauniqueid"); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, WrapError(methodGroupShow, fmt.Errorf("invalid ipauniqueid %q: %w", id, err))
		}
		group.UniqueID = parsed
	}

	direct := entry.GetAttributeValues("member")
	indirect := entry.GetAttributeValues("memberindirect")

	directUsers, directGroups := classifyMembers(direct)
	indirectUsers, _ := classifyMembers(indirect)

	group.MemberUsers = directUsers
	group.MemberGroups = directGroups
	group.Users = unionSorted(directUsers, indirectUsers)

	return group, nil
}

// Member kinds recognized in member DNs.
const (
	memberKindUser  = "user"
	memberKindGroup = "group"
)

// classifyMemberDN returns the kind and name of the object a member DN points at.
// Users are named by a leading uid RDN; groups by a leading cn RDN under cn=groups.
func classifyMemberDN(dn string) (kind, name string, ok bool) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return "", "", false
	}

	leading := parsed.RDNs[0].Attributes[0]
	switch strings.ToLower(leading.Type) {
	case "uid":
		return memberKindUser, leading.Value, true
	case "cn":
		if len(parsed.RDNs) > 1 && len(parsed.RDNs[1].Attributes) > 0 {
			container := parsed.RDNs[1].Attributes[0]
			if strings.EqualFold(container.Type, "cn") && strings.EqualFold(container.Value, "groups") {
				return memberKindGroup, leading.Value, true
			}
		}
	}

	return "", "", false
}

// classifyMembers splits member DNs into sorted, deduplicated user and group names.
func classifyMembers(dns []string) (users, groups []string) {
	userSet := make(map[string]struct{})
	groupSet := make(map[string]struct{})

	for _, dn := range dns {
		kind, name, ok := classifyMemberDN(dn)
		if !ok {
			continue
		}
		switch kind {
		case memberKindUser:
			userSet[name] = struct{}{}
		case memberKindGroup:
			groupSet[name] = struct{}{}
		}
	}

	return sortedKeys(userSet), sortedKeys(groupSet)
}

func unionSorted(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		set[v] = struct{}{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for k := range set {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}
