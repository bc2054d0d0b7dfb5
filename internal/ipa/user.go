package ipa

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RPC methods for user operations.
const (
	methodUserAdd  = "user_add"
	methodUserShow = "user_show"
	methodUserFind = "user_find"
	methodUserMod  = "user_mod"
	methodUserDel  = "user_del"

	objectTypeUser = "user"
)

// CreateUserRequest represents the arguments of user_add.
type CreateUserRequest struct {
	User           string `json:"user"`                     // Login name (required)
	FirstName      string `json:"firstname"`                // Given name (required)
	LastName       string `json:"lastname"`                 // Surname (required)
	Email          string `json:"email,omitempty"`          // Primary email address
	EmployeeNumber string `json:"employeenumber,omitempty"` // Employee number
}

// UserIDs holds the POSIX ids assigned to a new user.
type UserIDs struct {
	UID int `json:"uid"`
	GID int `json:"gid"`
}

// User represents a FreeIPA user as returned by user_show.
type User struct {
	User           string    `json:"user"`
	FirstName      string    `json:"firstname"`
	LastName       string    `json:"lastname"`
	Email          string    `json:"email,omitempty"`
	UID            int       `json:"uid"`
	GID            int       `json:"gid"`
	EmployeeNumber string    `json:"employeenumber,omitempty"`
	SSHKeys        []string  `json:"sshkeys,omitempty"`
	UniqueID       uuid.UUID `json:"ipauniqueid"`
}

// UserSearchFilter represents the criteria of user_find. At least one field must be set.
type UserSearchFilter struct {
	User           string `json:"user,omitempty"`
	Email          string `json:"email,omitempty"`
	EmployeeNumber string `json:"employeenumber,omitempty"`
}

// ModifyUserRequest represents the arguments of user_mod. Empty fields are left
// unchanged; the Clear flags remove an optional attribute.
type ModifyUserRequest struct {
	FirstName      string   `json:"firstname,omitempty"`
	LastName       string   `json:"lastname,omitempty"`
	Email          string   `json:"email,omitempty"`
	EmployeeNumber string   `json:"employeenumber,omitempty"`
	SSHPublicKeys  []string `json:"sshpubkey,omitempty"`

	ClearEmployeeNumber bool `json:"-"`
	ClearSSHPublicKeys  bool `json:"-"`
}

// UserManager handles FreeIPA user operations.
type UserManager struct {
	client Client
}

// NewUserManager creates a new user manager instance.
func NewUserManager(client Client) *UserManager {
	return &UserManager{client: client}
}

// CreateUser creates a user and returns the uid and gid assigned by the server.
func (um *UserManager) CreateUser(ctx context.Context, req *CreateUserRequest) (*UserIDs, error) {
	if req == nil {
		return nil, NewMissingVariableError(methodUserAdd, "user")
	}
	if req.User == "" {
		return nil, NewMissingVariableError(methodUserAdd, "user")
	}
	if !ValidateName(req.User) {
		return nil, NewInvalidVariableError(methodUserAdd, "user")
	}
	if req.Email != "" && !ValidateMail(req.Email) {
		return nil, NewInvalidVariableError(methodUserAdd, "email")
	}
	if req.FirstName == "" {
		return nil, NewMissingVariableError(methodUserAdd, "firstname")
	}
	if req.LastName == "" {
		return nil, NewMissingVariableError(methodUserAdd, "lastname")
	}

	opts := map[string]any{
		"givenname": req.FirstName,
		"sn":        req.LastName,
	}
	if req.EmployeeNumber != "" {
		opts["employeenumber"] = req.EmployeeNumber
	}
	if req.Email != "" {
		opts["mail"] = req.Email
	}

	var ids *UserIDs
	err := LogOperation(ctx, SubsystemIPA, methodUserAdd, map[string]any{"user": req.User}, func() error {
		resp, err := um.client.Call(ctx, methodUserAdd, []any{req.User}, opts)
		if err != nil {
			return err
		}
		if err := checkResponse(methodUserAdd, objectTypeUser, resp); err != nil {
			return err
		}

		entry, err := resp.Entry()
		if err != nil {
			return WrapError(methodUserAdd, err)
		}

		ids, err = entryToUserIDs(entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// GetUser retrieves a user by login name.
func (um *UserManager) GetUser(ctx context.Context, user string) (*User, error) {
	if user == "" {
		return nil, NewMissingVariableError(methodUserShow, "user")
	}

	var result *User
	err := LogOperation(ctx, SubsystemIPA, methodUserShow, map[string]any{"user": user}, func() error {
		resp, err := um.client.Call(ctx, methodUserShow, []any{user}, map[string]any{"all": true, "raw": true})
		if err != nil {
			return err
		}
		if err := checkResponse(methodUserShow, objectTypeUser, resp); err != nil {
			return err
		}

		entry, err := resp.Entry()
		if err != nil {
			return WrapError(methodUserShow, err)
		}

		result, err = entryToUser(user, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// FindUsers returns the login names of users matching every given criterion.
func (um *UserManager) FindUsers(ctx context.Context, filter *UserSearchFilter) ([]string, error) {
	opts := make(map[string]any)
	if filter != nil {
		if filter.User != "" {
			opts["uid"] = filter.User
		}
		if filter.Email != "" {
			opts["mail"] = filter.Email
		}
		if filter.EmployeeNumber != "" {
			opts["employeenumber"] = filter.EmployeeNumber
		}
	}
	if len(opts) == 0 {
		return nil, NewNoSearchOptionsError(methodUserFind)
	}

	var users []string
	err := LogOperation(ctx, SubsystemIPA, methodUserFind, map[string]any{"criteria": len(opts)}, func() error {
		resp, err := um.client.Call(ctx, methodUserFind, nil, opts)
		if err != nil {
			return err
		}
		if err := checkResponse(methodUserFind, objectTypeUser, resp); err != nil {
			return err
		}

		entries, err := resp.Entries()
		if err != nil {
			return WrapError(methodUserFind, err)
		}

		users = make([]string, 0, len(entries))
		for _, entry := range entries {
			if uid := entry.GetAttributeValue("uid"); uid != "" {
				users = append(users, uid)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

// ModifyUser updates the non-empty fields of req. Nothing is sent when req is empty.
func (um *UserManager) ModifyUser(ctx context.Context, user string, req *ModifyUserRequest) error {
	if user == "" {
		return NewMissingVariableError(methodUserMod, "user")
	}
	if req == nil {
		return nil
	}

	opts := make(map[string]any)
	if req.FirstName != "" {
		opts["givenname"] = req.FirstName
	}
	if req.LastName != "" {
		opts["sn"] = req.LastName
	}
	if req.EmployeeNumber != "" {
		opts["employeenumber"] = req.EmployeeNumber
	} else if req.ClearEmployeeNumber {
		opts["employeenumber"] = nil
	}
	if req.Email != "" && !ValidateMail(req.Email) {
		return NewInvalidVariableError(methodUserMod, "email")
	}
	if req.Email != "" {
		opts["mail"] = req.Email
	}
	if len(req.SSHPublicKeys) > 0 {
		for _, key := range req.SSHPublicKeys {
			if err := ValidateSSHPublicKey(key); err != nil {
				return NewInvalidVariableError(methodUserMod, "sshpubkey")
			}
		}
		opts["ipasshpubkey"] = req.SSHPublicKeys
	} else if req.ClearSSHPublicKeys {
		opts["ipasshpubkey"] = nil
	}

	if len(opts) == 0 {
		return nil
	}

	return LogOperation(ctx, SubsystemIPA, methodUserMod, map[string]any{"user": user, "changes": len(opts)}, func() error {
		resp, err := um.client.Call(ctx, methodUserMod, []any{user}, opts)
		if err != nil {
			return err
		}
		return checkResponse(methodUserMod, objectTypeUser, resp)
	})
}

// DeleteUser removes a user.
func (um *UserManager) DeleteUser(ctx context.Context, user string) error {
	if user == "" {
		return NewMissingVariableError(methodUserDel, "user")
	}

	return LogOperation(ctx, SubsystemIPA, methodUserDel, map[string]any{"user": user}, func() error {
		resp, err := um.client.Call(ctx, methodUserDel, []any{user}, nil)
		if err != nil {
			return err
		}
		return checkResponse(methodUserDel, objectTypeUser, resp)
	})
}

// UserExists checks a user with user_show, mapping a missing user to an
// ErrorCategoryNotFound error.
func (um *UserManager) UserExists(ctx context.Context, user string) error {
	if user == "" {
		return NewMissingVariableError(methodUserShow, "user")
	}

	resp, err := um.client.Call(ctx, methodUserShow, []any{user}, nil)
	if err != nil {
		return err
	}
	return checkResponse(methodUserShow, objectTypeUser, resp)
}

func entryToUserIDs(entry Entry) (*UserIDs, error) {
	uid, err := entry.GetAttributeInt("uidnumber")
	if err != nil {
		return nil, WrapError(methodUserAdd, err)
	}
	gid, err := entry.GetAttributeInt("gidnumber")
	if err != nil {
		return nil, WrapError(methodUserAdd, err)
	}
	return &UserIDs{UID: uid, GID: gid}, nil
}

// entryToUser converts a raw user_show entry. Optional attributes that are absent
// are left empty.
func entryToUser(name string, entry Entry) (*User, error) {
	user := &User{
		User:           entry.GetAttributeValue("uid"),
		FirstName:      entry.GetAttributeValue("givenname"),
		LastName:       entry.GetAttributeValue("sn"),
		Email:          entry.GetAttributeValue("mail"),
		EmployeeNumber: entry.GetAttributeValue("employeenumber"),
	}
	if user.User == "" {
		user.User = name
	}

	var err error
	if entry.HasAttribute("uidnumber") {
		if user.UID, err = entry.GetAttributeInt("uidnumber"); err != nil {
			return nil, WrapError(methodUserShow, err)
		}
	}
	if entry.HasAttribute("gidnumber") {
		if user.GID, err = entry.GetAttributeInt("gidnumber"); err != nil {
			return nil, WrapError(methodUserShow, err)
		}
	}

	if id := entry.GetAttributeValue("ipauniqueid"); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, WrapError(methodUserShow, fmt.Errorf("invalid ipauniqueid %q: %w", id, err))
		}
		user.UniqueID = parsed
	}

	keys, err := rebuildSSHKeys(entry.GetAttributeValues("sshpubkeyfp"), entry.GetValues("ipasshpubkey"))
	if err != nil {
		return nil, WrapError(methodUserShow, err)
	}
	user.SSHKeys = keys

	return user, nil
}
