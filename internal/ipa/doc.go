/*
Package ipa provides FreeIPA user and group administration for the Terraform IPA provider.

The package is a thin layer over the FreeIPA JSON-RPC API. Each operation validates its
arguments, issues a single remote call (membership removal issues two), maps the service's
error codes onto a small set of error kinds and reshapes the returned attributes into plain
Go structs. It keeps no state between calls beyond the HTTP session cookie.

# Architecture Overview

  - Client: session login (password or Kerberos/SPNEGO) and the JSON-RPC call primitive
  - Entry: case-insensitive access to the attribute maps returned by the server
  - UserManager: user_add, user_show, user_find, user_mod and user_del
  - GroupManager: group_add, group_show, group_find, group_mod and group_del
  - GroupMembershipManager: group_add_member and group_remove_member for users and groups

# Error Handling

Service error codes are mapped through a lookup table:

  - 4001 (NotFound) becomes ErrorCategoryNotFound
  - 4002 (DuplicateEntry) becomes ErrorCategoryAlreadyExists
  - 3009 (ValidationError) becomes ErrorCategoryInvalidField
  - 4202 (EmptyModlist) is treated as success
  - anything else becomes ErrorCategoryUnhandled

Local argument validation reports ErrorCategoryInvalidField as well, so callers only need
the IsNotFoundError, IsAlreadyExistsError, IsInvalidFieldError and IsUnhandledError
predicates.

# Example Usage

	config := &ipa.ConnectionConfig{
		Server:   "ipa.example.com",
		Username: "admin",
		Password: "password",
	}
	client, err := ipa.NewClient(config)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Login(ctx); err != nil {
		return err
	}

	users := ipa.NewUserManager(client)
	ids, err := users.CreateUser(ctx, &ipa.CreateUserRequest{
		User:      "jdoe",
		FirstName: "John",
		LastName:  "Doe",
	})
	if err != nil {
		return err
	}

	membership := ipa.NewGroupMembershipManager(client)
	err = membership.AddUser(ctx, "developers", "jdoe")
*/
package ipa
