package ipa

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const userShowJSON = `{
	"result": {
		"result": {
			"dn": "uid=jdoe,cn=users,cn=accounts,dc=example,dc=com",
			"uid": ["jdoe"],
			"givenname": ["John"],
			"sn": ["Doe"],
			"mail": ["jdoe@example.com"],
			"uidnumber": ["1200001"],
			"gidnumber": ["1200001"],
			"employeeNumber": ["E1234"],
			"ipaUniqueID": ["8f2d6a4e-1b7c-11ef-9a3e-525400123456"],
			"sshpubkeyfp": [
				"SHA256:abcdEFGH jdoe@laptop (ssh-ed25519)",
				"SHA256:ijklMNOP (ssh-rsa)"
			],
			"ipaSshPubKey": [
				{"__base64__": "AAAAC3NzaC1lZDI1NTE5AAAAIKey1"},
				{"__base64__": "AAAAB3NzaC1yc2EAAAADAQABKey2"}
			]
		},
		"value": "jdoe",
		"summary": null
	},
	"error": null,
	"id": 0,
	"principal": "admin@EXAMPLE.COM",
	"version": "4.11.1"
}`

func createTestUserManager() (*UserManager, *MockClient) {
	mockClient := &MockClient{}
	return NewUserManager(mockClient), mockClient
}

func TestCreateUser_Validation(t *testing.T) {
	um, mockClient := createTestUserManager()

	tests := []struct {
		name      string
		request   *CreateUserRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "nil request",
			request:   nil,
			wantField: "user",
			wantMsg:   "missing variable: user",
		},
		{
			name:      "missing user",
			request:   &CreateUserRequest{FirstName: "John", LastName: "Doe"},
			wantField: "user",
			wantMsg:   "missing variable: user",
		},
		{
			name:      "invalid user name",
			request:   &CreateUserRequest{User: "JDoe", FirstName: "John", LastName: "Doe"},
			wantField: "user",
			wantMsg:   "invalid variable: user",
		},
		{
			name:      "single character name",
			request:   &CreateUserRequest{User: "j", FirstName: "John", LastName: "Doe"},
			wantField: "user",
			wantMsg:   "invalid variable: user",
		},
		{
			name:      "invalid email checked before names",
			request:   &CreateUserRequest{User: "jdoe", Email: "not-an-address"},
			wantField: "email",
			wantMsg:   "invalid variable: email",
		},
		{
			name:      "missing first name",
			request:   &CreateUserRequest{User: "jdoe", LastName: "Doe"},
			wantField: "firstname",
			wantMsg:   "missing variable: firstname",
		},
		{
			name:      "missing last name",
			request:   &CreateUserRequest{User: "jdoe", FirstName: "John"},
			wantField: "lastname",
			wantMsg:   "missing variable: lastname",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := um.CreateUser(context.Background(), tt.request)
			require.Error(t, err)
			assert.Nil(t, ids)
			assert.True(t, IsInvalidFieldError(err))

			var ipaErr *IPAError
			require.True(t, errors.As(err, &ipaErr))
			assert.Equal(t, tt.wantField, ipaErr.Field)
			assert.Equal(t, tt.wantMsg, ipaErr.Message)
		})
	}

	mockClient.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateUser_Success(t *testing.T) {
	um, mockClient := createTestUserManager()
	ctx := context.Background()

	mockClient.On("Call", mock.Anything, "user_add", []any{"jdoe"}, map[string]any{
		"givenname":      "John",
		"sn":             "Doe",
		"mail":           "jdoe@example.com",
		"employeenumber": "E1234",
	}).Return(responseFromJSON(t, `{
		"result": {"result": {"uid": ["jdoe"], "uidnumber": ["1200001"], "gidnumber": ["1200002"]}, "value": "jdoe"},
		"error": null
	}`), nil)

	ids, err := um.CreateUser(ctx, &CreateUserRequest{
		User:           "jdoe",
		FirstName:      "John",
		LastName:       "Doe",
		Email:          "jdoe@example.com",
		EmployeeNumber: "E1234",
	})

	require.NoError(t, err)
	assert.Equal(t, &UserIDs{UID: 1200001, GID: 1200002}, ids)
	mockClient.AssertExpectations(t)
}

func TestCreateUser_OptionalFieldsOmitted(t *testing.T) {
	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_add", []any{"jdoe"}, map[string]any{
		"givenname": "John",
		"sn":        "Doe",
	}).Return(responseFromJSON(t, `{"result": {"result": {"uidnumber": ["5"], "gidnumber": ["6"]}}, "error": null}`), nil)

	ids, err := um.CreateUser(context.Background(), &CreateUserRequest{User: "jdoe", FirstName: "John", LastName: "Doe"})

	require.NoError(t, err)
	assert.Equal(t, 5, ids.UID)
	assert.Equal(t, 6, ids.GID)
	mockClient.AssertExpectations(t)
}

func TestCreateUser_AlreadyExists(t *testing.T) {
	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_add", []any{"jdoe"}, mock.Anything).
		Return(errorResponse(t, CodeDuplicateEntry, "DuplicateEntry"), nil)

	ids, err := um.CreateUser(context.Background(), &CreateUserRequest{User: "jdoe", FirstName: "John", LastName: "Doe"})

	require.Error(t, err)
	assert.Nil(t, ids)
	assert.True(t, IsAlreadyExistsError(err))
	assert.Contains(t, err.Error(), "ipa user already exists")
}

func TestCreateUser_TransportError(t *testing.T) {
	um, mockClient := createTestUserManager()
	transportErr := NewConnectionError("user_add", errors.New("connection refused"))

	mockClient.On("Call", mock.Anything, "user_add", mock.Anything, mock.Anything).Return(nil, transportErr)

	_, err := um.CreateUser(context.Background(), &CreateUserRequest{User: "jdoe", FirstName: "John", LastName: "Doe"})

	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}

func TestGetUser(t *testing.T) {
	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_show", []any{"jdoe"}, map[string]any{"all": true, "raw": true}).
		Return(responseFromJSON(t, userShowJSON), nil)

	user, err := um.GetUser(context.Background(), "jdoe")

	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.User)
	assert.Equal(t, "John", user.FirstName)
	assert.Equal(t, "Doe", user.LastName)
	assert.Equal(t, "jdoe@example.com", user.Email)
	assert.Equal(t, 1200001, user.UID)
	assert.Equal(t, 1200001, user.GID)
	assert.Equal(t, "E1234", user.EmployeeNumber)
	assert.Equal(t, uuid.MustParse("8f2d6a4e-1b7c-11ef-9a3e-525400123456"), user.UniqueID)
	assert.Equal(t, []string{
		"ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIKey1 jdoe@laptop",
		"ssh-rsa AAAAB3NzaC1yc2EAAAADAQABKey2",
	}, user.SSHKeys)
	mockClient.AssertExpectations(t)
}

func TestGetUser_MissingOptionalAttributes(t *testing.T) {
	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_show", []any{"svc"}, mock.Anything).
		Return(responseFromJSON(t, `{"result": {"result": {"uid": ["svc"], "givenname": ["Service"], "sn": ["Account"], "uidnumber": ["10"], "gidnumber": ["10"]}}, "error": null}`), nil)

	user, err := um.GetUser(context.Background(), "svc")

	require.NoError(t, err)
	assert.Empty(t, user.Email)
	assert.Empty(t, user.EmployeeNumber)
	assert.Empty(t, user.SSHKeys)
	assert.Equal(t, uuid.Nil, user.UniqueID)
}

func TestGetUser_Errors(t *testing.T) {
	um, mockClient := createTestUserManager()

	_, err := um.GetUser(context.Background(), "")
	assert.True(t, IsInvalidFieldError(err))
	assert.Contains(t, err.Error(), "missing variable: user")

	mockClient.On("Call", mock.Anything, "user_show", []any{"ghost"}, mock.Anything).
		Return(errorResponse(t, CodeNotFound, "NotFound"), nil)

	_, err = um.GetUser(context.Background(), "ghost")
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "ipa user does not exist")
}

func TestFindUsers(t *testing.T) {
	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_find", []any(nil), map[string]any{"mail": "jdoe@example.com"}).
		Return(responseFromJSON(t, `{
			"result": {
				"result": [{"uid": ["jdoe"]}, {"uid": ["jdoe2"]}],
				"count": 2,
				"truncated": false,
				"summary": "2 users matched"
			},
			"error": null
		}`), nil)

	users, err := um.FindUsers(context.Background(), &UserSearchFilter{Email: "jdoe@example.com"})

	require.NoError(t, err)
	assert.Equal(t, []string{"jdoe", "jdoe2"}, users)
	mockClient.AssertExpectations(t)
}

func TestFindUsers_AllCriteria(t *testing.T) {
	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_find", []any(nil), map[string]any{
		"uid":            "jdoe",
		"mail":           "jdoe@example.com",
		"employeenumber": "E1234",
	}).Return(responseFromJSON(t, `{"result": {"result": [], "count": 0}, "error": null}`), nil)

	users, err := um.FindUsers(context.Background(), &UserSearchFilter{
		User:           "jdoe",
		Email:          "jdoe@example.com",
		EmployeeNumber: "E1234",
	})

	require.NoError(t, err)
	assert.Empty(t, users)
	mockClient.AssertExpectations(t)
}

func TestFindUsers_NoCriteria(t *testing.T) {
	um, mockClient := createTestUserManager()

	for _, filter := range []*UserSearchFilter{nil, {}} {
		users, err := um.FindUsers(context.Background(), filter)
		require.Error(t, err)
		assert.Nil(t, users)
		assert.True(t, IsInvalidFieldError(err))
		assert.Contains(t, err.Error(), "no search options specified")
	}

	mockClient.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestModifyUser(t *testing.T) {
	const key = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl jdoe@laptop"

	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_mod", []any{"jdoe"}, map[string]any{
		"sn":           "Smith",
		"mail":         "jsmith@example.com",
		"ipasshpubkey": []string{key},
	}).Return(responseFromJSON(t, `{"result": {"result": {"uid": ["jdoe"]}}, "error": null}`), nil)

	err := um.ModifyUser(context.Background(), "jdoe", &ModifyUserRequest{
		LastName:      "Smith",
		Email:         "jsmith@example.com",
		SSHPublicKeys: []string{key},
	})

	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestModifyUser_ClearOptionalAttributes(t *testing.T) {
	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_mod", []any{"jdoe"}, map[string]any{
		"employeenumber": nil,
		"ipasshpubkey":   nil,
	}).Return(responseFromJSON(t, `{"result": {"result": {"uid": ["jdoe"]}}, "error": null}`), nil)

	err := um.ModifyUser(context.Background(), "jdoe", &ModifyUserRequest{
		ClearEmployeeNumber: true,
		ClearSSHPublicKeys:  true,
	})

	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestModifyUser_NoChanges(t *testing.T) {
	um, mockClient := createTestUserManager()

	require.NoError(t, um.ModifyUser(context.Background(), "jdoe", &ModifyUserRequest{}))
	require.NoError(t, um.ModifyUser(context.Background(), "jdoe", nil))

	mockClient.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestModifyUser_EmptyModlistIsSuccess(t *testing.T) {
	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_mod", []any{"jdoe"}, map[string]any{"givenname": "John"}).
		Return(errorResponse(t, CodeEmptyModlist, "EmptyModlist"), nil)

	err := um.ModifyUser(context.Background(), "jdoe", &ModifyUserRequest{FirstName: "John"})
	assert.NoError(t, err)
}

func TestModifyUser_Validation(t *testing.T) {
	um, _ := createTestUserManager()

	err := um.ModifyUser(context.Background(), "", &ModifyUserRequest{FirstName: "John"})
	assert.Contains(t, err.Error(), "missing variable: user")

	err = um.ModifyUser(context.Background(), "jdoe", &ModifyUserRequest{Email: "jdoe@"})
	assert.Contains(t, err.Error(), "invalid variable: email")

	err = um.ModifyUser(context.Background(), "jdoe", &ModifyUserRequest{SSHPublicKeys: []string{"ssh-rsa not-base64"}})
	assert.Contains(t, err.Error(), "invalid variable: sshpubkey")
}

func TestDeleteUser(t *testing.T) {
	um, mockClient := createTestUserManager()

	mockClient.On("Call", mock.Anything, "user_del", []any{"jdoe"}, map[string]any(nil)).
		Return(responseFromJSON(t, `{"result": {"result": {"failed": []}, "value": ["jdoe"], "summary": "Deleted user \"jdoe\""}, "error": null}`), nil)
	mockClient.On("Call", mock.Anything, "user_del", []any{"ghost"}, map[string]any(nil)).
		Return(errorResponse(t, CodeNotFound, "NotFound"), nil)

	require.NoError(t, um.DeleteUser(context.Background(), "jdoe"))

	err := um.DeleteUser(context.Background(), "ghost")
	assert.True(t, IsNotFoundError(err))

	err = um.DeleteUser(context.Background(), "")
	assert.True(t, IsInvalidFieldError(err))

	mockClient.AssertExpectations(t)
}

func TestRebuildSSHKeys(t *testing.T) {
	tests := []struct {
		name         string
		fingerprints []string
		blobs        []Value
		want         []string
		wantErr      bool
	}{
		{
			name: "comment and type",
			fingerprints: []string{
				"SHA256:Z8fKXC0m2bCvUAxYnh4N5tTqmEq6y+9z1J1nYz4NbEo admin@host.example.com (ssh-rsa)",
			},
			blobs: []Value{{Base64: "AAAAB3Nza", Binary: true}},
			want:  []string{"ssh-rsa AAAAB3Nza admin@host.example.com"},
		},
		{
			name:         "comment with spaces",
			fingerprints: []string{"SHA256:abc John Doe laptop (ssh-ed25519)"},
			blobs:        []Value{{Base64: "AAAAC3Nza", Binary: true}},
			want:         []string{"ssh-ed25519 AAAAC3Nza John Doe laptop"},
		},
		{
			name:         "no comment",
			fingerprints: []string{"SHA256:abc (ecdsa-sha2-nistp256)"},
			blobs:        []Value{{Base64: "AAAAE2Vj", Binary: true}},
			want:         []string{"ecdsa-sha2-nistp256 AAAAE2Vj"},
		},
		{
			name:         "text key passes through",
			fingerprints: []string{"SHA256:abc (ssh-rsa)"},
			blobs:        []Value{{Text: "ssh-rsa AAAAB3Nza user@host"}},
			want:         []string{"ssh-rsa AAAAB3Nza user@host"},
		},
		{
			name: "no keys",
		},
		{
			name:         "missing key data",
			fingerprints: []string{"SHA256:abc (ssh-rsa)"},
			wantErr:      true,
		},
		{
			name:         "malformed fingerprint",
			fingerprints: []string{"garbage"},
			blobs:        []Value{{Base64: "AAAA", Binary: true}},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, err := rebuildSSHKeys(tt.fingerprints, tt.blobs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys)
		})
	}
}
