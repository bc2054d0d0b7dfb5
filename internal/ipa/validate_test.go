package ipa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"jdoe@example.com", true},
		{"j.doe+tag@mail.example.co.uk", true},
		{"jdoe@localhost", false},
		{"jdoe@@example.com", false},
		{"j doe@example.com", false},
		{"@example.com", false},
		{"jdoe@example.", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateMail(tt.input))
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"jdoe", true},
		{"svc_backup-01", true},
		{"ab", true},
		{"a", false},
		{"JDoe", false},
		{"1user", false},
		{"_user", false},
		{"j.doe", false},
		{"j doe", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateName(tt.input))
		})
	}
}

func TestValidateSSHPublicKey(t *testing.T) {
	const key = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl jdoe@laptop"

	assert.NoError(t, ValidateSSHPublicKey(key))
	assert.NoError(t, ValidateSSHPublicKey("  "+key+"\n"))

	assert.ErrorContains(t, ValidateSSHPublicKey(""), "empty")
	assert.ErrorContains(t, ValidateSSHPublicKey(key+"\n"+key), "single line")
	assert.ErrorContains(t, ValidateSSHPublicKey("ssh-ed25519 not-base64"), "invalid ssh public key")
}
