package ipa

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
)

var (
	mailPattern = regexp.MustCompile(`^([^@\s]+)@([^@\s]+)\.([^@\s]+)$`)
	namePattern = regexp.MustCompile(`^([a-z][a-z0-9_-]+)$`)
)

// ValidateMail reports whether s looks like local@domain.tld.
func ValidateMail(s string) bool {
	return mailPattern.MatchString(s)
}

// ValidateName reports whether s is an acceptable user or group name: a lower-case
// letter followed by one or more lower-case letters, digits, underscores or hyphens.
func ValidateName(s string) bool {
	return namePattern.MatchString(s)
}

// ValidateSSHPublicKey checks that key is a single authorized_keys style public key.
func ValidateSSHPublicKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty ssh public key")
	}
	if strings.ContainsAny(key, "\r\n") {
		return fmt.Errorf("ssh public key must be a single line")
	}

	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
		return fmt.Errorf("invalid ssh public key: %w", err)
	}
	return nil
}

// ParseGroupGID converts a textual gid into an int.
func ParseGroupGID(gid string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(gid))
	if err != nil || n < 0 {
		return 0, NewInvalidVariableError("parse_gid", "gid")
	}
	return n, nil
}
