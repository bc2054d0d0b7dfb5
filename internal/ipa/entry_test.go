package ipa

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_UnmarshalJSON(t *testing.T) {
	var entry Entry
	err := json.Unmarshal([]byte(`{
		"dn": "uid=jdoe,cn=users,cn=accounts,dc=example,dc=com",
		"uid": ["jdoe"],
		"uidNumber": [1200001],
		"nsAccountLock": false,
		"objectClass": ["top", "person", null],
		"ipaSshPubKey": [{"__base64__": "AAAAB3NzaC1yc2E="}, "ssh-ed25519 AAAA jdoe"],
		"manager": null,
		"ipaNTSecurityIdentifier": {"value": "S-1-5-21"}
	}`), &entry)
	require.NoError(t, err)

	assert.Equal(t, "uid=jdoe,cn=users,cn=accounts,dc=example,dc=com", entry.GetAttributeValue("dn"))
	assert.Equal(t, "jdoe", entry.GetAttributeValue("UID"))
	assert.Equal(t, "1200001", entry.GetAttributeValue("uidnumber"))
	assert.Equal(t, "FALSE", entry.GetAttributeValue("nsaccountlock"))
	assert.Equal(t, []string{"top", "person"}, entry.GetAttributeValues("objectclass"))
	assert.False(t, entry.HasAttribute("manager"))
	assert.Equal(t, `{"value": "S-1-5-21"}`, entry.GetAttributeValue("ipantsecurityidentifier"))

	keys := entry.GetValues("ipasshpubkey")
	require.Len(t, keys, 2)
	assert.True(t, keys[0].Binary)
	assert.Equal(t, "AAAAB3NzaC1yc2E=", keys[0].String())
	assert.False(t, keys[1].Binary)
	assert.Equal(t, []string{"AAAAB3NzaC1yc2E=", ""}, entry.GetAttributeBase64Values("ipaSshPubKey"))
}

func TestEntry_UnmarshalJSON_Invalid(t *testing.T) {
	var entry Entry
	assert.Error(t, json.Unmarshal([]byte(`["not", "an", "object"]`), &entry))
	assert.Error(t, json.Unmarshal([]byte(`{"uid": [{"__base64__": 42}]}`), &entry))
}

func TestEntry_GetAttributeInt(t *testing.T) {
	entry := Entry{
		"uidnumber": {{Text: "1200001"}},
		"mail":      {{Text: "jdoe@example.com"}},
	}

	n, err := entry.GetAttributeInt("uidNumber")
	require.NoError(t, err)
	assert.Equal(t, 1200001, n)

	_, err = entry.GetAttributeInt("gidnumber")
	assert.ErrorContains(t, err, "not present")

	_, err = entry.GetAttributeInt("mail")
	assert.ErrorContains(t, err, "not an integer")
}

func TestEntry_MissingAttributes(t *testing.T) {
	entry := Entry{}

	assert.Equal(t, "", entry.GetAttributeValue("cn"))
	assert.Nil(t, entry.GetAttributeValues("cn"))
	assert.Nil(t, entry.GetAttributeBase64Values("cn"))
	assert.Nil(t, entry.GetValues("cn"))
}

func TestResponse_Entries(t *testing.T) {
	resp := responseFromJSON(t, `{
		"result": {
			"result": [{"uid": ["jdoe"]}, {"uid": ["asmith"]}],
			"count": 2,
			"truncated": false,
			"summary": "2 users matched"
		},
		"error": null,
		"id": 0,
		"principal": "admin@EXAMPLE.COM",
		"version": "4.9.8"
	}`)

	assert.Equal(t, 2, resp.Count)
	assert.False(t, resp.Truncated)
	assert.Equal(t, "2 users matched", resp.Summary)
	assert.Equal(t, "admin@EXAMPLE.COM", resp.Principal)

	entries, err := resp.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "asmith", entries[1].GetAttributeValue("uid"))

	_, err = resp.Entry()
	assert.Error(t, err)
}
