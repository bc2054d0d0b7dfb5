package ipa

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// ConnectionConfig holds configuration for FreeIPA connections.
type ConnectionConfig struct {
	// Connection settings
	Server     string        // IPA server hostname (e.g. ipa.example.com)
	APIVersion string        // Optional API version sent with every call
	Timeout    time.Duration `default:"30s"` // HTTP request timeout

	// Authentication settings
	Username       string // Username (principal) for authentication
	Password       string // Password for login_password or Kerberos password authentication
	KerberosRealm  string // Kerberos realm for SPNEGO authentication
	KerberosKeytab string // Path to Kerberos keytab file
	KerberosConfig string `default:"/etc/krb5.conf"` // Path to Kerberos config file
	KerberosCCache string // Path to Kerberos credential cache

	// TLS settings
	CACertFile         string // Path to the IPA CA certificate (usually /etc/ipa/ca.crt)
	InsecureSkipVerify bool   // Skip TLS certificate verification (not recommended)
}

// DefaultConfig returns a configuration with defaults applied.
func DefaultConfig() *ConnectionConfig {
	config := &ConnectionConfig{}
	_ = defaults.Set(config)
	return config
}

// ApplyDefaults fills unset fields from the struct defaults.
func (c *ConnectionConfig) ApplyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("failed to apply connection defaults: %w", err)
	}
	return nil
}

// BaseURL returns the https root of the IPA web service.
func (c *ConnectionConfig) BaseURL() string {
	server := strings.TrimSuffix(c.Server, "/")
	if strings.HasPrefix(server, "https://") || strings.HasPrefix(server, "http://") {
		return server + "/ipa"
	}
	return "https://" + server + "/ipa"
}

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodPassword AuthMethod = iota // login_password
	AuthMethodKerberos                   // login_kerberos via SPNEGO
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodPassword:
		return "password"
	case AuthMethodKerberos:
		return "kerberos"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	if c.KerberosRealm != "" {
		return AuthMethodKerberos
	}
	return AuthMethodPassword
}

// HasAuthentication checks if any authentication method is configured.
func (c *ConnectionConfig) HasAuthentication() bool {
	hasPassword := c.Username != "" && c.Password != ""
	hasKerberos := c.KerberosRealm != ""

	return hasPassword || hasKerberos
}

// Client provides the FreeIPA JSON-RPC primitive.
type Client interface {
	// Login establishes an authenticated session.
	Login(ctx context.Context) error

	// Call invokes a single RPC method. Service-side failures are reported in
	// Response.Error; the returned error is reserved for transport failures.
	Call(ctx context.Context, method string, args []any, options map[string]any) (*Response, error)

	// Ping checks that the session is usable.
	Ping(ctx context.Context) error

	Close() error
}

// Request is the JSON-RPC request envelope.
type Request struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int    `json:"id"`
}

// RPCError is the error object returned by the server.
type RPCError struct {
	Code    int            `json:"code"`
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// DataName returns error.data.name, which names the offending field for validation errors.
func (e *RPCError) DataName() string {
	if e == nil || e.Data == nil {
		return ""
	}
	name, _ := e.Data["name"].(string)
	return name
}

// Response is the decoded JSON-RPC response.
type Response struct {
	Error     *RPCError       `json:"error"`
	Result    json.RawMessage `json:"-"`
	Value     any             `json:"-"`
	Summary   string          `json:"-"`
	Failed    *Failed         `json:"-"`
	Completed int             `json:"-"`
	Count     int             `json:"-"`
	Truncated bool            `json:"-"`
	Principal string          `json:"principal,omitempty"`
}

// responseEnvelope mirrors the on-the-wire shape: the command output is nested under "result".
type responseEnvelope struct {
	Error     *RPCError `json:"error"`
	Principal string    `json:"principal"`
	Result    *struct {
		Result    json.RawMessage `json:"result"`
		Value     any             `json:"value"`
		Summary   string          `json:"summary"`
		Failed    *Failed         `json:"failed"`
		Completed int             `json:"completed"`
		Count     int             `json:"count"`
		Truncated bool            `json:"truncated"`
	} `json:"result"`
}

// UnmarshalJSON flattens the nested command output into the Response.
func (r *Response) UnmarshalJSON(data []byte) error {
	var env responseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	r.Error = env.Error
	r.Principal = env.Principal
	if env.Result != nil {
		r.Result = env.Result.Result
		r.Value = env.Result.Value
		r.Summary = env.Result.Summary
		r.Failed = env.Result.Failed
		r.Completed = env.Result.Completed
		r.Count = env.Result.Count
		r.Truncated = env.Result.Truncated
	}
	return nil
}

// Entry decodes Result as a single entry.
func (r *Response) Entry() (Entry, error) {
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return nil, fmt.Errorf("response has no result entry")
	}

	var entry Entry
	if err := json.Unmarshal(r.Result, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode result entry: %w", err)
	}
	return entry, nil
}

// Entries decodes Result as a list of entries (find commands).
func (r *Response) Entries() ([]Entry, error) {
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return nil, nil
	}

	var entries []Entry
	if err := json.Unmarshal(r.Result, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode result entries: %w", err)
	}
	return entries, nil
}

// Failed holds the per-member failures reported by membership commands, keyed by
// attribute ("member") then member type ("user", "group").
type Failed map[string]map[string][]MemberFailure

// UnmarshalJSON accepts the membership map and ignores every other shape; user_del
// and group_del for instance report "failed" as a list.
func (f *Failed) UnmarshalJSON(data []byte) error {
	failed := make(Failed)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = failed
		return nil
	}

	for attr, msg := range raw {
		var byType map[string][]MemberFailure
		if err := json.Unmarshal(msg, &byType); err != nil {
			continue
		}
		failed[attr] = byType
	}

	*f = failed
	return nil
}

// MemberFailure is a [name, reason] pair.
type MemberFailure []string

// Reason returns the failure text.
func (f MemberFailure) Reason() string {
	if len(f) < 2 {
		return ""
	}
	return f[1]
}

// MemberFailures returns the failures recorded for member type kind ("user" or "group").
func (r *Response) MemberFailures(kind string) []MemberFailure {
	if r == nil || r.Failed == nil {
		return nil
	}
	member, ok := (*r.Failed)["member"]
	if !ok {
		return nil
	}
	return member[kind]
}
