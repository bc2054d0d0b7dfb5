package ipa

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

const (
	loginPasswordPath = "/session/login_password"
	loginKerberosPath = "/session/login_kerberos"
	jsonRPCPath       = "/session/json"

	// rejectionReasonHeader carries the reason for a refused login.
	rejectionReasonHeader = "X-IPA-Rejection-Reason"
)

// client implements the Client interface.
type client struct {
	config     *ConnectionConfig
	httpClient *http.Client
	baseURL    string

	mu            sync.Mutex
	authenticated bool
	krbClient     *krb5client.Client
}

// NewClient creates a new IPA client.
func NewClient(config *ConnectionConfig) (Client, error) {
	return NewClientWithContext(context.Background(), config)
}

// NewClientWithContext creates a new IPA client with a logging context.
func NewClientWithContext(ctx context.Context, config *ConnectionConfig) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.ApplyDefaults(); err != nil {
		return nil, err
	}
	if config.Server == "" {
		return nil, fmt.Errorf("IPA server is required")
	}

	tflog.SubsystemDebug(ctx, SubsystemIPA, "Creating new IPA client", map[string]any{
		"server":      config.Server,
		"auth_method": config.GetAuthMethod().String(),
		"timeout":     config.Timeout.String(),
		"insecure":    config.InsecureSkipVerify,
	})

	httpClient, err := newHTTPClient(config)
	if err != nil {
		tflog.SubsystemError(ctx, SubsystemIPA, "Failed to create HTTP client", map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &client{
		config:     config,
		httpClient: httpClient,
		baseURL:    config.BaseURL(),
	}, nil
}

// newHTTPClient builds an HTTP client with a cookie jar for the ipa_session cookie.
func newHTTPClient(config *ConnectionConfig) (*http.Client, error) {
	httpClient := cleanhttp.DefaultClient()
	httpClient.Timeout = config.Timeout

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	httpClient.Jar = jar

	tlsConfig, err := buildTLSConfig(config)
	if err != nil {
		return nil, err
	}
	if transport, ok := httpClient.Transport.(*http.Transport); ok {
		transport.TLSClientConfig = tlsConfig
	}

	return httpClient, nil
}

// buildTLSConfig creates the TLS configuration for the IPA web service.
func buildTLSConfig(config *ConnectionConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: config.InsecureSkipVerify, // #nosec G402 -- opt-in via configuration
	}

	if config.CACertFile != "" {
		pem, err := os.ReadFile(config.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate %s: %w", config.CACertFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", config.CACertFile)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// Login establishes an authenticated session using the configured method.
func (c *client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.login(ctx)
}

func (c *client) login(ctx context.Context) error {
	if !c.config.HasAuthentication() {
		tflog.SubsystemError(ctx, SubsystemIPA, "No authentication configuration available")
		return NewAuthenticationError("login", fmt.Errorf("no authentication configuration available"))
	}

	authMethod := c.config.GetAuthMethod()
	err := LogOperation(ctx, SubsystemIPA, "login", map[string]any{
		"auth_method": authMethod.String(),
		"username":    c.config.Username,
	}, func() error {
		switch authMethod {
		case AuthMethodPassword:
			return c.loginPassword(ctx)
		case AuthMethodKerberos:
			return c.loginKerberos(ctx)
		default:
			return fmt.Errorf("unsupported authentication method: %s", authMethod.String())
		}
	})
	if err != nil {
		LogSessionEvent(ctx, "authentication_failed", map[string]any{
			"auth_method": authMethod.String(),
		})
		return err
	}

	c.authenticated = true
	LogSessionEvent(ctx, "session_established", map[string]any{
		"auth_method": authMethod.String(),
		"server":      c.config.Server,
	})
	return nil
}

// loginPassword performs the form-based login_password exchange.
func (c *client) loginPassword(ctx context.Context) error {
	if c.config.Username == "" || c.config.Password == "" {
		return NewAuthenticationError("login_password", fmt.Errorf("username and password are required"))
	}

	form := url.Values{}
	form.Set("user", c.config.Username)
	form.Set("password", c.config.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPasswordPath, strings.NewReader(form.Encode()))
	if err != nil {
		return NewConnectionError("login_password", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewConnectionError("login_password", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return checkLoginStatus("login_password", resp)
}

// checkLoginStatus maps the status of a login response.
func checkLoginStatus(operation string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		reason := resp.Header.Get(rejectionReasonHeader)
		if reason == "" {
			reason = "unauthorized"
		}
		return NewAuthenticationError(operation, fmt.Errorf("login rejected: %s", reason))
	default:
		return NewConnectionError(operation, fmt.Errorf("unexpected HTTP status %s", resp.Status))
	}
}

// Call invokes a single JSON-RPC method, logging in first if no session exists.
func (c *client) Call(ctx context.Context, method string, args []any, options map[string]any) (*Response, error) {
	c.mu.Lock()
	if !c.authenticated {
		if err := c.login(ctx); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}
	c.mu.Unlock()

	if args == nil {
		args = []any{}
	}
	opts := make(map[string]any, len(options)+1)
	maps.Copy(opts, options)
	if c.config.APIVersion != "" {
		if _, ok := opts["version"]; !ok {
			opts["version"] = c.config.APIVersion
		}
	}

	body, err := json.Marshal(&Request{
		Method: method,
		Params: []any{args, opts},
		ID:     0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	tflog.SubsystemTrace(ctx, SubsystemIPA, "Sending RPC", map[string]any{
		"method":  method,
		"args":    args,
		"options": SanitizeFields(opts),
	})

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+jsonRPCPath, bytes.NewReader(body))
	if err != nil {
		return nil, NewConnectionError(method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", c.baseURL)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewConnectionError(method, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized {
		c.mu.Lock()
		c.authenticated = false
		c.mu.Unlock()
		return nil, NewAuthenticationError(method, fmt.Errorf("session rejected: %s", httpResp.Status))
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, NewConnectionError(method, fmt.Errorf("unexpected HTTP status %s", httpResp.Status))
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, NewConnectionError(method, fmt.Errorf("failed to decode response: %w", err))
	}

	fields := map[string]any{
		"method":      method,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if resp.Error != nil {
		LogRPCError(ctx, method, resp.Error, fields)
	} else {
		fields["count"] = resp.Count
		tflog.SubsystemDebug(ctx, SubsystemIPA, "RPC completed", fields)
	}

	return &resp, nil
}

// Ping checks that the session is usable.
func (c *client) Ping(ctx context.Context) error {
	resp, err := c.Call(ctx, "ping", nil, nil)
	if err != nil {
		return err
	}
	return checkResponse("ping", "", resp)
}

// Close releases idle connections and any Kerberos session.
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.krbClient != nil {
		c.krbClient.Destroy()
		c.krbClient = nil
	}
	c.authenticated = false
	c.httpClient.CloseIdleConnections()
	return nil
}
