package ipa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	krb5client "github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

// loginKerberos performs the SPNEGO login_kerberos exchange.
func (c *client) loginKerberos(ctx context.Context) error {
	if err := prepareKerberosConfig(c.config); err != nil {
		return NewAuthenticationError("login_kerberos", fmt.Errorf("kerberos configuration error: %w", err))
	}

	krbClient, err := createKerberosClient(ctx, c.config)
	if err != nil {
		return NewAuthenticationError("login_kerberos", err)
	}

	spn, err := buildServicePrincipal(c.baseURL)
	if err != nil {
		krbClient.Destroy()
		return NewAuthenticationError("login_kerberos", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginKerberosPath, nil)
	if err != nil {
		krbClient.Destroy()
		return NewConnectionError("login_kerberos", err)
	}
	req.Header.Set("Referer", c.baseURL)

	resp, err := spnego.NewClient(krbClient, c.httpClient, spn).Do(req)
	if err != nil {
		krbClient.Destroy()
		return NewAuthenticationError("login_kerberos", fmt.Errorf("SPNEGO exchange failed: %w", err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := checkLoginStatus("login_kerberos", resp); err != nil {
		krbClient.Destroy()
		return err
	}

	if c.krbClient != nil {
		c.krbClient.Destroy()
	}
	c.krbClient = krbClient
	return nil
}

// createKerberosClient creates a Kerberos client based on the configuration.
// Priority order: credential cache → keytab → password.
func createKerberosClient(ctx context.Context, cfg *ConnectionConfig) (*krb5client.Client, error) {
	krb5confPath := cfg.KerberosConfig
	if krb5confPath == "" {
		krb5confPath = "/etc/krb5.conf"
	}

	if !fileExists(krb5confPath) {
		return nil, fmt.Errorf("Kerberos configuration file not found at %s. "+
			"For Kerberos authentication, you must provide a valid krb5.conf file. "+
			"Either create %s or specify a custom path using 'kerberos_config'. "+
			"Example minimal configuration:\n%s",
			krb5confPath, krb5confPath, generateExampleKrb5Conf(cfg))
	}

	krb5conf, err := krb5config.Load(krb5confPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", krb5confPath, err)
	}

	if ccachePath := resolveCCachePath(cfg); ccachePath != "" {
		ccache, err := credentials.LoadCCache(ccachePath)
		if err != nil {
			LogKerberosEvent(ctx, "ccache_load_failed", map[string]any{"path": ccachePath, "error": err.Error()})
			return nil, fmt.Errorf("failed to load credential cache %s: %w", ccachePath, err)
		}
		krbClient, err := krb5client.NewFromCCache(ccache, krb5conf, krb5client.DisablePAFXFAST(true))
		if err != nil {
			return nil, fmt.Errorf("failed to create client from credential cache: %w", err)
		}
		LogKerberosEvent(ctx, "ccache_loaded", map[string]any{"path": ccachePath})
		return krbClient, nil
	}

	var krbClient *krb5client.Client
	if keytabPath := resolveKeytabPath(cfg); keytabPath != "" {
		kt, err := keytab.Load(keytabPath)
		if err != nil {
			LogKerberosEvent(ctx, "keytab_load_failed", map[string]any{"path": keytabPath, "error": err.Error()})
			return nil, fmt.Errorf("failed to load keytab %s: %w", keytabPath, err)
		}
		LogKerberosEvent(ctx, "keytab_loaded", map[string]any{"path": keytabPath})
		krbClient = krb5client.NewWithKeytab(cfg.Username, cfg.KerberosRealm, kt, krb5conf, krb5client.DisablePAFXFAST(true))
	} else if cfg.Username != "" && cfg.Password != "" {
		krbClient = krb5client.NewWithPassword(cfg.Username, cfg.KerberosRealm, cfg.Password, krb5conf, krb5client.DisablePAFXFAST(true))
	} else {
		return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
	}

	if err := krbClient.Login(); err != nil {
		LogKerberosEvent(ctx, "ticket_acquisition_failed", map[string]any{
			"principal": cfg.Username + "@" + cfg.KerberosRealm,
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("kerberos login failed: %w", err)
	}
	LogKerberosEvent(ctx, "ticket_acquired", map[string]any{
		"principal": cfg.Username + "@" + cfg.KerberosRealm,
	})

	return krbClient, nil
}

// resolveCCachePath returns the explicit or default credential cache, if readable.
func resolveCCachePath(cfg *ConnectionConfig) string {
	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		return cfg.KerberosCCache
	}
	if defaultCCache := getDefaultCCachePath(); fileExists(defaultCCache) {
		return defaultCCache
	}
	return ""
}

// resolveKeytabPath returns the explicit or default keytab, if readable.
func resolveKeytabPath(cfg *ConnectionConfig) string {
	if cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab) {
		return cfg.KerberosKeytab
	}
	if cfg.Username != "" {
		if defaultKeytab := getDefaultKeytabPath(); fileExists(defaultKeytab) {
			return defaultKeytab
		}
	}
	return ""
}

// buildServicePrincipal constructs the HTTP service principal name of the IPA server.
func buildServicePrincipal(baseURL string) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("server URL is required for service principal")
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("no hostname found in URL: %s", baseURL)
	}

	return fmt.Sprintf("HTTP/%s", hostname), nil
}

// prepareKerberosConfig validates and prepares Kerberos configuration.
func prepareKerberosConfig(cfg *ConnectionConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if cfg.KerberosConfig == "" {
		cfg.KerberosConfig = "/etc/krb5.conf"
	}

	if cfg.KerberosRealm == "" {
		return fmt.Errorf("kerberos realm is required (set kerberos_realm)")
	}

	hasCCache := resolveCCachePath(cfg) != ""
	hasKeytab := resolveKeytabPath(cfg) != ""
	hasPassword := cfg.Password != ""

	if !hasCCache && cfg.Username == "" {
		return fmt.Errorf("username (principal) is required for Kerberos authentication")
	}

	if !hasCCache && !hasKeytab && !hasPassword {
		return fmt.Errorf("no suitable Kerberos credentials found: provide kerberos_ccache, kerberos_keytab, password, or ensure default credential cache/keytab exists")
	}

	return nil
}

// getDefaultCCachePath returns the default credential cache location.
func getDefaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// getDefaultKeytabPath returns the default keytab location.
func getDefaultKeytabPath() string {
	if keytab := os.Getenv("KRB5_KTNAME"); keytab != "" {
		return strings.TrimPrefix(keytab, "FILE:")
	}
	return "/etc/krb5.keytab"
}

// fileExists checks if a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	file.Close()
	return true
}

// generateExampleKrb5Conf generates example krb5.conf content for error messages.
func generateExampleKrb5Conf(cfg *ConnectionConfig) string {
	if cfg == nil || cfg.KerberosRealm == "" {
		return "[libdefaults]\n    default_realm = YOUR.REALM.COM\n\n[realms]\n    YOUR.REALM.COM = {\n        kdc = ipa.realm.com:88\n    }"
	}

	realm := cfg.KerberosRealm
	domain := strings.ToLower(realm)
	kdcHost := cfg.Server
	if kdcHost == "" {
		kdcHost = "ipa." + domain
	}

	return fmt.Sprintf(`[libdefaults]
    default_realm = %s
    dns_lookup_realm = false
    dns_lookup_kdc = false

[realms]
    %s = {
        kdc = %s:88
        admin_server = %s:749
    }

[domain_realm]
    .%s = %s
    %s = %s`,
		realm,
		realm,
		kdcHost, kdcHost,
		domain, realm,
		domain, realm)
}
