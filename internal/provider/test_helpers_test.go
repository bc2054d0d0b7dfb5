package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
	"github.com/hashicorp/terraform-plugin-testing/terraform"

	"github.com/isometry/terraform-provider-ipa/internal/ipa"
)

// Test environment configuration constants.
const (
	// Environment variables for test configuration.
	EnvTestServer     = "IPA_TEST_SERVER"
	EnvTestUsername   = "IPA_TEST_USERNAME"
	EnvTestPassword   = "IPA_TEST_PASSWORD"
	EnvTestRealm      = "IPA_TEST_KERBEROS_REALM"
	EnvTestKeytab     = "IPA_TEST_KERBEROS_KEYTAB"
	EnvTestCACertFile = "IPA_TEST_CA_CERT_FILE"

	// Test object name prefixes to avoid conflicts.
	TestGroupPrefix = "tftest-group-"
	TestUserPrefix  = "tftest-user-"
)

// TestConfig holds common test configuration.
type TestConfig struct {
	Server      string
	Username    string
	Password    string
	Realm       string
	Keytab      string
	CACertFile  string
	UseKerberos bool
}

// GetTestConfig returns the test configuration from environment variables.
func GetTestConfig() *TestConfig {
	config := &TestConfig{
		Server:     os.Getenv(EnvTestServer),
		Username:   os.Getenv(EnvTestUsername),
		Password:   os.Getenv(EnvTestPassword),
		Realm:      os.Getenv(EnvTestRealm),
		Keytab:     os.Getenv(EnvTestKeytab),
		CACertFile: os.Getenv(EnvTestCACertFile),
	}

	config.UseKerberos = config.Keytab != "" && config.Realm != ""

	return config
}

// IsAccTest returns true if acceptance tests should run.
func IsAccTest() bool {
	return os.Getenv("TF_ACC") != ""
}

// SkipIfNotAccTest skips the test if TF_ACC is not set.
func SkipIfNotAccTest(t *testing.T) {
	if !IsAccTest() {
		t.Skip("Skipping acceptance test - set TF_ACC=1 to run")
	}
}

// testAccPreCheckWithConfig validates the acceptance test environment.
func testAccPreCheckWithConfig(t *testing.T) *TestConfig {
	SkipIfNotAccTest(t)

	config := GetTestConfig()

	if config.Server == "" {
		t.Skipf("Skipping test: %s must be set to a real FreeIPA server", EnvTestServer)
	}

	if config.Username == "" {
		t.Skipf("Skipping test: %s must be set", EnvTestUsername)
	}

	if config.Password == "" && !config.UseKerberos {
		t.Skipf("Skipping test: %s must be set (or configure Kerberos)", EnvTestPassword)
	}

	return config
}

// testAccProviderConfig generates provider configuration for tests.
func testAccProviderConfig() string {
	config := GetTestConfig()

	var providerConfig strings.Builder
	providerConfig.WriteString("provider \"ipa\" {\n")
	fmt.Fprintf(&providerConfig, "  server   = %q\n", config.Server)
	fmt.Fprintf(&providerConfig, "  username = %q\n", config.Username)

	if config.UseKerberos {
		fmt.Fprintf(&providerConfig, "  kerberos_realm  = %q\n", config.Realm)
		fmt.Fprintf(&providerConfig, "  kerberos_keytab = %q\n", config.Keytab)
	} else {
		fmt.Fprintf(&providerConfig, "  password = %q\n", config.Password)
	}

	if config.CACertFile != "" {
		fmt.Fprintf(&providerConfig, "  ca_cert_file = %q\n", config.CACertFile)
	}

	providerConfig.WriteString("}\n")
	return providerConfig.String()
}

// generateTestName returns a unique name that passes ipa.ValidateName.
func generateTestName(prefix string) string {
	return prefix + uuid.New().String()[:8]
}

// newTestProviderData connects to the test server outside of Terraform, for
// existence and destroy checks.
func newTestProviderData(ctx context.Context) (*ipa.ProviderData, error) {
	config := GetTestConfig()

	connConfig := ipa.DefaultConfig()
	connConfig.Server = config.Server
	connConfig.Username = config.Username
	connConfig.Password = config.Password
	connConfig.KerberosRealm = config.Realm
	connConfig.KerberosKeytab = config.Keytab
	connConfig.CACertFile = config.CACertFile

	client, err := ipa.NewClientWithContext(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create IPA client: %w", err)
	}

	return ipa.NewProviderData(client, nil, false), nil
}

// testAccCheckUserExists verifies that the user in the state exists in FreeIPA.
func testAccCheckUserExists(resourceName string) resource.TestCheckFunc {
	return func(s *terraform.State) error {
		rs, ok := s.RootModule().Resources[resourceName]
		if !ok {
			return fmt.Errorf("resource not found: %s", resourceName)
		}
		if rs.Primary.ID == "" {
			return fmt.Errorf("resource ID not set")
		}

		ctx := context.Background()
		pd, err := newTestProviderData(ctx)
		if err != nil {
			return err
		}
		defer pd.Close()

		if _, err := pd.Users.GetUser(ctx, rs.Primary.ID); err != nil {
			return fmt.Errorf("user %s does not exist: %w", rs.Primary.ID, err)
		}
		return nil
	}
}

// testAccCheckUserDestroy verifies that all ipa_user resources were removed.
func testAccCheckUserDestroy(s *terraform.State) error {
	return testAccCheckDestroyed(s, "ipa_user", func(ctx context.Context, pd *ipa.ProviderData, id string) error {
		_, err := pd.Users.GetUser(ctx, id)
		return err
	})
}

// testAccCheckGroupExists verifies that the group in the state exists in FreeIPA.
func testAccCheckGroupExists(resourceName string) resource.TestCheckFunc {
	return func(s *terraform.State) error {
		rs, ok := s.RootModule().Resources[resourceName]
		if !ok {
			return fmt.Errorf("resource not found: %s", resourceName)
		}
		if rs.Primary.ID == "" {
			return fmt.Errorf("resource ID not set")
		}

		ctx := context.Background()
		pd, err := newTestProviderData(ctx)
		if err != nil {
			return err
		}
		defer pd.Close()

		if _, err := pd.Groups.GetGroup(ctx, rs.Primary.ID); err != nil {
			return fmt.Errorf("group %s does not exist: %w", rs.Primary.ID, err)
		}
		return nil
	}
}

// testAccCheckGroupDestroy verifies that all ipa_group resources were removed.
func testAccCheckGroupDestroy(s *terraform.State) error {
	return testAccCheckDestroyed(s, "ipa_group", func(ctx context.Context, pd *ipa.ProviderData, id string) error {
		_, err := pd.Groups.GetGroup(ctx, id)
		return err
	})
}

func testAccCheckDestroyed(s *terraform.State, resourceType string, get func(context.Context, *ipa.ProviderData, string) error) error {
	ctx := context.Background()
	pd, err := newTestProviderData(ctx)
	if err != nil {
		return err
	}
	defer pd.Close()

	for _, rs := range s.RootModule().Resources {
		if rs.Type != resourceType {
			continue
		}

		err := get(ctx, pd, rs.Primary.ID)
		if err == nil {
			return fmt.Errorf("%s %s still exists", resourceType, rs.Primary.ID)
		}
		if !ipa.IsNotFoundError(err) {
			return fmt.Errorf("unexpected error checking %s %s: %w", resourceType, rs.Primary.ID, err)
		}
	}
	return nil
}
