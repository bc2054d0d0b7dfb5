package provider

import (
	"fmt"
	"testing"

	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
)

func TestAccGroupResource_basic(t *testing.T) {
	name := generateTestName(TestGroupPrefix)

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		CheckDestroy:             testAccCheckGroupDestroy,
		Steps: []resource.TestStep{
			// Create and Read testing
			{
				Config: testAccGroupResourceConfig_basic(name),
				Check: resource.ComposeAggregateTestCheckFunc(
					testAccCheckGroupExists("ipa_group.test"),
					resource.TestCheckResourceAttr("ipa_group.test", "id", name),
					resource.TestCheckResourceAttr("ipa_group.test", "name", name),
					resource.TestCheckNoResourceAttr("ipa_group.test", "description"),
					resource.TestCheckResourceAttrSet("ipa_group.test", "gid"),
					resource.TestCheckResourceAttrSet("ipa_group.test", "unique_id"),
					resource.TestCheckResourceAttr("ipa_group.test", "users.#", "0"),
				),
			},
			// ImportState testing
			{
				ResourceName:      "ipa_group.test",
				ImportState:       true,
				ImportStateVerify: true,
			},
		},
	})
}

func TestAccGroupResource_update(t *testing.T) {
	name := generateTestName(TestGroupPrefix)

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		CheckDestroy:             testAccCheckGroupDestroy,
		Steps: []resource.TestStep{
			{
				Config: testAccGroupResourceConfig_withDescription(name, "Initial description"),
				Check:  resource.TestCheckResourceAttr("ipa_group.test", "description", "Initial description"),
			},
			{
				Config: testAccGroupResourceConfig_withDescription(name, "Updated description"),
				Check:  resource.TestCheckResourceAttr("ipa_group.test", "description", "Updated description"),
			},
			// Removing the description clears it
			{
				Config: testAccGroupResourceConfig_basic(name),
				Check:  resource.TestCheckNoResourceAttr("ipa_group.test", "description"),
			},
		},
	})
}

func TestAccGroupResource_explicitGID(t *testing.T) {
	name := generateTestName(TestGroupPrefix)

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		CheckDestroy:             testAccCheckGroupDestroy,
		Steps: []resource.TestStep{
			{
				Config: testAccProviderConfig() + fmt.Sprintf(`
resource "ipa_group" "test" {
  name = %q
  gid  = 1987001
}
`, name),
				Check: resource.TestCheckResourceAttr("ipa_group.test", "gid", "1987001"),
			},
		},
	})
}

func testAccGroupResourceConfig_basic(name string) string {
	return testAccProviderConfig() + fmt.Sprintf(`
resource "ipa_group" "test" {
  name = %q
}
`, name)
}

func testAccGroupResourceConfig_withDescription(name, description string) string {
	return testAccProviderConfig() + fmt.Sprintf(`
resource "ipa_group" "test" {
  name        = %q
  description = %q
}
`, name, description)
}
