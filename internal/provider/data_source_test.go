package provider

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
)

func TestAccUserDataSource(t *testing.T) {
	name := generateTestName(TestUserPrefix)

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: testAccUserResourceConfig_basic(name) + `
data "ipa_user" "test" {
  user = ipa_user.test.user
}

data "ipa_users" "test" {
  user = ipa_user.test.user
}
`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttrPair("data.ipa_user.test", "uid", "ipa_user.test", "uid"),
					resource.TestCheckResourceAttrPair("data.ipa_user.test", "gid", "ipa_user.test", "gid"),
					resource.TestCheckResourceAttr("data.ipa_user.test", "first_name", "Test"),
					resource.TestCheckResourceAttr("data.ipa_user.test", "employee_number", ""),
					resource.TestCheckResourceAttr("data.ipa_users.test", "user_count", "1"),
					resource.TestCheckResourceAttr("data.ipa_users.test", "users.0", name),
				),
			},
		},
	})
}

func TestAccUserDataSource_notFound(t *testing.T) {
	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: testAccProviderConfig() + fmt.Sprintf(`
data "ipa_user" "test" {
  user = %q
}
`, generateTestName("tfmissing-")),
				ExpectError: regexp.MustCompile(`User Not Found`),
			},
		},
	})
}

func TestAccUsersDataSource_noCriteria(t *testing.T) {
	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config:      testAccProviderConfig() + `data "ipa_users" "test" {}`,
				ExpectError: regexp.MustCompile(`Missing Attribute Configuration`),
			},
		},
	})
}

func TestAccGroupDataSource(t *testing.T) {
	name := generateTestName(TestGroupPrefix)

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: testAccGroupResourceConfig_withDescription(name, "Looked up") + `
data "ipa_group" "test" {
  name = ipa_group.test.name
}

data "ipa_groups" "by_gid" {
  gid = ipa_group.test.gid
}
`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("data.ipa_group.test", "description", "Looked up"),
					resource.TestCheckResourceAttrPair("data.ipa_group.test", "gid", "ipa_group.test", "gid"),
					resource.TestCheckResourceAttr("data.ipa_group.test", "user_count", "0"),
					resource.TestCheckResourceAttr("data.ipa_groups.by_gid", "group_count", "1"),
					resource.TestCheckResourceAttr("data.ipa_groups.by_gid", "groups.0", name),
				),
			},
		},
	})
}

func TestAccNSSDataSources(t *testing.T) {
	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: testAccProviderConfig() + `
data "ipa_nss_group" "root" {
  gid = 0
}

data "ipa_nss_user" "root" {
  uid = 0
}
`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("data.ipa_nss_group.root", "found", "true"),
					resource.TestCheckResourceAttr("data.ipa_nss_group.root", "name", "root"),
					resource.TestCheckResourceAttr("data.ipa_nss_user.root", "found", "true"),
					resource.TestCheckResourceAttr("data.ipa_nss_user.root", "name", "root"),
				),
			},
		},
	})
}
