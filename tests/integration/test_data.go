//go:build integration

package integration

import "fmt"

// Credentials shared by the flow tests
const (
	AdminUsername = "root"
	AdminPassword = "RootPass123"
	TestPassword  = "Secret123"
	ClientIP      = "203.0.113.10"
)

// TestUser returns a unique username with the shared test password
func TestUser(suffix string) (username, password string) {
	return fmt.Sprintf("user_%s", suffix), TestPassword
}
