package domain_test

import (
	"testing"

	"vialtrack/testutil"
)

// The domain package is the dependency floor of the module: every driver and
// engine imports it, so it must not pull in infrastructure or third-party
// code itself.
func TestDomainImportsStdlibOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.NonStdlibImportForbidden,
		"pkg/domain must not depend on third-party packages")
}

func TestDomainDoesNotReachIntoInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"pkg/domain must not depend on internal packages")
}
