// Package license_test contains tests for the license package.
package license_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sysand-dev/sysand-go/internal/core/license"
)

func TestValidate_EmptyIsOK(t *testing.T) {
	t.Parallel()
	assert.NoError(t, license.Validate(""))
}

func TestValidate_SimpleID(t *testing.T) {
	t.Parallel()
	assert.NoError(t, license.Validate("MIT"))
	assert.NoError(t, license.Validate("Apache-2.0"))
}

func TestValidate_OrLaterSuffix(t *testing.T) {
	t.Parallel()
	assert.NoError(t, license.Validate("GPL-2.0-only"))
	assert.NoError(t, license.Validate("Apache-2.0+"))
}

func TestValidate_AndOrCombinations(t *testing.T) {
	t.Parallel()
	assert.NoError(t, license.Validate("MIT AND Apache-2.0"))
	assert.NoError(t, license.Validate("(MIT OR Apache-2.0) AND BSD-3-Clause"))
}

func TestValidate_WithException(t *testing.T) {
	t.Parallel()
	assert.NoError(t, license.Validate("Apache-2.0 WITH LLVM-exception"))
}

func TestValidate_LicenseRefAlwaysAccepted(t *testing.T) {
	t.Parallel()
	assert.NoError(t, license.Validate("LicenseRef-MyCompany-Proprietary"))
}

func TestValidate_UnrecognisedIDIsError(t *testing.T) {
	t.Parallel()
	err := license.Validate("NotARealLicense")
	assert.Error(t, err)
}

func TestValidate_UnbalancedParensIsError(t *testing.T) {
	t.Parallel()
	err := license.Validate("(MIT AND Apache-2.0")
	assert.Error(t, err)
}

func TestValidate_UnknownExceptionIsError(t *testing.T) {
	t.Parallel()
	err := license.Validate("MIT WITH NotARealException")
	assert.Error(t, err)
}
