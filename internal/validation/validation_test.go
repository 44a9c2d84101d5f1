package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidDRNumber(t *testing.T) {
	require.True(t, IsValidDRNumber("DR-1001"))
	require.True(t, IsValidDRNumber("DR-2025-0042"))
	require.False(t, IsValidDRNumber("1001"))
	require.False(t, IsValidDRNumber("DR-"))
}

func TestIsValidCustomerID(t *testing.T) {
	require.True(t, IsValidCustomerID("CUST-001"))
	require.True(t, IsValidCustomerID("CUST-1042"))
	require.False(t, IsValidCustomerID("CUST-1"))
	require.False(t, IsValidCustomerID("cust-001"))
}

func TestValidateStructUsesTags(t *testing.T) {
	type payload struct {
		Name  string `validate:"required"`
		Email string `validate:"omitempty,email"`
	}

	require.NoError(t, ValidateStruct(payload{Name: "Ana"}))
	require.Error(t, ValidateStruct(payload{}))
	require.Error(t, ValidateStruct(payload{Name: "Ana", Email: "nope"}))
}

func TestValidateStructAcceptsCustomTags(t *testing.T) {
	type payload struct {
		DRNumber string `json:"drNumber" validate:"required,dr_number"`
		ID       string `json:"id" validate:"omitempty,customer_id"`
	}

	require.NoError(t, ValidateStruct(payload{DRNumber: "DR-1001"}))
	require.NoError(t, ValidateStruct(payload{DRNumber: "DR-1001", ID: "CUST-001"}))
	require.Error(t, ValidateStruct(payload{DRNumber: "1001"}))
	require.Error(t, ValidateStruct(payload{DRNumber: "DR-1001", ID: "cust-1"}))
}

func TestDescribeReportsJSONFieldNames(t *testing.T) {
	type payload struct {
		DRNumber string `json:"drNumber" validate:"required,dr_number"`
		Email    string `json:"email" validate:"omitempty,email"`
	}

	field, reason := Describe(ValidateStruct(payload{}))
	require.Equal(t, "drNumber", field)
	require.Equal(t, "is required", reason)

	field, reason = Describe(ValidateStruct(payload{DRNumber: "1001"}))
	require.Equal(t, "drNumber", field)
	require.Contains(t, reason, "DR number")

	field, reason = Describe(ValidateStruct(payload{DRNumber: "DR-1001", Email: "nope"}))
	require.Equal(t, "email", field)
	require.Equal(t, "must be a valid email address", reason)
}
