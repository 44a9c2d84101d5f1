package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields under their json names so errors match the wire format.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	registerCustomValidations()
}

// ValidateStruct validates a struct using validation tags
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	return nil
}

// Describe resolves a struct validation failure to the offending field and a
// caller-facing reason. Only the first failed field is reported.
func Describe(err error) (field, reason string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "", err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field(), "is required"
	case "email":
		return fe.Field(), "must be a valid email address"
	case "dr_number":
		return fe.Field(), "must be a DR number like DR-12045"
	case "customer_id":
		return fe.Field(), "must be a customer ID like CUST-001"
	default:
		return fe.Field(), "is invalid"
	}
}

var drNumberPattern = regexp.MustCompile(`^DR-[A-Za-z0-9-]+$`)

// IsValidDRNumber checks if a string is a well-formed DR number
func IsValidDRNumber(drNumber string) bool {
	return drNumberPattern.MatchString(drNumber)
}

var customerIDPattern = regexp.MustCompile(`^CUST-[0-9]{3,}$`)

// IsValidCustomerID checks if a string is a well-formed customer ID
func IsValidCustomerID(id string) bool {
	return customerIDPattern.MatchString(id)
}

// registerCustomValidations registers custom validation functions
func registerCustomValidations() {
	validate.RegisterValidation("dr_number", func(fl validator.FieldLevel) bool {
		return IsValidDRNumber(fl.Field().String())
	})

	validate.RegisterValidation("customer_id", func(fl validator.FieldLevel) bool {
		return IsValidCustomerID(fl.Field().String())
	})
}
