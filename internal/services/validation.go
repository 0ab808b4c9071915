package services

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"transporter-dashboard/internal/apiclient"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance reports field errors by their JSON names
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// fieldMessages maps "field.tag" to the message shown to the user
type fieldMessages map[string]string

var requestMessages = fieldMessages{
	"origin.required":      "Origin is required",
	"origin.min":           "Origin must be at least 2 characters",
	"origin.max":           "Origin must be less than 100 characters",
	"destination.required": "Destination is required",
	"destination.min":      "Destination must be at least 2 characters",
	"destination.max":      "Destination must be less than 100 characters",
	"truckCount.required":  "Truck count is required",
	"truckCount.min":       "At least 1 truck is required",
	"truckCount.max":       "Maximum 20 trucks allowed",
	"loadDetails.required": "Load details are required",
	"loadDetails.min":      "Please provide more detailed description (at least 10 characters)",
	"loadDetails.max":      "Load details must be less than 1000 characters",
}

var driverMessages = fieldMessages{
	"name.required":                "Driver name must be at least 2 characters",
	"name.min":                     "Driver name must be at least 2 characters",
	"type.required":                `Invalid driver type. Must be "transporter" or "in_house"`,
	"type.oneof":                   `Invalid driver type. Must be "transporter" or "in_house"`,
	"transportCompany.required_if": "Transport company is required for transporter drivers",
	"phone.required_if":            "Phone number is required for transporter drivers",
	"employeeId.required_if":       "Employee ID is required for in-house drivers",
	"department.required_if":       "Department is required for in-house drivers",
}

// check validates v and returns the first failure as a validation error
func check(v interface{}, messages fieldMessages) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apiclient.Validation(err.Error())
	}
	fe := fieldErrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return apiclient.Validation(msg)
	}
	return apiclient.Validationf("%s is invalid (%s)", fe.Field(), fe.Tag())
}
