package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain digits only", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s does not match", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Username":          "Username",
		"Email":             "Email",
		"Password":          "Password",
		"ConfirmPassword":   "Password confirmation",
		"PhoneNumber":       "Phone number",
		"Role":              "Role",
		"Code":              "Verification code",
		"FlowToken":         "Flow token",
		"ResetToken":        "Reset token",
		"GoalAmount":        "Funding goal",
		"Duration":          "Duration",
		"MarketOpportunity": "Market opportunity",
		"UseOfFunds":        "Use of funds",
		"ReturnType":        "Return type",
		"PaymentID":         "Payment id",
		"OrderID":           "Order id",
		"Signature":         "Payment signature",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
