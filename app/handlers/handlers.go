// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"fmt"

	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// actorFromLocals builds the acting identity from the values the auth
// middleware stored on the request.
func actorFromLocals(c fiber.Ctx) (businessflow.Actor, bool) {
	tenantID, ok := c.Locals("tenant_id").(uint)
	if !ok {
		return businessflow.Actor{}, false
	}
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return businessflow.Actor{}, false
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return businessflow.Actor{}, false
	}
	return businessflow.Actor{TenantID: tenantID, UserID: userID, Role: role}, true
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "eqfield":
		return err.Field() + " must match " + err.Param()
	case "alpha_space":
		return err.Field() + " must contain only letters and spaces"
	case "password_strength":
		return "Password must contain at least 1 uppercase letter and 1 number"
	case "fqdn":
		return err.Field() + " must be a valid domain name"
	case "uppercase":
		return err.Field() + " must be uppercase"
	case "datetime":
		return err.Field() + " must match the layout " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
