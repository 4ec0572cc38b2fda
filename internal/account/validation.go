// internal/account/validation.go
package account

import (
	"fmt"
	"strings"

	"review-funnel/internal/common/errors"
	"review-funnel/internal/common/validation"
)

// Google Maps place IDs in the wild are 27 characters. Checking the length
// up front keeps obviously broken accounts from ever reaching the
// provisioning webhook.
const placeIDLength = 27

var createSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"userName": {Type: "string", MinLength: validation.IntPtr(1)},
		"placeId":  {Type: "string", MinLength: validation.IntPtr(placeIDLength), MaxLength: validation.IntPtr(placeIDLength)},
		"mapUrl":   {Type: "string", MinLength: validation.IntPtr(1)},
		"password": {Type: "string", MinLength: validation.IntPtr(1)},
		"shopName": {Type: "string", MinLength: validation.IntPtr(1)},
		"shopUrl":  {Type: "string"},
	},
	Required:             []string{"userName", "placeId", "mapUrl", "password", "shopName"},
	AdditionalProperties: true,
}

// validateCreate checks the request without touching any external service.
func validateCreate(req CreateRequest) error {
	input := map[string]interface{}{
		"userName": req.UserName,
		"placeId":  req.PlaceID,
		"mapUrl":   req.MapURL,
		"password": req.Password,
		"shopName": req.ShopName,
		"shopUrl":  req.ShopURL,
	}

	result := validation.ValidateInput(input, createSchema)
	if result.Valid {
		return nil
	}

	var details []string
	for _, vErr := range result.Errors {
		// A present but mis-sized place ID gets its own error; an absent one
		// is just a missing required field like any other.
		if vErr.Field == "placeId" && req.PlaceID != "" {
			return errors.NewInvalidPlaceIDError()
		}
		details = append(details, fmt.Sprintf("%s: %s", vErr.Field, vErr.Message))
	}
	return errors.NewValidationFailedError(strings.Join(details, "; "))
}
