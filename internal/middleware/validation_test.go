package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Request shape mirroring the add-to-cart payload
type testCartRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=1000"`
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeProductID bool, includeQuantity bool) bool {
			reqMap := make(map[string]interface{})

			if includeProductID {
				reqMap["product_id"] = uuid.NewString()
			}
			if includeQuantity {
				reqMap["quantity"] = 2
			}

			allFieldsPresent := includeProductID && includeQuantity

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var testReq testCartRequest
			err := DecodeAndValidate(req, &testReq)

			if allFieldsPresent {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidationErrorsAreFormatted(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("validation errors include field information", prop.ForAll(
		func() bool {
			reqMap := map[string]interface{}{
				"product_id": "not-a-uuid",
				"quantity":   2,
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var testReq testCartRequest
			err := DecodeAndValidate(req, &testReq)
			if err == nil {
				return false
			}

			validationErrors := FormatValidationErrors(err)
			if len(validationErrors) == 0 {
				return false
			}

			for _, ve := range validationErrors {
				if ve.Field == "" || ve.Message == "" {
					return false
				}
			}

			return true
		},
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_QuantityRangeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("quantity outside valid range is rejected", prop.ForAll(
		func(quantity int) bool {
			reqMap := map[string]interface{}{
				"product_id": uuid.NewString(),
				"quantity":   quantity,
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var testReq testCartRequest
			err := DecodeAndValidate(req, &testReq)

			if quantity >= 1 && quantity <= 1000 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-100, 2000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte(`{"product_id": `)))
	req.Header.Set("Content-Type", "application/json")

	var testReq testCartRequest
	if err := DecodeAndValidate(req, &testReq); err == nil {
		t.Fatal("expected decode error for malformed JSON")
	}
}
