package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/adityahutama/pasarsegar-backend/pkg/errors"
)

type samplePayload struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

func request(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodySuccess(t *testing.T) {
	var payload samplePayload
	if err := DecodeJSONBody(request(`{"product_id":"p-1","quantity":2}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.ProductID != "p-1" || payload.Quantity != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsMalformedJSON(t *testing.T) {
	var payload samplePayload
	err := DecodeJSONBody(request(`{not json`), &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var payload samplePayload
	err := DecodeJSONBody(request(`{"product_id":"p-1","quantity":1,"surprise":true}`), &payload)
	if err == nil {
		t.Fatal("expected unknown-field rejection")
	}
}

func TestDecodeJSONBodyCollectsFieldErrors(t *testing.T) {
	var payload samplePayload
	err := DecodeJSONBody(request(`{"quantity":0}`), &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field detail map, got %T", typed.Details())
	}
	if details["product_id"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
	if details["quantity"] != "must be at least 1" {
		t.Fatalf("unexpected details %v", details)
	}
}
