package apperror

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeOutOfStock, http.StatusConflict},
		{CodePromoInvalid, http.StatusUnprocessableEntity},
		{CodeDependency, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := MetadataFor(tt.code).HTTPStatus; got != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, got)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	if got := MetadataFor("NOPE").HTTPStatus; got != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", got)
	}
}

func TestPublicMessageHidesInternalDetail(t *testing.T) {
	internal := Wrap(CodeInternal, stdErrors.New("pq: connection refused"), "saving attempt")
	if internal.PublicMessage() != "internal server error" {
		t.Fatalf("internal detail leaked: %q", internal.PublicMessage())
	}

	stock := New(CodeOutOfStock, "Aimbot Pro is out of stock")
	if stock.PublicMessage() != "Aimbot Pro is out of stock" {
		t.Fatalf("unexpected public message %q", stock.PublicMessage())
	}
}

func TestAsUnwrapsThroughFmtErrorf(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := fmt.Errorf("outer: %w", Wrap(CodeDependency, cause, "promo api"))

	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("As failed to find typed error in %v", wrapped)
	}
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("cause not preserved")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should be internal")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}
