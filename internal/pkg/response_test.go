package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/recordsvc/internal/domain"
)

// testInput is used to generate real validator.ValidationErrors.
type testInput struct {
	Name string `json:"name" validate:"required"`
	ID   string `json:"id" validate:"required,uuid"`
}

// bindInput mirrors a record creation payload.
type bindInput struct {
	Name        string  `json:"name" binding:"required,min=3,max=10"`
	Description *string `json:"description"`
}

func newResponseTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func newResponseTestContextWithBody(body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	c, w := newResponseTestContext()

	Success(c, map[string]string{"id": "abc"})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Code != http.StatusOK || resp.Message != "success" {
		t.Errorf("unexpected envelope %+v", resp)
	}
	if resp.Data == nil {
		t.Error("expected non-nil data")
	}
}

func TestSuccess_NilData(t *testing.T) {
	c, w := newResponseTestContext()

	Success(c, nil)

	resp := decodeResponse(t, w)
	if resp.Data != nil {
		t.Errorf("expected nil data, got %v", resp.Data)
	}
}

func TestCreated(t *testing.T) {
	c, w := newResponseTestContext()

	Created(c, map[string]string{"id": "abc"})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if resp := decodeResponse(t, w); resp.Code != http.StatusCreated {
		t.Errorf("expected code %d, got %d", http.StatusCreated, resp.Code)
	}
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.DELETE("/", func(c *gin.Context) { NoContent(c) })

	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", domain.NotFoundError("record", "abc"), http.StatusNotFound, `record with id "abc" not found`},
		{"already exists", domain.NewAppError(domain.CodeAlreadyExists, "record already exists", nil), http.StatusConflict, "record already exists"},
		{"usage", domain.UsageError("invalid limit 0"), http.StatusBadRequest, "invalid limit 0"},
		{"store", domain.StoreError(errors.New("disk I/O error")), http.StatusInternalServerError, "database error"},
		{"plain error", errors.New("something broke"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContext()

			Error(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := decodeResponse(t, w)
			if resp.Code != tt.wantStatus {
				t.Errorf("expected code %d, got %d", tt.wantStatus, resp.Code)
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, resp.Message)
			}
			if resp.Data != nil {
				t.Errorf("expected nil data, got %v", resp.Data)
			}
		})
	}
}

func TestValidationError_WithValidatorErrors(t *testing.T) {
	c, w := newResponseTestContext()

	err := validator.New().Struct(testInput{ID: "not-a-uuid"})
	ValidationError(c, err)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Message != "validation error" {
		t.Errorf("expected message %q, got %q", "validation error", resp.Message)
	}
	// Without obj, field names fall back to the lowercased struct field.
	if msg := resp.Errors["name"]; msg != "This field is required" {
		t.Errorf("unexpected message for name: %q", msg)
	}
	if msg := resp.Errors["id"]; msg != "Must be a valid UUID" {
		t.Errorf("unexpected message for id: %q", msg)
	}
}

func TestValidationError_NonValidationError(t *testing.T) {
	c, w := newResponseTestContext()

	ValidationError(c, errors.New("bad json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if resp := decodeResponse(t, w); resp.Message != "bad request" {
		t.Errorf("expected message %q, got %q", "bad request", resp.Message)
	}
}

func TestBindAndValidate_InvalidJSON(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"invalid json`)

	var input bindInput
	if BindAndValidate(c, &input) {
		t.Error("expected BindAndValidate to return false for invalid JSON")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestBindAndValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing name", `{}`, "This field is required"},
		{"too short", `{"name":"ab"}`, "Must be at least 3 characters"},
		{"too long", `{"name":"abcdefghijk"}`, "Must be at most 10 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContextWithBody(tt.body)

			var input bindInput
			if BindAndValidate(c, &input) {
				t.Fatal("expected BindAndValidate to return false")
			}

			var resp ValidationErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if msg := resp.Errors["name"]; msg != tt.wantMsg {
				t.Errorf("expected %q for name, got %q", tt.wantMsg, msg)
			}
		})
	}
}

func TestBindAndValidate_ValidInput(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"name":"alpha","description":"first"}`)

	var input bindInput
	if !BindAndValidate(c, &input) {
		t.Fatal("expected BindAndValidate to return true for valid input")
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body on success, got %q", w.Body.String())
	}
	if input.Name != "alpha" || input.Description == nil || *input.Description != "first" {
		t.Errorf("unexpected bound input %+v", input)
	}
}
