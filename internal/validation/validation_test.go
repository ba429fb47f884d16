package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSendMessageRequest_RejectsBlankContent(t *testing.T) {
	v := New()

	for _, content := range []string{"", "   ", "\n\t"} {
		if err := v.Struct(SendMessageRequest{Content: content}); err == nil {
			t.Fatalf("expected validation error for %q", content)
		}
	}
	if err := v.Struct(SendMessageRequest{Content: "where is order 42?"}); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestAdvanceOrderRequest(t *testing.T) {
	v := New()

	if err := v.Struct(AdvanceOrderRequest{}); err != nil {
		t.Fatalf("empty status means next, got error: %v", err)
	}
	if err := v.Struct(AdvanceOrderRequest{Status: "ready"}); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
	if err := v.Struct(AdvanceOrderRequest{Status: "completed"}); err == nil {
		t.Fatal("legacy status must not be requested")
	}
}

func TestOperatingStatusRequest(t *testing.T) {
	v := New()

	if err := v.Struct(OperatingStatusRequest{OperatingStatus: "not_accepting_orders"}); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
	if err := v.Struct(OperatingStatusRequest{OperatingStatus: "busy"}); err == nil {
		t.Fatal("expected validation error for unknown status")
	}
}

func TestBindAndValidate_ReportsJSONFieldNames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"not-an-email","password":" "}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req LoginRequest
	if err := BindAndValidate(c, &req, New()); err == nil {
		t.Fatal("expected an error")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "validation_failed" || body.Fields["email"] != "email" || body.Fields["password"] != "notblank" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestBindAndValidate_MalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req SendMessageRequest
	if err := BindAndValidate(c, &req, New()); err == nil {
		t.Fatal("expected an error")
	}
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "invalid_request_body") {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}
