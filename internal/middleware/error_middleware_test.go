package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

func TestHandleAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{"not found", apperrors.NewNotFoundError("Chat not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Chat not found"},
		{"forbidden", apperrors.NewForbiddenError("nope"), http.StatusForbidden, dto.ErrorCodeForbidden, "nope"},
		{"pending approval", apperrors.NewCustomError(apperrors.ErrPendingApproval, "pending"), http.StatusForbidden, dto.ErrorCodePendingApproval, "pending"},
		{"duplicate", apperrors.NewDuplicateRequestError(), http.StatusConflict, dto.ErrorCodeDuplicateRequest, "Chat request already sent"},
		{"self", apperrors.NewSelfRequestError(), http.StatusBadRequest, dto.ErrorCodeSelfRequest, apperrors.ErrSelfRequest.Error()},
		{"expired", apperrors.NewCustomError(apperrors.ErrTokenExpired, "Token has expired"), http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token has expired"},
		{"storage details hidden", apperrors.NewPersistenceError("create message", errors.New("disk full")), http.StatusInternalServerError, dto.ErrorCodeDatabaseError, "Internal server error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			var resp dto.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.code || resp.Error.Message != tt.message {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
			if !c.IsAborted() {
				t.Fatal("request should be aborted")
			}
		})
	}
}

func TestValidationDetailsAreExposed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(c, apperrors.NewValidationError("Validation failed", map[string]interface{}{"status": "must be one of: accepted declined"}))

	var resp struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Details["status"] == "" {
		t.Fatalf("field details missing: %s", rec.Body.String())
	}
}
