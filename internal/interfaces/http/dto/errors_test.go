package dto

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", shared.NewValidationError("PROOF_REQUIRED", "proof"), http.StatusBadRequest, "PROOF_REQUIRED"},
		{"policy", shared.NewPolicyViolation("PAYMENT_INCOMPLETE", "unpaid"), http.StatusUnprocessableEntity, "PAYMENT_INCOMPLETE"},
		{"conflict", shared.NewConflictError("locked"), http.StatusConflict, shared.CodeConflict},
		{"inventory", shared.NewInsufficientInventoryError("short"), http.StatusUnprocessableEntity, shared.CodeInsufficientInventory},
		{"not found", shared.NewNotFoundError("order", uuid.New()), http.StatusNotFound, shared.CodeNotFound},
		{"wrapped", fmt.Errorf("save: %w", shared.ErrConcurrencyConflict), http.StatusConflict, shared.CodeConflict},
		{"duplicate request", shared.ErrDuplicateRequest, http.StatusUnprocessableEntity, shared.CodeDuplicateRequest},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusForError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestStatusForKind_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusForKind(shared.ErrorKind("odd")))
}

func TestErrorResponse_JSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeForbidden, "Role not permitted", "")
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"FORBIDDEN","message":"Role not permitted"}}`, string(raw))
}

func TestValidationErrorResponse_JSON(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "amount", Message: "Must be greater than zero"},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeValidation, errObj["code"])
	assert.Equal(t, "req-1", errObj["request_id"])
	assert.Len(t, errObj["details"], 1)
	assert.NotContains(t, decoded, "data")
}
