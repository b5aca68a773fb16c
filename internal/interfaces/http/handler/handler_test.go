package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// decode unmarshals the response envelope and, when out is set, its data
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if out != nil && resp.Data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"domain error is mapped", shared.NewDomainError("NOTHING_TO_RETRY", "Session is not in an error state"), http.StatusConflict, dto.ErrCodeInvalidState},
		{"unknown section is not found", shared.NewDomainError("INVALID_SECTION", "Unknown section"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"plain error is internal", assert.AnError, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(logger.GinMiddleware(zap.NewNop()))
			r.GET("/", func(c *gin.Context) {
				h := &BaseHandler{}
				h.HandleError(c, tt.err)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(logger.RequestIDHeader, "req-42")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decode(t, w, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-42", resp.Error.RequestID)
			assert.NotContains(t, resp.Error.Message, assert.AnError.Error())
		})
	}
}

func TestSystemHandler(t *testing.T) {
	h := NewSystemHandler("CRM Backend API", "1.2.0")

	t.Run("info", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/system/info", nil)
		h.GetSystemInfo(c)

		require.Equal(t, http.StatusOK, w.Code)
		var info SystemInfoResponse
		resp := decode(t, w, &info)
		assert.True(t, resp.Success)
		assert.Equal(t, "CRM Backend API", info.Name)
		assert.Equal(t, "1.2.0", info.Version)
		assert.NotEmpty(t, info.GoVersion)
	})

	t.Run("ping", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/system/ping", nil)
		h.Ping(c)

		var pong PingResponse
		decode(t, w, &pong)
		assert.Equal(t, "pong", pong.Message)
		_, err := time.Parse(time.RFC3339, pong.Timestamp)
		assert.NoError(t, err)
	})
}
