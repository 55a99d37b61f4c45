package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"notebook-ai/internal/apis/dtos"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomRecoveryMiddleware_ReturnsResponseDTO(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CustomRecoveryMiddleware())
	router.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp dtos.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Internal Server Error", *resp.Error)
}
