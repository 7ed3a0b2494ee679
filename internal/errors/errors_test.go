package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCreation(t *testing.T) {
	// 测试创建基本错误
	err := New("test", "test message", nil, http.StatusBadRequest)
	assert.Equal(t, "test", err.Type)
	assert.Equal(t, "test message", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.Code)

	// 测试创建带原因的错误
	cause := fmt.Errorf("original error")
	err = New("test", "test with cause", cause, http.StatusInternalServerError)
	assert.Same(t, cause, err.Cause)
	assert.Equal(t, "test: test with cause: original error", err.Error())
}

func TestErrorTypeChecking(t *testing.T) {
	regionErr := RegionPrefixInvalid("bogus", nil)
	updErr := UpdateCheckFailed(fmt.Errorf("timeout"))

	assert.True(t, Is(regionErr, ErrTypeRegion))
	assert.False(t, Is(regionErr, ErrTypeUpdater))
	assert.True(t, Is(updErr, ErrTypeUpdater))
	assert.True(t, Is(fmt.Errorf("loop: %w", regionErr), ErrTypeRegion))

	assert.Equal(t, ErrTypeRegion, GetType(regionErr))
	assert.Equal(t, "unknown", GetType(fmt.Errorf("standard error")))
	assert.Equal(t, "", GetType(nil))
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, http.StatusOK, GetCode(nil))
	assert.Equal(t, http.StatusConflict, GetCode(UpdateNotAvailable()))
	assert.Equal(t, http.StatusNotFound, GetCode(ProcessNotFound("game.exe")))
	assert.Equal(t, http.StatusInternalServerError, GetCode(fmt.Errorf("plain")))
}

func TestErrorUnwrapping(t *testing.T) {
	innermost := fmt.Errorf("innermost error")
	inner := New("inner", "inner error", innermost, http.StatusBadRequest)
	outer := New("outer", "outer error", inner, http.StatusInternalServerError)

	assert.Equal(t, inner, outer.Unwrap())
	assert.Same(t, innermost, RootCause(outer))
}

func TestWatcherPanic(t *testing.T) {
	err := WatcherPanic("boom")
	assert.Equal(t, ErrTypeInternal, err.Type)
	assert.Contains(t, err.Error(), "boom")
	assert.NotEmpty(t, err.Stack)

	cause := fmt.Errorf("nil map")
	err = WatcherPanic(cause)
	assert.Same(t, cause, err.Cause)
}

func TestErrorUtilityFunctions(t *testing.T) {
	err1 := fmt.Errorf("error 1")
	err2 := fmt.Errorf("error 2")

	assert.Same(t, err1, JoinErrors(nil, err1))
	assert.Nil(t, JoinErrors(nil, nil))

	joined := JoinErrors(err1, err2)
	require.Error(t, joined)
	assert.Contains(t, joined.Error(), "error 1")
	assert.Contains(t, joined.Error(), "error 2")

	appErr, ok := AsAppError(fmt.Errorf("wrapped: %w", ErrCheckRunning))
	require.True(t, ok)
	assert.Equal(t, ErrTypeUpdater, appErr.Type)
	_, ok = AsAppError(err2)
	assert.False(t, ok)

	chain := FormatErrorChain(RegionTableFetchFailed("aws", err1))
	assert.Contains(t, chain, "Stack Trace:")
	assert.Contains(t, chain, "Caused by: error 1")
}

func TestErrorHandlerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	defer func() { log.Logger = prev }()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(), ErrorHandlerMiddleware())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(UpdateNotAvailable())
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), "no update available")
	assert.Contains(t, buf.String(), `"type":"`+ErrTypeUpdater+`"`)
	assert.Contains(t, buf.String(), `"code":409`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "panic recovered")
}

func TestErrWrappedAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/wrapped", func(c *gin.Context) {
		c.Set("RequestID", "req-1")
		Err(c, fmt.Errorf("install: %w", UpdateNotAvailable()))
	})
	router.GET("/plain", func(c *gin.Context) {
		Err(c, fmt.Errorf("disk full"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wrapped", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "no update available")
	assert.Contains(t, w.Body.String(), "req-1")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk full")
}
