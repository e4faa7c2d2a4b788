package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/imageboard/board"
	"github.com/use-agent/imageboard/models"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		err  *models.AppError
		want int
	}{
		{models.NewAppError(models.ErrCodeInvalidInput, "", nil), http.StatusBadRequest},
		{models.NewAppError(models.ErrCodeUploadFailed, "", nil), http.StatusBadRequest},
		{models.NewAppError(models.ErrCodeUnauthorized, "", nil), http.StatusUnauthorized},
		{models.NewAppError(models.ErrCodeForbidden, "", nil), http.StatusForbidden},
		{models.NewAppError(models.ErrCodeNotFound, "", nil), http.StatusNotFound},
		{models.NewAppError(models.ErrCodeRateLimited, "", nil), http.StatusTooManyRequests},
		{&models.AppError{Code: models.ErrCodeCMS, Status: http.StatusForbidden}, http.StatusForbidden},
		{&models.AppError{Code: models.ErrCodeCMS, Status: http.StatusInternalServerError}, http.StatusBadGateway},
		{models.NewAppError(models.ErrCodeCMSUnavailable, "", nil), http.StatusServiceUnavailable},
		{models.NewAppError(models.ErrCodeInternal, "", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapErrorToStatus(tt.err), tt.err.Code)
	}
}

func TestToAppError(t *testing.T) {
	for _, err := range []error{board.ErrNoImage, board.ErrTooManyImages, board.ErrFileType, board.ErrFileSize} {
		assert.Equal(t, models.ErrCodeInvalidInput, toAppError(err).Code)
	}
	assert.Equal(t, models.ErrCodeInternal, toAppError(errors.New("boom")).Code)
}

func TestPostFormKey(t *testing.T) {
	assert.Equal(t, "PostForm.validation.images", postFormKey(board.ErrNoImage))
	assert.Equal(t, "PostForm.validation.tooManyImages", postFormKey(fmt.Errorf("wrap: %w", board.ErrTooManyImages)))
	assert.Equal(t, "PostForm.validation.fileType", postFormKey(board.ErrFileType))
	assert.Equal(t, "PostForm.validation.fileSize", postFormKey(board.ErrFileSize))
	assert.Equal(t, "PostForm.validation.required", postFormKey(models.NewAppError(models.ErrCodeInvalidInput, "", nil)))
	assert.Equal(t, "Posts.forbidden", postFormKey(&models.AppError{Code: models.ErrCodeCMS, Status: http.StatusForbidden}))
	assert.Equal(t, "PostForm.unknownError", postFormKey(errors.New("boom")))
}

func TestCommentFlash(t *testing.T) {
	assert.Equal(t, "signin", commentFlash(&models.AppError{Code: models.ErrCodeCMS, Status: http.StatusUnauthorized}, "submit"))
	assert.Equal(t, "forbidden", commentFlash(models.NewAppError(models.ErrCodeForbidden, "", nil), "delete"))
	assert.Equal(t, "required", commentFlash(models.NewAppError(models.ErrCodeInvalidInput, "", nil), "submit"))
	assert.Equal(t, "update", commentFlash(errors.New("boom"), "update"))

	for code := range flashMessages {
		key, ok := flashKey(code)
		assert.True(t, ok)
		assert.NotEmpty(t, key)
	}
	_, ok := flashKey("<script>")
	assert.False(t, ok)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/en/posts/1", safeNext("/en/posts/1", "/fallback"))
	assert.Equal(t, "/fallback", safeNext("", "/fallback"))
	assert.Equal(t, "/fallback", safeNext("https://evil.example", "/fallback"))
	assert.Equal(t, "/fallback", safeNext("//evil.example", "/fallback"))
	assert.Equal(t, "/fallback", safeNext(`/\evil.example`, "/fallback"))
}

func TestBoundedInt(t *testing.T) {
	assert.Equal(t, 1, boundedInt("", 1, 1, 20))
	assert.Equal(t, 1, boundedInt("abc", 1, 1, 20))
	assert.Equal(t, 1, boundedInt("-4", 1, 1, 20))
	assert.Equal(t, 7, boundedInt("7", 1, 1, 20))
	assert.Equal(t, 20, boundedInt("999", 1, 1, 20))
}
