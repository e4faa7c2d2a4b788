package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/use-agent/imageboard/board"
	"github.com/use-agent/imageboard/models"
)

// respondError writes the JSON error envelope for err.
func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	status := mapErrorToStatus(appErr)
	if status >= http.StatusInternalServerError {
		slog.Error("api request failed",
			"path", c.Request.URL.Path,
			"code", appErr.Code,
			"error", err,
		)
	}
	c.JSON(status, models.APIResponse{
		Success: false,
		Error:   appErr.ToDetail(),
	})
}

// toAppError maps board validation sentinels to INVALID_INPUT and wraps
// anything unknown as INTERNAL_ERROR.
func toAppError(err error) *models.AppError {
	switch {
	case errors.Is(err, board.ErrNoImage),
		errors.Is(err, board.ErrTooManyImages),
		errors.Is(err, board.ErrFileType),
		errors.Is(err, board.ErrFileSize):
		return models.NewAppError(models.ErrCodeInvalidInput, err.Error(), err)
	}
	return models.AsAppError(err)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.AppError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput, models.ErrCodeUploadFailed:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeForbidden:
		return http.StatusForbidden // 403
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeCMS:
		switch e.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return e.Status
		}
		return http.StatusBadGateway // 502
	case models.ErrCodeCMSUnavailable:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// validationKey picks the message key for a binding failure. keys maps a
// validator tag ("required", "email", "min") to a message key.
func validationKey(err error, keys map[string]string, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if key, ok := keys[fe.Tag()]; ok {
				return key
			}
		}
	}
	return fallback
}

// postFormKey maps a post write failure to its form message key.
func postFormKey(err error) string {
	switch {
	case errors.Is(err, board.ErrNoImage):
		return "PostForm.validation.images"
	case errors.Is(err, board.ErrTooManyImages):
		return "PostForm.validation.tooManyImages"
	case errors.Is(err, board.ErrFileType):
		return "PostForm.validation.fileType"
	case errors.Is(err, board.ErrFileSize):
		return "PostForm.validation.fileSize"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch {
		case appErr.Code == models.ErrCodeInvalidInput:
			return "PostForm.validation.required"
		case appErr.Code == models.ErrCodeForbidden || appErr.Status == http.StatusForbidden:
			return "Posts.forbidden"
		}
	}
	return "PostForm.unknownError"
}

// isUnauthorized reports whether err asks the user to log in again.
func isUnauthorized(err error) bool {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == models.ErrCodeUnauthorized || appErr.Status == http.StatusUnauthorized
}

// isForbidden reports whether err is an ownership or permission failure.
func isForbidden(err error) bool {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == models.ErrCodeForbidden || appErr.Status == http.StatusForbidden
}
