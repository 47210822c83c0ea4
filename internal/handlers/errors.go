package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dm-service/internal/apperrors"
)

var statusByCode = map[apperrors.Code]int{
	apperrors.CodeSelfTargetInvalid: http.StatusBadRequest,
	apperrors.CodeNotFound:          http.StatusNotFound,
	apperrors.CodeNotAParticipant:   http.StatusForbidden,
	apperrors.CodeNotAuthorized:     http.StatusForbidden,
	apperrors.CodeModerated:         http.StatusForbidden,
	apperrors.CodeAlreadyExpired:    http.StatusGone,
	apperrors.CodeInvalidArgument:   http.StatusBadRequest,
	apperrors.CodeInternal:          http.StatusInternalServerError,
}

// respondError writes err as {"error","code","reason","until"}. Internal causes are logged, not returned.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = &apperrors.AppError{Code: apperrors.CodeInternal, Message: "internal error", Cause: err}
	}
	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", requestIDFromContext(c)),
			zap.Error(err),
		)
	}

	body := gin.H{"error": appErr.Message, "code": appErr.Code}
	if appErr.Reason != "" {
		body["reason"] = appErr.Reason
	}
	if appErr.Until != nil {
		body["until"] = appErr.Until
	}
	c.AbortWithStatusJSON(status, body)
}
