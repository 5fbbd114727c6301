package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	apperrors "github.com/credicuenta/debt-ledger/pkg/errors"
	"github.com/credicuenta/debt-ledger/pkg/response"
)

var statusByCode = map[string]int{
	apperrors.ErrCodeValidation:          http.StatusBadRequest,
	apperrors.ErrCodeInvalidState:        http.StatusConflict,
	apperrors.ErrCodeInsufficientCredit:  http.StatusUnprocessableEntity,
	apperrors.ErrCodeConcurrencyConflict: http.StatusConflict,
	apperrors.ErrCodeNotFound:            http.StatusNotFound,
	apperrors.ErrCodeDatabaseError:       http.StatusInternalServerError,
	apperrors.ErrCodeCacheError:          http.StatusInternalServerError,
}

// writeError maps a service error onto the response envelope
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	bizErr, ok := apperrors.As(err)
	if !ok {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unclassified error")
		response.InternalServerError(w, "internal server error", nil)
		return
	}

	status, known := statusByCode[bizErr.Code]
	if !known {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Str("code", bizErr.Code).Msg("request failed")
		// storage details stay in the log
		response.Coded(w, status, bizErr.Code, bizErr.Message, nil, nil)
		return
	}

	response.Coded(w, status, bizErr.Code, bizErr.Message, bizErr.Details, nil)
}

// writeValidationError reports request body violations field by field
func writeValidationError(w http.ResponseWriter, err error) {
	details := make(map[string]interface{})
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	response.Coded(w, http.StatusBadRequest, apperrors.ErrCodeValidation, "request validation failed", details, nil)
}
