package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/auth"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/repository"
	"github.com/zsiskos/roadstartire/internal/service"
)

const maxBodySize = 1 << 20 // 1MB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// price fits the NUMERIC(7,2) columns
	if err := v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		price, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && !price.IsNegative() && price.LessThan(domain.MaxPrice)
	}); err != nil {
		panic(err)
	}
	return v
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON reads and validates a request body, answering 400 itself when
// the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fieldName(fe)))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", fieldName(fe)))
		case "price":
			msgs = append(msgs, fmt.Sprintf("%s must be at least 0 and below %s", fieldName(fe), domain.MaxPrice))
		case "min", "max", "gte", "lte", "len":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fieldName(fe), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fieldName(fe)))
		}
	}
	return strings.Join(msgs, "; ")
}

// fieldName turns the Go field name into the snake_case json name.
func fieldName(fe validator.FieldError) string {
	var b strings.Builder
	for i, r := range fe.Field() {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryPage reads limit and offset, capping limit at 100.
func queryPage(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	limit, offset = 50, 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
	}
	if limit > 100 {
		limit = 100
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must not be negative")
		}
	}
	return limit, offset, nil
}

// mapServiceError is the single place where domain errors become HTTP
// status codes.
func mapServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error: stockErr.Error(),
			Code:  "insufficient_stock",
			Details: map[string]any{
				"product_id":   stockErr.ProductID,
				"product_name": stockErr.ProductName,
				"requested":    stockErr.Requested,
				"available":    stockErr.Available,
			},
		})
		return
	}

	var httpStatus int
	var code string

	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptySearch),
		errors.Is(err, domain.ErrInvalidRatio),
		errors.Is(err, domain.ErrInvalidTimezone),
		errors.Is(err, domain.ErrInvalidCountry),
		errors.Is(err, domain.ErrInvalidProvince):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrNoCurrentRevision),
		errors.Is(err, repository.ErrTreadNotFound),
		errors.Is(err, repository.ErrImageNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrLineNotFound),
		errors.Is(err, repository.ErrShippingNotFound),
		errors.Is(err, service.ErrProductNotAvailable):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrCartClosed),
		errors.Is(err, service.ErrEmptyCart):
		httpStatus = http.StatusConflict
		code = "failed_precondition"
	case errors.Is(err, repository.ErrEmailTaken),
		errors.Is(err, repository.ErrDuplicateSKU),
		errors.Is(err, repository.ErrDuplicateTread),
		errors.Is(err, repository.ErrDuplicateLine),
		errors.Is(err, repository.ErrCurrentCartExists):
		httpStatus = http.StatusConflict
		code = "already_exists"
	case errors.Is(err, service.ErrAccountInactive):
		httpStatus = http.StatusForbidden
		code = "account_inactive"
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		httpStatus = http.StatusUnauthorized
		code = "unauthenticated"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	default:
		log.Printf("request id = %v failed with error %v", getRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
