package http

import (
	"net/http"
	"strconv"

	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/common/logger"
	"knowledge-hub/internal/observability/metrics"
)

// HandleError maps domain errors onto HTTP responses; anything outside the
// taxonomy becomes an opaque 500.
func HandleError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	if err == nil {
		return
	}

	ctx := r.Context()
	traceID := logger.TraceIDFromContext(ctx)
	if traceID != "" {
		w.Header().Set("X-Trace-ID", traceID)
	}

	if domainErr, ok := commonerrors.AsDomainError(err); ok {
		status := domainErr.HTTPStatus()
		log.WithFields(ctx, logger.Fields{
			"error_code": domainErr.Code(),
			"category":   string(domainErr.Category()),
			"status":     status,
			"action":     "domain_error",
		}).Debugf("domain error: %s", domainErr.Error())

		metrics.HTTPErrorsTotal.WithLabelValues(strconv.Itoa(status), r.Method).Inc()
		WriteErrorEnvelope(w, status, domainErr.Code(), domainErr.Message(), traceID)
		return
	}

	log.WithFields(ctx, logger.Fields{
		"action": "unhandled_error",
	}).Errorf("unhandled error: %v", err)

	metrics.HTTPErrorsTotal.WithLabelValues(strconv.Itoa(http.StatusInternalServerError), r.Method).Inc()
	WriteError(w, http.StatusInternalServerError, "internal server error")
}
