package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/webhook-receiver/webhook"
)

/* HTTP layer DTOs for the ingestion API
 * Separate from domain entities to avoid leaking internal structure
 */

// receiveResponse is the synchronous acknowledgement returned to the sender
type receiveResponse struct {
	OK    bool    `json:"ok"`
	Error *string `json:"error"`
}

// postWebhook handles POST /webhooks/{service_id}
func postWebhook(webhookService webhook.UseCase, bodySizeLimit int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serviceID := chi.URLParam(r, "service_id")
		if serviceID == "" {
			writeResult(w, http.StatusNotFound, false, `No handler found for ""`)
			return
		}

		// Enforce the configured payload size limit while reading
		r.Body = http.MaxBytesReader(w, r.Body, bodySizeLimit)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeResult(w, http.StatusRequestEntityTooLarge, false, "Request body is too large")
				return
			}
			writeResult(w, http.StatusBadRequest, false, "Failed to read request body")
			return
		}
		defer r.Body.Close()

		// Forward headers verbatim (first value per name)
		headers := make(map[string]string)
		for key, values := range r.Header {
			if len(values) > 0 {
				headers[key] = values[0]
			}
		}

		req := webhook.Request{
			ServiceID: serviceID,
			Body:      body,
			Headers:   headers,
		}

		err = webhookService.Receive(r.Context(), serviceID, req)
		if err == nil {
			writeResult(w, http.StatusOK, true, "")
			return
		}

		switch {
		case errors.Is(err, webhook.ErrUnknownHandler):
			writeResult(w, http.StatusNotFound, false, fmt.Sprintf("No handler found for %q", serviceID))
		case errors.Is(err, webhook.ErrHandlerInactive):
			writeResult(w, http.StatusServiceUnavailable, false, fmt.Sprintf("Webhook handler %q is inactive", serviceID))
		default:
			var handlerErr *webhook.HandlerError
			if errors.As(err, &handlerErr) && handlerErr.Expose {
				writeResult(w, http.StatusInternalServerError, false, handlerErr.Err.Error())
				return
			}
			/* Concealed failures respond 200 on purpose: the status code
			 * intentionally does not reflect the failure, only the ok flag
			 * does. Senders keep their delivery marked as accepted and the
			 * detail stays in the error report
			 */
			detail := err
			if handlerErr != nil {
				detail = handlerErr.Err
			}
			writeResult(w, http.StatusOK, false, fmt.Sprintf("Internal error (%v)", detail))
		}
	})
}

func writeResult(w http.ResponseWriter, status int, ok bool, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := receiveResponse{OK: ok}
	if errMsg != "" {
		response.Error = &errMsg
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
