package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// correlationHeader echoes the processor's debug id on every PayPal-backed
// response so a request can be traced across systems.
const correlationHeader = "paypal-debug-id"

type errorDetail struct {
	Field       string `json:"field,omitempty"`
	Issue       string `json:"issue"`
	Description string `json:"description,omitempty"`
}

type errorBody struct {
	Name    string        `json:"name"`
	Message string        `json:"message,omitempty"`
	Details []errorDetail `json:"details,omitempty"`
}

// unprocessableStub is the structured no-monetary-data response for shipping
// callbacks that reference an unknown, expired or unsupported context.
func unprocessableStub() errorBody {
	return errorBody{
		Name:    "UNPROCESSABLE_ENTITY",
		Details: []errorDetail{{Issue: "METHOD_UNAVAILABLE"}},
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"name":"INTERNAL_SERVER_ERROR"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("handler: failed to write JSON response")
	}
}

func respondWithError(w http.ResponseWriter, code int, body errorBody) {
	respondWithJSON(w, code, body)
}

func badRequest(w http.ResponseWriter, message string, details ...errorDetail) {
	respondWithError(w, http.StatusBadRequest, errorBody{
		Name:    "INVALID_REQUEST",
		Message: message,
		Details: details,
	})
}
