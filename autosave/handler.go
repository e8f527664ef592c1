package autosave

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zenibako/autosave-form/messages"
)

// FormProvider builds the form a request addresses, with its entity loaded
type FormProvider func(r *http.Request) (*Form, error)

// Handler serves the submit endpoint and the client config of forms
type Handler struct {
	name     string
	provider FormProvider
	metrics  *Metrics
}

// NewHandler creates a handler. name labels the handler's metrics.
func NewHandler(name string, provider FormProvider) *Handler {
	return &Handler{
		name:     name,
		provider: provider,
	}
}

// SetMetrics records submits in m
func (h *Handler) SetMetrics(m *Metrics) {
	h.metrics = m
}

// ServeHTTP submits on POST and returns the client config on GET
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Submit(w, r)
	case http.MethodGet:
		h.Config(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Submit handles one form submit. The response is the JSON payload, or the
// rendered script with ?format=js.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}

	form, ok := h.form(w, r)
	if !ok {
		return
	}

	payload, err := form.Submit(r.Context(), r.PostForm)
	if err != nil {
		var unbound *UnboundFieldError
		if errors.As(err, &unbound) {
			log.Error("Validation failed on a field without a control", "form", form.ID(), "field", unbound.Field, "error", err)
		} else {
			log.Error("Submit failed", "form", form.ID(), "error", err)
		}
		h.metrics.ObserveSubmit(h.name, OutcomeError, nil, time.Since(started))
		http.Error(w, "submit failed", http.StatusInternalServerError)
		return
	}

	outcome := OutcomeSaved
	if payload.Count(messages.OpFieldError) > 0 {
		outcome = OutcomeInvalid
	}
	h.metrics.ObserveSubmit(h.name, outcome, payload.Fields(messages.OpAnimate), time.Since(started))

	if r.URL.Query().Get("format") == "js" {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, _ = w.Write([]byte(payload.Script()))
		return
	}
	writeJSON(w, payload)
}

// Config returns the form's ClientConfig
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	writeJSON(w, form.ClientConfig())
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) (*Form, bool) {
	form, err := h.provider(r)
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			http.Error(w, "form not found", http.StatusNotFound)
			return nil, false
		}
		log.Error("Failed to load form", "path", r.URL.Path, "error", err)
		http.Error(w, "failed to load form", http.StatusInternalServerError)
		return nil, false
	}
	return form, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Failed to write response: %v", err)
	}
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
