package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ragchat/internal/handler/http/respond"
	"ragchat/internal/observability/metrics"
	chatUC "ragchat/internal/usecase/chat"
)

// Handler serves POST /chat.
type Handler struct {
	Svc     *chatUC.Service
	Metrics *metrics.Registry
}

// Register wires the chat route into the mux.
func Register(mux *http.ServeMux, svc *chatUC.Service, m *metrics.Registry) {
	mux.Handle("POST /chat", Handler{Svc: svc, Metrics: m})
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	messages, err := req.toUsecase()
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Stream {
		h.stream(w, r, messages)
		return
	}

	start := time.Now()
	resp, err := h.Svc.ChatWithOptions(r.Context(), messages, chatUC.Options{SkipCache: req.skipCache()})
	if err != nil {
		h.observe(resultFor(err), start)
		respond.SafeError(w, statusFor(err), err)
		return
	}

	if resp.Cached {
		h.observe("cached", start)
	} else {
		h.observe("generated", start)
	}
	respond.JSON(w, http.StatusOK, resp)
}

// stream answers with server-sent events. Each content fragment is one
// "data:" event carrying a JSON object, closed by a [DONE] marker the
// way the OpenAI streaming API does it.
func (h Handler) stream(w http.ResponseWriter, r *http.Request, messages []chatUC.Message) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.SafeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	start := time.Now()
	headerSent := false
	sendHeader := func() {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		headerSent = true
	}

	err := h.Svc.ChatStream(r.Context(), messages, func(delta string) error {
		if !headerSent {
			sendHeader()
		}
		payload, err := json.Marshal(map[string]string{"delta": delta})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		h.observe(resultFor(err), start)
		if !headerSent {
			respond.SafeError(w, statusFor(err), err)
			return
		}
		// Mid-stream failure: the status line is gone, signal in-band.
		fmt.Fprintf(w, "data: %s\n\n", `{"error":"stream interrupted"}`)
		flusher.Flush()
		return
	}

	if !headerSent {
		sendHeader()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
	h.observe("streamed", start)
}

func (h Handler) observe(result string, start time.Time) {
	if h.Metrics != nil {
		h.Metrics.ObserveChat(result, time.Since(start))
	}
}

// statusFor maps usecase errors to HTTP status codes. Validation
// failures are the client's fault, everything else is an upstream
// problem.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chatUC.ErrNoMessages),
		errors.Is(err, chatUC.ErrEmptyContent),
		errors.Is(err, chatUC.ErrUnknownRole),
		errors.Is(err, chatUC.ErrNoUserMessage),
		errors.Is(err, chatUC.ErrContentTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func resultFor(err error) string {
	if statusFor(err) == http.StatusBadRequest {
		return "rejected"
	}
	return "error"
}
