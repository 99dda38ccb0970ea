package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Frame is one WebSocket message in either direction. Replies carry Response or Error.
type Frame struct {
	Command  string    `json:"command"`
	Payload  any       `json:"payload,omitempty"`
	Response *Response `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// fireAndForget commands are streamed and get no reply over the WebSocket.
var fireAndForget = map[string]bool{
	SetAbsolute:      true,
	SetProportional:  true,
	SetDriveVelocity: true,
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler returns the HTTP surface of the controller.
func (c *Controller) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", c.handleStatus)
	mux.HandleFunc("POST /api/{command}", c.handleCommand)
	mux.HandleFunc("GET /ws", c.handleWebSocket)
	return mux
}

// StartServer serves Handler on addr until ctx is done.
func (c *Controller) StartServer(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Errorw("server shutdown", "error", err)
		}
	}()
	c.logger.Infow("server running", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, ErrBadPayload):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (c *Controller) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := c.Do(r.Context(), Status, nil)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, resp.Status)
}

func (c *Controller) handleCommand(w http.ResponseWriter, r *http.Request) {
	var payload any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	resp, err := c.Do(r.Context(), r.PathValue("command"), payload)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *Controller) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Errorw("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()
	c.logger.Infow("websocket client connected", "remote", r.RemoteAddr)

	ctx := r.Context()
	for {
		var in Frame
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warnw("websocket read", "error", err)
			}
			return
		}
		if fireAndForget[in.Command] {
			if err := c.Post(ctx, in.Command, in.Payload); err != nil {
				return
			}
			continue
		}
		out := Frame{Command: in.Command}
		resp, err := c.Do(ctx, in.Command, in.Payload)
		if err != nil {
			out.Error = err.Error()
		} else {
			out.Response = &resp
		}
		if err := conn.WriteJSON(out); err != nil {
			c.logger.Warnw("websocket write", "error", err)
			return
		}
	}
}
