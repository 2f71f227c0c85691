package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/auth"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// publicCollections may be watched by any signed-in user.
var publicCollections = map[string]bool{"menu": true, "feedback": true, "adminConfig": true}

// authorizeSubscription applies the REST read rules to a watch path: carts
// by their owner, single orders by their customer, everything else private
// to staff. Orders the caller may not read are reported as not found.
func (h *handler) authorizeSubscription(ctx context.Context, id auth.Identity, path string) error {
	coll, docID, hasID := strings.Cut(path, "/")
	switch {
	case publicCollections[coll]:
		return nil
	case coll == "carts":
		if hasID && docID == id.UserID {
			return nil
		}
		return apperr.ErrForbidden
	case id.Allows(auth.RoleStaff):
		return nil
	case coll == "orders" && hasID:
		_, err := h.ownedOrder(ctx, id, docID)
		return err
	default:
		return apperr.ErrForbidden
	}
}

// subscribeDocuments streams snapshots of one document or collection.
func (h *handler) subscribeDocuments(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	path := strings.Trim(r.URL.Query().Get("path"), "/")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	err := h.authorizeSubscription(ctx, id, path)
	cancel()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Subscribe before the upgrade completes so no write in between is missed.
	sub := h.deps.Hub.Subscribe(path)
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade")
		return
	}
	defer conn.Close()

	stream(conn, sub.C())
	h.logger.Debug().Str("path", path).Str("user_id", id.UserID).Msg("ws subscription closed")
}

// watchVisibility streams the derived feature visibility flags.
func (h *handler) watchVisibility(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, err := h.deps.Settings.Watch(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("watch visibility")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "settings unavailable"),
			time.Now().Add(wsWriteWait))
		return
	}
	stream(conn, ch)
}

// stream writes every value of ch as JSON until ch closes or the peer goes
// away. Reads only detect the close; clients send nothing.
func stream[T any](conn *websocket.Conn, ch <-chan T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case v, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(v); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
