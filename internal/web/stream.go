package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KaramelBytes/tabletalk/internal/apperr"
	"github.com/KaramelBytes/tabletalk/internal/qa"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Query string `json:"query"`
}

type wsOutbound struct {
	Type   string     `json:"type"`
	Text   string     `json:"text,omitempty"`
	Answer *qa.Answer `json:"answer,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

// handleQueryStream answers one question at a time over a websocket, sending
// "delta" messages followed by "done" or "error".
func (h *Handler) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Hijacked connections outlive Server.Shutdown; closing on cancel unblocks ReadJSON.
	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()
	log := h.log.WithField("request_id", RequestIDFrom(r.Context()))

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		log.WithError(err).Warn("websocket set read deadline failed")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
	push := func(out wsOutbound) {
		select {
		case writeCh <- out:
		case <-ctx.Done():
		}
	}

	var (
		mu   sync.Mutex
		busy bool
		wg   sync.WaitGroup
	)
	defer wg.Wait()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			// client gone: abort any running question
			cancel()
			return
		}
		mu.Lock()
		if busy {
			mu.Unlock()
			push(wsOutbound{Type: "error", Error: &errorBody{Kind: apperr.KindBadRequest, Message: "a question is already running"}})
			continue
		}
		busy = true
		mu.Unlock()

		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			defer func() {
				mu.Lock()
				busy = false
				mu.Unlock()
			}()
			ans, err := h.asker.AskStream(ctx, query, func(d string) {
				push(wsOutbound{Type: "delta", Text: d})
			})
			if err != nil {
				push(wsOutbound{Type: "error", Error: errorFor(err)})
				return
			}
			push(wsOutbound{Type: "done", Answer: ans})
		}(in.Query)
	}
}
