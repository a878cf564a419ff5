package server

import (
	"net/http"

	"bramble/domain"
	"bramble/handler"
)

func Route(pubsub domain.PubSub, roomManager domain.RoomManager) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(pubsub, roomManager))
	mux.Handle("GET /healthz", handler.NewHealthHandler())
	return mux
}
