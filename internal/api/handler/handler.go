package handler

import (
	"github.com/sirupsen/logrus"

	"natalk/server/internal/chathub"
)

// Handler holds the HTTP layer's dependencies.
type Handler struct {
	Hub *chathub.Hub
	Log *logrus.Logger
}

func NewHandler(hub *chathub.Hub, log *logrus.Logger) *Handler {
	return &Handler{Hub: hub, Log: log}
}
