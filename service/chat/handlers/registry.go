package handlers

import (
	"LPChat/service/chat"
)

// RegisterAll installs every frame handler on the server's dispatcher.
func RegisterAll(s *chat.Server) {
	ctx := &chat.ChatContext{S: s}
	s.Disp().Register(NewAuthHandler(ctx))
	s.Disp().Register(NewJoinHandler(ctx))
	s.Disp().Register(NewLeaveHandler(ctx))
	s.Disp().Register(NewSendHandler(ctx))
	s.Disp().Register(NewPingHandler(ctx))
}
