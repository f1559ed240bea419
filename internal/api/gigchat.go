package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gigpig-app/gigchat/internal/config"
	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/search"
	"github.com/gigpig-app/gigchat/internal/server"
	"github.com/gorilla/handlers"
)

type GigChatApp struct {
	log            *log.Logger
	db             database.ChatRepository
	srv            *http.Server
	cs             *server.ChatServer
	notifier       search.Notifier
	signingKey     []byte
	allowedOrigins []string
}

func NewGigChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer,
	db database.ChatRepository, notifier search.Notifier, cfg *config.Config) *GigChatApp {
	s := &GigChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		notifier:       notifier,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("POST /api/gigs", s.authMiddleware(s.createGig))
	mux.Handle("GET /api/gigs", s.authMiddleware(s.listGigs))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.Handle("GET /api/rooms/unread", s.authMiddleware(s.unreadRooms))
	mux.Handle("GET /api/rooms/{room_id}", s.authMiddleware(s.getRoom))
	mux.Handle("DELETE /api/rooms/{room_id}", s.authMiddleware(s.deleteRoom))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("DELETE /api/messages/{message_id}", s.authMiddleware(s.deleteMessage))
	mux.Handle("POST /api/notification-tokens", s.authMiddleware(s.createNotificationToken))
	mux.HandleFunc("GET /ws/new_chat", s.serveNewChat)
	mux.HandleFunc("GET /ws/chat/{room_id}", s.serveChat)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.srv = srv
	return s
}

func (s *GigChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *GigChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
