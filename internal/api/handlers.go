package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/server"
	"github.com/gigpig-app/gigchat/internal/types"
	"github.com/gorilla/websocket"
)

type CreateGigRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"start_date"`
}

type CreateNotificationTokenRequest struct {
	Token string `json:"token"`
}

func (s *GigChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *GigChatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *GigChatApp) createGig(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateGigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Title == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	gig, err := s.db.CreateGig(database.CreateGigParams{
		OwnerId:     accountId,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartDate:   req.StartDate,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Gig{
		Id:          gig.Id,
		OwnerId:     gig.OwnerId,
		Title:       gig.Title,
		Description: gig.Description,
		Location:    gig.Location,
		StartDate:   gig.StartDate,
		CreatedAt:   gig.CreatedAt,
		UpdatedAt:   gig.UpdatedAt,
	})
}

func (s *GigChatApp) listGigs(w http.ResponseWriter, r *http.Request) {
	var ownerId int
	if ownerStr := r.URL.Query().Get("owner_id"); ownerStr != "" {
		var err error
		ownerId, err = strconv.Atoi(ownerStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbGigs, err := s.db.ListGigs(ownerId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	gigs := make([]types.Gig, 0, len(dbGigs))
	for _, gig := range dbGigs {
		gigs = append(gigs, types.Gig{
			Id:          gig.Id,
			OwnerId:     gig.OwnerId,
			Title:       gig.Title,
			Description: gig.Description,
			Location:    gig.Location,
			StartDate:   gig.StartDate,
			CreatedAt:   gig.CreatedAt,
			UpdatedAt:   gig.UpdatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, gigs)
}

// listRooms returns the caller's active rooms that have messages,
// newest message first. A gig_id query parameter narrows the listing
// to one gig's rooms.
func (s *GigChatApp) listRooms(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var gigId int
	if gigStr := r.URL.Query().Get("gig_id"); gigStr != "" {
		var err error
		gigId, err = strconv.Atoi(gigStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbRooms, err := s.db.ListRoomsForAccount(accountId, gigId)
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for i := range dbRooms {
		room, err := server.SerializeRoom(s.db, &dbRooms[i], accountId)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		rooms = append(rooms, room)
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *GigChatApp) getRoom(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.lookupMemberRoom(r.PathValue("room_id"), accountId)
	if err != nil {
		var errResp *ApiError
		if !errors.As(err, &errResp) {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	serialized, err := server.SerializeRoom(s.db, room, accountId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, serialized)
}

// lookupMemberRoom resolves a room external id on behalf of a caller.
// An unknown room and a room the caller is not a member of are both
// surfaced as permission denied.
func (s *GigChatApp) lookupMemberRoom(externalId string, accountId int) (*database.Room, error) {
	if externalId == "" {
		return nil, NewForbiddenError()
	}

	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewForbiddenError()
		}
		return nil, err
	}

	member, err := s.db.IsRoomMember(room.Id, accountId)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, NewForbiddenError()
	}

	return room, nil
}

func (s *GigChatApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.PathValue("room_id")
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if room.CreatorId != accountId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeactivateRoom(room.Id); err != nil {
		s.log.Println("deactivate room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	go func() {
		if err := s.notifier.RoomChanged(context.Background(), room.ExternalId, room.GigId); err != nil {
			s.log.Println("search notify:", err)
		}
	}()

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *GigChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.lookupMemberRoom(r.URL.Query().Get("room_id"), accountId)
	if err != nil {
		var errResp *ApiError
		if !errors.As(err, &errResp) {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var before, limit int
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		before, err = strconv.Atoi(beforeStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbMessages, err := s.db.ListMessages(room.Id, before, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, msg := range dbMessages {
		messages = append(messages, types.Message{
			Id:        msg.Id,
			RoomId:    room.ExternalId,
			AuthorId:  msg.AuthorId,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, messages)
}

// deleteMessage soft-deletes one of the caller's own messages. Messages
// authored by someone else are indistinguishable from missing ones.
func (s *GigChatApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId, err := strconv.Atoi(r.PathValue("message_id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeactivateMessage(messageId, accountId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

// unreadRooms returns the caller's unread room ids and clears the set:
// the read is the acknowledgement.
func (s *GigChatApp) unreadRooms(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomIds, err := s.db.TakeUnreadRooms(accountId)
	if err != nil {
		s.log.Println("take unread rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, roomIds)
}

func (s *GigChatApp) createNotificationToken(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateNotificationTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.db.CreateNotificationToken(accountId, req.Token)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, map[string]any{
		"id":    token.Id,
		"token": token.Token,
	})
}

func (s *GigChatApp) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
}

// serveChat handles connections to an existing room. Authentication
// and room lookup run before the upgrade, so a refused connection
// never reaches the open state.
func (s *GigChatApp) serveChat(w http.ResponseWriter, r *http.Request) {
	account, err := s.authenticateToken(r.URL.Query().Get("token"))
	if err != nil {
		s.log.Println("refusing connection:", err)
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.cs.GetRoom(r.PathValue("room_id"))
	if err != nil {
		s.log.Println("refusing connection:", err)
		errResp := NewRefusalError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	member, err := s.db.IsRoomMember(room.Id, account.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !member {
		s.log.Printf("refusing connection: account %d is not a member of room %q", account.Id, room.ExternalId)
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sub, err := s.cs.SubscribeRoom(r.Context(), room.ExternalId)
	if err != nil {
		s.log.Println("subscribe room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		sub.Close()
		return
	}

	client := server.NewClient(account, room, conn, sub, s.cs, s.log, false)
	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}

// serveNewChat resolves (or creates) a room from query parameters and
// hands the resolved room straight back to the connecting client. The
// connection then stays open as a read-only notification channel on
// the caller's account group.
func (s *GigChatApp) serveNewChat(w http.ResponseWriter, r *http.Request) {
	account, err := s.authenticateToken(r.URL.Query().Get("token"))
	if err != nil {
		s.log.Println("refusing connection:", err)
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params, err := parseResolveParams(r)
	if err != nil {
		s.log.Println("refusing connection:", err)
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.cs.ResolveRoom(account, params)
	if err != nil {
		s.log.Println("refusing connection:", err)
		errResp := NewRefusalError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	serialized, err := server.SerializeRoom(s.db, room, account.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	payload, err := json.Marshal(server.NewRoomFrame{
		Room:    serialized,
		User:    server.UserRef{Id: account.Id, Username: account.Username},
		Message: "",
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sub, err := s.cs.SubscribeAccount(r.Context(), account.Id)
	if err != nil {
		s.log.Println("subscribe account:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		sub.Close()
		return
	}

	client := server.NewClient(account, room, conn, sub, s.cs, s.log, true)
	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
	client.QueueMessage(payload)
}

func parseResolveParams(r *http.Request) (server.ResolveParams, error) {
	query := r.URL.Query()
	params := server.ResolveParams{Kind: query.Get("type")}

	if toUser := query.Get("to_user_id"); toUser != "" {
		counterpartId, err := strconv.Atoi(toUser)
		if err != nil {
			return server.ResolveParams{}, err
		}
		params.CounterpartId = counterpartId
	}

	if gig := query.Get("gig_id"); gig != "" {
		gigId, err := strconv.Atoi(gig)
		if err != nil {
			return server.ResolveParams{}, err
		}
		params.GigId = gigId
	}

	return params, nil
}
