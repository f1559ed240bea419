package server

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/stats"
	"github.com/gigpig-app/gigchat/internal/types"
	"github.com/teris-io/shortid"
)

// Resolution failures refuse the connection before any subscription is
// made.
var (
	ErrUnknownKind        = errors.New("room kind must be direct or gig")
	ErrMissingCounterpart = errors.New("missing to_user_id parameter")
	ErrMissingGig         = errors.New("missing gig_id parameter")
	ErrAccountNotFound    = errors.New("counterpart account not found")
	ErrGigNotFound        = errors.New("gig not found")
	ErrRoomNotFound       = errors.New("room not found")
)

// ResolveParams are the connection parameters of a new-room request.
type ResolveParams struct {
	Kind          string
	CounterpartId int
	GigId         int
}

// ResolveRoom returns the existing active room matching the semantic
// key, or creates one. The key is the unordered account pair for
// direct rooms and the (gig, requesting account) pair for gig replies.
func (cs *ChatServer) ResolveRoom(account types.Account, params ResolveParams) (*database.Room, error) {
	if params.Kind == "" {
		return nil, ErrUnknownKind
	}

	switch strings.ToUpper(params.Kind) {
	case "DIRECT":
		return cs.resolveDirectRoom(account, params.CounterpartId)
	case "GIG":
		return cs.resolveGigReplyRoom(account, params.GigId)
	default:
		return nil, ErrUnknownKind
	}
}

func (cs *ChatServer) resolveDirectRoom(account types.Account, counterpartId int) (*database.Room, error) {
	if counterpartId <= 0 {
		return nil, ErrMissingCounterpart
	}

	counterpart, err := cs.db.GetAccountById(counterpartId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get counterpart: %w", err)
	}
	if !counterpart.Active {
		return nil, ErrAccountNotFound
	}

	room, err := cs.db.GetDirectRoom(account.Id, counterpart.Id)
	if err == nil {
		cs.stats.Incr(stats.RoomsResolved)
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup direct room: %w", err)
	}

	return cs.createRoom(database.CreateRoomParams{
		CreatorId: account.Id,
		Kind:      string(types.KindDirect),
		MemberIds: []int{account.Id, counterpart.Id},
	})
}

func (cs *ChatServer) resolveGigReplyRoom(account types.Account, gigId int) (*database.Room, error) {
	if gigId <= 0 {
		return nil, ErrMissingGig
	}

	gig, err := cs.db.GetGigById(gigId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGigNotFound
		}
		return nil, fmt.Errorf("get gig: %w", err)
	}

	room, err := cs.db.GetGigReplyRoom(account.Id, gig.Id)
	if err == nil {
		cs.stats.Incr(stats.RoomsResolved)
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup gig room: %w", err)
	}

	return cs.createRoom(database.CreateRoomParams{
		CreatorId: account.Id,
		Kind:      string(types.KindGigReply),
		GigId:     gig.Id,
		MemberIds: []int{account.Id, gig.OwnerId},
	})
}

func (cs *ChatServer) createRoom(params database.CreateRoomParams) (*database.Room, error) {
	sid, err := shortid.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate room id: %w", err)
	}
	params.ExternalId = sid

	room, err := cs.db.CreateRoom(params)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	cs.log.Printf("created %s room %q for account %d", room.Kind, room.ExternalId, room.CreatorId)
	cs.stats.Incr(stats.RoomsResolved)
	cs.stats.Incr(stats.RoomsCreated)

	return room, nil
}

// GetRoom resolves an existing room by its external id.
func (cs *ChatServer) GetRoom(externalId string) (*database.Room, error) {
	if externalId == "" {
		return nil, ErrRoomNotFound
	}

	room, err := cs.db.GetRoomByExternalId(externalId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	return room, nil
}
