package server

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/types"
)

// SerializeRoom builds the client representation of a room as seen by
// the requesting account: the title is the gig's title for gig-reply
// rooms and the counterpart's username for direct rooms, and the
// member list excludes the requester.
func SerializeRoom(db database.ChatRepository, room *database.Room, requesterId int) (types.Room, error) {
	out := types.Room{
		Id:         room.Id,
		ExternalId: room.ExternalId,
		Kind:       types.RoomKind(room.Kind),
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}

	members := make([]types.Account, 0, len(room.Members))
	for _, m := range room.Members {
		if m.Id == room.CreatorId {
			out.Creator = types.Account{Id: m.Id, Username: m.Username}
		}
		if m.Id == requesterId {
			continue
		}

		members = append(members, types.Account{Id: m.Id, Username: m.Username})
	}
	out.Members = members

	if room.GigId > 0 {
		gig, err := db.GetGigById(room.GigId)
		if err != nil {
			return types.Room{}, fmt.Errorf("get gig: %w", err)
		}

		out.Gig = &types.Gig{
			Id:        gig.Id,
			OwnerId:   gig.OwnerId,
			Title:     gig.Title,
			Location:  gig.Location,
			StartDate: gig.StartDate,
		}
		out.Title = gig.Title
	} else if len(members) > 0 {
		out.Title = members[0].Username
	}

	if room.LastMessage != "" {
		out.LastMessage = room.LastMessage
		ts := room.LastMessageAt
		out.Timestamp = &ts
		return out, nil
	}

	last, err := db.GetLastMessage(room.Id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, nil
		}
		return types.Room{}, fmt.Errorf("last message: %w", err)
	}

	out.LastMessage = last.Content
	ts := last.CreatedAt
	out.Timestamp = &ts

	return out, nil
}
