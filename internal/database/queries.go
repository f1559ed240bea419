package database

import (
	"database/sql"
	"fmt"
	"time"
)

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, active, created_at, updated_at) "+
			"VALUES ($1, $2, $3, TRUE, $4, $4) RETURNING id, username, email, active, created_at, updated_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgChatRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, active, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgChatRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, active, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.PasswordHash,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgChatRepository) CreateGig(params CreateGigParams) (Gig, error) {
	res := db.conn.QueryRow(
		"INSERT INTO gigs (owner_id, title, description, location, active, start_date, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, TRUE, $5, $6, $6) "+
			"RETURNING id, owner_id, title, description, location, active, start_date, created_at, updated_at",
		params.OwnerId,
		params.Title,
		params.Description,
		params.Location,
		params.StartDate,
		time.Now().UTC(),
	)

	var g Gig
	err := res.Scan(
		&g.Id,
		&g.OwnerId,
		&g.Title,
		&g.Description,
		&g.Location,
		&g.Active,
		&g.StartDate,
		&g.CreatedAt,
		&g.UpdatedAt,
	)

	return g, err
}

func (db *PgChatRepository) GetGigById(gigId int) (Gig, error) {
	row := db.conn.QueryRow(
		"SELECT id, owner_id, title, description, location, active, start_date, created_at, updated_at "+
			"FROM gigs WHERE id = $1 LIMIT 1",
		gigId,
	)

	var g Gig
	err := row.Scan(
		&g.Id,
		&g.OwnerId,
		&g.Title,
		&g.Description,
		&g.Location,
		&g.Active,
		&g.StartDate,
		&g.CreatedAt,
		&g.UpdatedAt,
	)

	return g, err
}

func (db *PgChatRepository) ListGigs(ownerId int) ([]Gig, error) {
	query := "SELECT id, owner_id, title, description, location, active, start_date, created_at, updated_at " +
		"FROM gigs WHERE active = TRUE"
	args := []any{}
	if ownerId > 0 {
		query += " AND owner_id = $1"
		args = append(args, ownerId)
	}
	query += " ORDER BY start_date"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gigs []Gig
	for rows.Next() {
		var g Gig
		if err = rows.Scan(&g.Id, &g.OwnerId, &g.Title, &g.Description, &g.Location, &g.Active, &g.StartDate, &g.CreatedAt, &g.UpdatedAt); err != nil {
			break
		}

		gigs = append(gigs, g)
	}
	return gigs, err
}

func (db *PgChatRepository) CreateRoom(params CreateRoomParams) (*Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var gigId sql.NullInt64
	if params.GigId > 0 {
		gigId = sql.NullInt64{Int64: int64(params.GigId), Valid: true}
	}

	res := tx.QueryRow(
		"INSERT INTO rooms (external_id, creator_id, kind, gig_id, state, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $6) "+
			"RETURNING id, external_id, creator_id, kind, COALESCE(gig_id, 0), state, created_at, updated_at",
		params.ExternalId,
		params.CreatorId,
		params.Kind,
		gigId,
		StateActive,
		time.Now().UTC(),
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.ExternalId,
		&room.CreatorId,
		&room.Kind,
		&room.GigId,
		&room.State,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, memberId := range params.MemberIds {
		_, err = tx.Exec(
			"INSERT INTO room_members (room_id, account_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			room.Id,
			memberId,
		)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return db.getRoomById(room.Id)
}

const roomColumns = "r.id, r.external_id, r.creator_id, r.kind, COALESCE(r.gig_id, 0), r.state, r.created_at, r.updated_at"

func (db *PgChatRepository) getRoomById(roomId int) (*Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms r WHERE r.id = $1 LIMIT 1",
		roomId,
	)

	return db.scanRoomWithMembers(row)
}

func (db *PgChatRepository) GetRoomByExternalId(externalId string) (*Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms r WHERE r.external_id = $1 LIMIT 1",
		externalId,
	)

	return db.scanRoomWithMembers(row)
}

// GetDirectRoom finds the active direct room whose members are exactly
// the two given accounts. The member-count predicate keeps rooms with
// extra members from matching.
func (db *PgChatRepository) GetDirectRoom(accountId, counterpartId int) (*Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms r "+
			"JOIN room_members m1 ON m1.room_id = r.id AND m1.account_id = $1 "+
			"JOIN room_members m2 ON m2.room_id = r.id AND m2.account_id = $2 "+
			"WHERE r.kind = $3 AND r.state = $4 "+
			"AND (SELECT COUNT(*) FROM room_members m WHERE m.room_id = r.id) = 2 "+
			"LIMIT 1",
		accountId,
		counterpartId,
		"DIRECT",
		StateActive,
	)

	return db.scanRoomWithMembers(row)
}

func (db *PgChatRepository) GetGigReplyRoom(creatorId, gigId int) (*Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms r "+
			"WHERE r.creator_id = $1 AND r.gig_id = $2 AND r.kind = $3 AND r.state = $4 LIMIT 1",
		creatorId,
		gigId,
		"GIG_REPLY",
		StateActive,
	)

	return db.scanRoomWithMembers(row)
}

func (db *PgChatRepository) scanRoomWithMembers(row *sql.Row) (*Room, error) {
	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.CreatorId,
		&room.Kind,
		&room.GigId,
		&room.State,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	room.Members, err = db.getRoomMembers(room.Id)
	if err != nil {
		return nil, fmt.Errorf("room members: %w", err)
	}

	return &room, nil
}

func (db *PgChatRepository) getRoomMembers(roomId int) ([]Account, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.username, a.email, a.active FROM room_members m "+
			"JOIN accounts a ON m.account_id = a.id WHERE m.room_id = $1 ORDER BY a.id",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]Account, 0)
	for rows.Next() {
		var a Account
		if err = rows.Scan(&a.Id, &a.Username, &a.EmailAddress, &a.Active); err != nil {
			break
		}

		members = append(members, a)
	}
	return members, err
}

// ListRoomsForAccount returns the account's active rooms that have at
// least one active message, newest message first. gigId > 0 narrows the
// listing to one gig's rooms.
func (db *PgChatRepository) ListRoomsForAccount(accountId, gigId int) ([]Room, error) {
	query := "SELECT " + roomColumns + ", lm.content, lm.created_at FROM rooms r " +
		"JOIN room_members m ON m.room_id = r.id AND m.account_id = $1 " +
		"JOIN LATERAL (" +
		"SELECT content, created_at FROM messages " +
		"WHERE room_id = r.id AND state = $2 ORDER BY created_at DESC LIMIT 1" +
		") lm ON TRUE " +
		"WHERE r.state = $3"
	args := []any{accountId, StateActive, StateActive}
	if gigId > 0 {
		query += " AND r.gig_id = $4"
		args = append(args, gigId)
	}
	query += " ORDER BY lm.created_at DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		err = rows.Scan(
			&room.Id,
			&room.ExternalId,
			&room.CreatorId,
			&room.Kind,
			&room.GigId,
			&room.State,
			&room.CreatedAt,
			&room.UpdatedAt,
			&room.LastMessage,
			&room.LastMessageAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}

		room.Members, err = db.getRoomMembers(room.Id)
		if err != nil {
			return nil, fmt.Errorf("room members: %w", err)
		}

		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PgChatRepository) IsRoomMember(roomId, accountId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT 1 FROM room_members m JOIN accounts a ON m.account_id = a.id "+
			"WHERE m.room_id = $1 AND m.account_id = $2 AND a.active = TRUE LIMIT 1",
		roomId,
		accountId,
	)

	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}

	return err == nil, err
}

func (db *PgChatRepository) DeactivateRoom(roomId int) error {
	_, err := db.conn.Exec(
		"UPDATE rooms SET state = $1, updated_at = $2 WHERE id = $3",
		StateDeactivated,
		time.Now().UTC(),
		roomId,
	)

	return err
}

func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (room_id, author_id, content, state, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, room_id, author_id, content, state, created_at",
		params.RoomId,
		params.AuthorId,
		params.Content,
		StateActive,
		time.Now().UTC(),
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.AuthorId,
		&msg.Content,
		&msg.State,
		&msg.CreatedAt,
	)

	return msg, err
}

func (db *PgChatRepository) ListMessages(roomId, before, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT id, room_id, author_id, content, state, created_at FROM messages " +
		"WHERE room_id = $1 AND state = $2"
	args := []any{roomId, StateActive}
	if before > 0 {
		query += " AND id < $3"
		args = append(args, before)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.RoomId, &msg.AuthorId, &msg.Content, &msg.State, &msg.CreatedAt); err != nil {
			break
		}

		messages = append(messages, msg)
	}
	return messages, err
}

func (db *PgChatRepository) GetLastMessage(roomId int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT id, room_id, author_id, content, state, created_at FROM messages "+
			"WHERE room_id = $1 AND state = $2 ORDER BY created_at DESC LIMIT 1",
		roomId,
		StateActive,
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.AuthorId,
		&msg.Content,
		&msg.State,
		&msg.CreatedAt,
	)

	return msg, err
}

// DeactivateMessage soft-deletes a message on behalf of its author.
// A message that does not exist, is already deleted, or belongs to a
// different author reports sql.ErrNoRows.
func (db *PgChatRepository) DeactivateMessage(messageId, authorId int) error {
	res, err := db.conn.Exec(
		"UPDATE messages SET state = $1 WHERE id = $2 AND author_id = $3 AND state = $4",
		StateDeleted,
		messageId,
		authorId,
		StateActive,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgChatRepository) AddUnreadRoom(accountId, roomId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO unread_rooms (account_id, room_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (account_id, room_id) DO NOTHING",
		accountId,
		roomId,
		time.Now().UTC(),
	)

	return err
}

// TakeUnreadRooms returns the external ids of the account's unread
// rooms and clears the set in the same transaction.
func (db *PgChatRepository) TakeUnreadRooms(accountId int) ([]string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	rows, err := tx.Query(
		"SELECT r.external_id FROM unread_rooms u JOIN rooms r ON u.room_id = r.id "+
			"WHERE u.account_id = $1 ORDER BY u.created_at",
		accountId,
	)
	if err != nil {
		return nil, err
	}

	roomIds := make([]string, 0)
	for rows.Next() {
		var externalId string
		if err = rows.Scan(&externalId); err != nil {
			rows.Close()
			return nil, err
		}

		roomIds = append(roomIds, externalId)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if _, err = tx.Exec("DELETE FROM unread_rooms WHERE account_id = $1", accountId); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return roomIds, nil
}

func (db *PgChatRepository) CreateNotificationToken(accountId int, token string) (NotificationToken, error) {
	res := db.conn.QueryRow(
		"INSERT INTO notification_tokens (account_id, token, active, created_at) "+
			"VALUES ($1, $2, TRUE, $3) "+
			"ON CONFLICT (token) DO UPDATE SET account_id = $1, active = TRUE "+
			"RETURNING id, account_id, token, active, created_at",
		accountId,
		token,
		time.Now().UTC(),
	)

	var nt NotificationToken
	err := res.Scan(
		&nt.Id,
		&nt.AccountId,
		&nt.Token,
		&nt.Active,
		&nt.CreatedAt,
	)

	return nt, err
}

func (db *PgChatRepository) ListActiveNotificationTokens(accountId int) ([]NotificationToken, error) {
	rows, err := db.conn.Query(
		"SELECT id, account_id, token, active, created_at FROM notification_tokens "+
			"WHERE account_id = $1 AND active = TRUE",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []NotificationToken
	for rows.Next() {
		var nt NotificationToken
		if err = rows.Scan(&nt.Id, &nt.AccountId, &nt.Token, &nt.Active, &nt.CreatedAt); err != nil {
			break
		}

		tokens = append(tokens, nt)
	}
	return tokens, err
}

func (db *PgChatRepository) DeactivateNotificationToken(token string) error {
	_, err := db.conn.Exec(
		"UPDATE notification_tokens SET active = FALSE WHERE token = $1",
		token,
	)

	return err
}
