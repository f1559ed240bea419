// Command seed populates a running server with fake accounts, gigs and
// conversations. It drives the public API rather than the database, so
// a full seeding run doubles as a smoke test of the room-resolution and
// messaging paths.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/websocket"
)

var (
	baseURL  string
	accounts int
	gigs     int
	messages int
)

const seedPassword = "password123"

type account struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	token    string
}

type gig struct {
	Id      int `json:"id"`
	OwnerId int `json:"owner_id"`
}

func main() {
	flag.StringVar(&baseURL, "url", "http://localhost:8000", "server base URL")
	flag.IntVar(&accounts, "accounts", 10, "number of accounts to create")
	flag.IntVar(&gigs, "gigs", 5, "number of gigs to create")
	flag.IntVar(&messages, "messages", 3, "messages per conversation")
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())
	logger := log.New(os.Stderr, "[gigchat-seed] ", log.LstdFlags)

	seeded := make([]account, 0, accounts)
	for i := 0; i < accounts; i++ {
		acct, err := registerAccount()
		if err != nil {
			logger.Fatal("register account:", err)
		}
		seeded = append(seeded, acct)
	}
	logger.Printf("created %d accounts", len(seeded))

	seededGigs := make([]gig, 0, gigs)
	for i := 0; i < gigs; i++ {
		owner := seeded[gofakeit.Number(0, len(seeded)-1)]
		g, err := createGig(owner)
		if err != nil {
			logger.Fatal("create gig:", err)
		}
		seededGigs = append(seededGigs, g)
	}
	logger.Printf("created %d gigs", len(seededGigs))

	for _, g := range seededGigs {
		replier := seeded[gofakeit.Number(0, len(seeded)-1)]
		if replier.Id == g.OwnerId {
			continue
		}

		params := url.Values{"type": {"GIG"}, "gig_id": {fmt.Sprint(g.Id)}}
		if err := converse(replier, params); err != nil {
			logger.Println("gig conversation:", err)
		}
	}

	for i := 1; i < len(seeded); i++ {
		from, to := seeded[i-1], seeded[i]
		params := url.Values{"type": {"DIRECT"}, "to_user_id": {fmt.Sprint(to.Id)}}
		if err := converse(from, params); err != nil {
			logger.Println("direct conversation:", err)
		}
	}

	logger.Println("seeding complete")
}

func registerAccount() (account, error) {
	email := gofakeit.Email()
	payload, _ := json.Marshal(map[string]string{
		"email":    email,
		"username": gofakeit.Username(),
		"password": seedPassword,
	})

	resp, err := http.Post(baseURL+"/api/auth/register", "application/json", bytes.NewReader(payload))
	if err != nil {
		return account{}, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return account{}, fmt.Errorf("register: unexpected status %s", resp.Status)
	}

	return login(email)
}

func login(email string) (account, error) {
	payload, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": seedPassword,
	})

	resp, err := http.Post(baseURL+"/api/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return account{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return account{}, fmt.Errorf("login: unexpected status %s", resp.Status)
	}

	var body struct {
		Token   string  `json:"token"`
		Account account `json:"account"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return account{}, err
	}

	acct := body.Account
	acct.token = body.Token
	return acct, nil
}

func createGig(owner account) (gig, error) {
	payload, _ := json.Marshal(map[string]any{
		"title":       gofakeit.JobTitle(),
		"description": gofakeit.Sentence(10),
		"location":    gofakeit.City(),
		"start_date":  time.Now().AddDate(0, 0, gofakeit.Number(1, 60)).UTC(),
	})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/gigs", bytes.NewReader(payload))
	if err != nil {
		return gig{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+owner.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return gig{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return gig{}, fmt.Errorf("create gig: unexpected status %s", resp.Status)
	}

	var g gig
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return gig{}, err
	}
	return g, nil
}

// converse resolves a room over the new-chat endpoint, reads back the
// room frame and sends a handful of messages into the room's own
// endpoint.
func converse(from account, params url.Values) error {
	wsBase, err := url.Parse(baseURL)
	if err != nil {
		return err
	}
	wsBase.Scheme = "ws"

	params.Set("token", from.token)
	newChatURL := *wsBase
	newChatURL.Path = "/ws/new_chat"
	newChatURL.RawQuery = params.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(newChatURL.String(), nil)
	if err != nil {
		return fmt.Errorf("dial new_chat: %w", err)
	}

	var frame struct {
		Room struct {
			ExternalId string `json:"external_id"`
		} `json:"room"`
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&frame); err != nil {
		conn.Close()
		return fmt.Errorf("read room frame: %w", err)
	}
	conn.Close()

	chatURL := *wsBase
	chatURL.Path = "/ws/chat/" + frame.Room.ExternalId
	chatURL.RawQuery = url.Values{"token": {from.token}}.Encode()

	chat, _, err := websocket.DefaultDialer.Dial(chatURL.String(), nil)
	if err != nil {
		return fmt.Errorf("dial chat: %w", err)
	}
	defer chat.Close()

	for i := 0; i < messages; i++ {
		payload, _ := json.Marshal(map[string]string{"message": gofakeit.Sentence(gofakeit.Number(3, 12))})
		if err := chat.WriteMessage(websocket.TextMessage, payload); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}

	// give the server a beat to flush before closing
	time.Sleep(100 * time.Millisecond)
	return nil
}
