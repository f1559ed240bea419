// Package push dispatches push notifications to an account's
// registered devices through the Expo push service.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gigpig-app/gigchat/internal/database"
)

type Dispatcher interface {
	// Send delivers a notification to every active device token of the
	// account. Transient failures are retried internally.
	Send(ctx context.Context, accountId int, title, body string, data map[string]any) error
}

const (
	maxAttempts  = 5
	retryBackoff = 5 * time.Second
)

type ExpoDispatcher struct {
	log    *log.Logger
	db     database.ChatRepository
	url    string
	client *http.Client
}

func NewExpoDispatcher(logger *log.Logger, db database.ChatRepository, url string) *ExpoDispatcher {
	return &ExpoDispatcher{
		log:    logger,
		db:     db,
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type expoMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

type expoResponse struct {
	Data []expoTicket `json:"data"`
}

type expoTicket struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

const deviceNotRegistered = "DeviceNotRegistered"

func (d *ExpoDispatcher) Send(ctx context.Context, accountId int, title, body string, data map[string]any) error {
	tokens, err := d.db.ListActiveNotificationTokens(accountId)
	if err != nil {
		return fmt.Errorf("list notification tokens: %w", err)
	}

	for _, token := range tokens {
		if err := d.sendToToken(ctx, token.Token, title, body, data); err != nil {
			d.log.Printf("push to account %d: %v", accountId, err)
		}
	}

	return nil
}

func (d *ExpoDispatcher) sendToToken(ctx context.Context, token, title, body string, data map[string]any) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ticket, err := d.publish(ctx, expoMessage{
			To:    token,
			Title: title,
			Body:  body,
			Data:  data,
		})
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
			continue
		}

		if ticket.Status == "ok" {
			return nil
		}

		if ticket.Details.Error == deviceNotRegistered {
			// The device token is dead; stop sending to it.
			if err := d.db.DeactivateNotificationToken(token); err != nil {
				return fmt.Errorf("deactivate token: %w", err)
			}
			return nil
		}

		lastErr = fmt.Errorf("push ticket error: %s", ticket.Message)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}

	return fmt.Errorf("push failed after %d attempts: %w", maxAttempts, lastErr)
}

func (d *ExpoDispatcher) publish(ctx context.Context, msg expoMessage) (*expoTicket, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("push server error: %s", resp.Status)
	}

	var er expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decode push response: %w", err)
	}

	if len(er.Data) == 0 {
		return nil, fmt.Errorf("empty push response")
	}

	return &er.Data[0], nil
}
