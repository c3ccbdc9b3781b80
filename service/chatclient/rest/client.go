package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"LPChat/module/chat/model"
	"LPChat/service/chatclient"
	"LPChat/tools/errs"
)

// Client adapts the gateway's REST API to the chat core's RoomCatalog
// and MessageHistory contracts. The same bearer credential the
// websocket handshake uses authenticates these calls.
type Client struct {
	baseURL string
	creds   chatclient.CredentialProvider
	httpc   *http.Client
}

func NewClient(baseURL string, creds chatclient.CredentialProvider, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, creds: creds, httpc: httpc}
}

func (c *Client) ListPublicRooms(ctx context.Context) ([]*model.Room, error) {
	var out struct {
		Rooms []*model.Room `json:"rooms"`
	}
	if err := c.get(ctx, "/api/v1/rooms/public", nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (c *Client) ListPrivateRoomsFor(ctx context.Context, _ string) ([]*model.Room, error) {
	// the gateway derives the session from the bearer token; the user id
	// parameter exists for the contract, not the wire
	var out struct {
		Rooms []*model.Room `json:"rooms"`
	}
	if err := c.get(ctx, "/api/v1/rooms/private", nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (c *Client) CreateOrGetDirectRoom(ctx context.Context, target model.Participant) (*model.Room, error) {
	body := map[string]string{
		"target_user_id":      target.ID,
		"target_display_name": target.DisplayName,
	}
	var room model.Room
	if err := c.post(ctx, "/api/v1/rooms/direct", body, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) FetchMessages(ctx context.Context, roomID string, page chatclient.PageParams) ([]*model.Message, error) {
	q := url.Values{}
	if page.Limit > 0 {
		q.Set("limit", strconv.FormatInt(page.Limit, 10))
	}
	if page.Before > 0 {
		q.Set("before", strconv.FormatInt(page.Before, 10))
	}
	var out struct {
		Messages []*model.Message `json:"messages"`
	}
	path := "/api/v1/rooms/" + url.PathEscape(roomID) + "/messages"
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.roundTrip(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.roundTrip(req, out)
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	token, ok := c.creds.CurrentToken()
	if !ok {
		return errs.ErrAuthFailure.WrapMsg("no credential available")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errs.WrapMsg(err, "request", "url", req.URL.Path)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return errs.ErrAuthFailure.WrapMsg("rejected", "url", req.URL.Path)
	case resp.StatusCode == http.StatusNotFound:
		return errs.ErrRoomNotFound.WrapMsg("missing", "url", req.URL.Path)
	case resp.StatusCode == http.StatusForbidden:
		return errs.ErrJoinDenied.WrapMsg("forbidden", "url", req.URL.Path)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return errs.New(fmt.Sprintf("unexpected status %d", resp.StatusCode), "url", req.URL.Path, "body", string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.WrapMsg(err, "decode response", "url", req.URL.Path)
	}
	return nil
}
