// Package directory talks to the platform REST API for membership
// authorization and profile lookup. Room tokens carry the server id
// behind a fixed "channel-" prefix; this adapter derives the numeric
// key before calling out, so the rest of the system treats room ids as
// opaque strings.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/domain"
)

const roomPrefix = "channel-"

// Client implements core.MembershipAuthority and core.ProfileStore.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Authorize confirms the user belongs to the server the room hangs off
// and returns the member's role label. 403 and 404 both mean the user
// may not join.
func (c *Client) Authorize(ctx context.Context, room domain.RoomID, user domain.UserID) (string, error) {
	serverID, err := serverKey(room)
	if err != nil {
		return "", err
	}

	var body struct {
		Role string `json:"role"`
	}
	url := fmt.Sprintf("%s/internal/servers/%d/members/%s", c.baseURL, serverID, user)
	if err := c.get(ctx, url, &body); err != nil {
		return "", err
	}
	return body.Role, nil
}

// Fetch returns display attributes for the user.
func (c *Client) Fetch(ctx context.Context, user domain.UserID) (domain.Profile, error) {
	var profile domain.Profile
	url := fmt.Sprintf("%s/internal/users/%s", c.baseURL, user)
	if err := c.get(ctx, url, &profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return domain.ErrAuthorization
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, url)
	default:
		log.Error().Str("module", "adapters.directory").
			Int("status", resp.StatusCode).
			Str("url", url).
			Msg("unexpected directory response")
		return fmt.Errorf("directory: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("directory response: %w", err)
	}
	return nil
}

// serverKey strips the room token prefix and parses the numeric server
// id. A token that does not follow the scheme cannot be authorized.
func serverKey(room domain.RoomID) (int64, error) {
	raw := strings.TrimPrefix(string(room), roomPrefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad room token %q", domain.ErrAuthorization, room)
	}
	return id, nil
}
