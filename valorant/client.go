// Package valorant reads competitive rank data from the henrikdev Valorant API.
package valorant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://api.henrikdev.xyz"

// ErrInvalidRiotID is returned for names without a "#TAG" part.
var ErrInvalidRiotID = errors.New("valorant: riot id must look like Name#TAG")

// Client calls the henrikdev API. APIKey is optional for low volumes.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type Account struct {
	PUUID        string `json:"puuid"`
	Region       string `json:"region"`
	Name         string `json:"name"`
	Tag          string `json:"tag"`
	AccountLevel int    `json:"account_level"`
}

type MMR struct {
	Tier       string `json:"currenttierpatched"`
	RR         int    `json:"ranking_in_tier"`
	Elo        int    `json:"elo"`
	LastChange int    `json:"mmr_change_to_last_game"`
}

// String renders "Tier - NRR - N elo".
func (m MMR) String() string {
	return fmt.Sprintf("%s - %dRR - %d elo", m.Tier, m.RR, m.Elo)
}

// SplitRiotID splits "Name#TAG".
func SplitRiotID(id string) (name, tag string, err error) {
	name, tag, ok := strings.Cut(strings.TrimSpace(id), "#")
	if !ok || name == "" || tag == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRiotID, id)
	}
	return name, tag, nil
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", c.APIKey)
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("valorant api %s: %s: %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	return json.Unmarshal(body.Data, out)
}

func (c *Client) Account(ctx context.Context, riotID string) (Account, error) {
	name, tag, err := SplitRiotID(riotID)
	if err != nil {
		return Account{}, err
	}
	var a Account
	err = c.get(ctx, "/valorant/v1/account/"+url.PathEscape(name)+"/"+url.PathEscape(tag), &a)
	return a, err
}

func (c *Client) MMR(ctx context.Context, region, puuid string) (MMR, error) {
	var m MMR
	err := c.get(ctx, "/valorant/v1/by-puuid/mmr/"+url.PathEscape(region)+"/"+url.PathEscape(puuid), &m)
	return m, err
}

// Rank looks the account up and returns its current competitive rank.
func (c *Client) Rank(ctx context.Context, riotID string) (MMR, error) {
	a, err := c.Account(ctx, riotID)
	if err != nil {
		return MMR{}, err
	}
	return c.MMR(ctx, a.Region, a.PUUID)
}
