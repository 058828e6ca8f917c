package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// matchPageSize is the largest page the match-v5 listing endpoint serves.
const matchPageSize = 100

// yearWindow returns the inclusive UTC epoch-second bounds of a calendar
// year. Riot timestamps game creation in UTC, so the window is anchored
// there regardless of the player's locale.
func yearWindow(year int) (startSec, endSec int64) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	return start.Unix(), end.Unix()
}

// ListMatchIDs returns every match ID recorded for the player within the
// calendar year, in the order the listing endpoint serves them, with
// duplicates removed. Pages can overlap when new matches finish mid-listing,
// so dedupe preserves first occurrence.
func (c *Client) ListMatchIDs(ctx context.Context, cluster Cluster, puuid string, year int) ([]string, error) {
	startSec, endSec := yearWindow(year)
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids",
		c.clusterBaseURL(cluster), url.PathEscape(puuid))

	var collected []string

	for offset := 0; ; offset += matchPageSize {
		query := url.Values{}
		query.Set("startTime", strconv.FormatInt(startSec, 10))
		query.Set("endTime", strconv.FormatInt(endSec, 10))
		query.Set("start", strconv.Itoa(offset))
		query.Set("count", strconv.Itoa(matchPageSize))

		var page []string
		if err := c.getJSON(ctx, endpoint, query, c.cfg.MaxAttempts, &page); err != nil {
			return nil, fmt.Errorf("list matches for %s: %w", puuid, err)
		}

		if len(page) == 0 {
			break
		}

		collected = append(collected, page...)

		if len(page) < matchPageSize {
			break
		}
	}

	return dedupeOrdered(collected), nil
}

// GetMatch fetches a full match document as raw JSON so it can be archived
// byte-for-byte.
func (c *Client) GetMatch(ctx context.Context, cluster Cluster, matchID string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/%s",
		c.clusterBaseURL(cluster), url.PathEscape(matchID))

	var doc json.RawMessage
	if err := c.getJSON(ctx, endpoint, nil, c.cfg.MaxAttempts, &doc); err != nil {
		return nil, fmt.Errorf("get match %s: %w", matchID, err)
	}

	return doc, nil
}

// dedupeOrdered removes duplicate IDs keeping first-occurrence order.
func dedupeOrdered(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	ordered := make([]string, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}

	return ordered
}
