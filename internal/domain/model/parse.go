package model

import (
	"encoding/json"
	"fmt"
)

// Wire format of an inbound rating request, one message per finished game.
type wireTeam struct {
	Outcome   string  `json:"outcome"`
	PlayerIDs []int64 `json:"player_ids"`
}

type wireRequest struct {
	GameID     *int64     `json:"game_id"`
	RatingType string     `json:"rating_type"`
	Teams      []wireTeam `json:"teams"`
}

// ParseRequest validates a raw message body into a RatingRequest.
//
// A request must name a game, a rating scope, and exactly two teams, each
// with a recognized outcome literal and at least one player. Any violation
// fails with ErrMalformedRequest; such messages are acknowledged and
// dropped by the caller, never retried.
func ParseRequest(body []byte) (RatingRequest, error) {
	var wire wireRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		return RatingRequest{}, fmt.Errorf("%w: %s", ErrMalformedRequest, err)
	}

	if wire.GameID == nil {
		return RatingRequest{}, fmt.Errorf("%w: missing game_id", ErrMalformedRequest)
	}
	if wire.RatingType == "" {
		return RatingRequest{}, fmt.Errorf("%w: missing rating_type", ErrMalformedRequest)
	}
	if len(wire.Teams) != 2 {
		return RatingRequest{}, fmt.Errorf("%w: got %d teams, want 2", ErrMalformedRequest, len(wire.Teams))
	}

	req := RatingRequest{
		GameID:     *wire.GameID,
		RatingType: wire.RatingType,
	}
	for i, team := range wire.Teams {
		outcome, err := ParseOutcome(team.Outcome)
		if err != nil {
			return RatingRequest{}, fmt.Errorf("%w: team %d: %s", ErrMalformedRequest, i, err)
		}
		players := dedupePlayers(team.PlayerIDs)
		if len(players) == 0 {
			return RatingRequest{}, fmt.Errorf("%w: team %d has no players", ErrMalformedRequest, i)
		}
		req.Teams[i] = TeamSummary{Outcome: outcome, PlayerIDs: players}
	}

	for _, id := range req.Teams[0].PlayerIDs {
		for _, other := range req.Teams[1].PlayerIDs {
			if id == other {
				return RatingRequest{}, fmt.Errorf("%w: player %d on both teams", ErrMalformedRequest, id)
			}
		}
	}

	return req, nil
}

// dedupePlayers keeps the first occurrence of each id, preserving order.
func dedupePlayers(ids []int64) []PlayerID {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]PlayerID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, PlayerID(id))
	}
	return out
}
