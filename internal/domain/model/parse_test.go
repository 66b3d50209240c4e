package model_test

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/FAForever/faf-rating-service/internal/domain/model"
)

func TestParseRequest(t *testing.T) {
	Convey("Given a well formed rating request", t, func() {
		body := []byte(`{
			"game_id": 4242,
			"rating_type": "ladder_1v1",
			"teams": [
				{"outcome": "VICTORY", "player_ids": [10, 11, 10]},
				{"outcome": "DEFEAT", "player_ids": [20]}
			]
		}`)

		Convey("It parses into a RatingRequest", func() {
			req, err := model.ParseRequest(body)
			So(err, ShouldBeNil)
			So(req.GameID, ShouldEqual, 4242)
			So(req.RatingType, ShouldEqual, "ladder_1v1")
			So(req.Teams[0].Outcome, ShouldEqual, model.OutcomeVictory)
			So(req.Teams[1].Outcome, ShouldEqual, model.OutcomeDefeat)

			Convey("With duplicate player ids collapsed", func() {
				So(req.Teams[0].PlayerIDs, ShouldResemble, []model.PlayerID{10, 11})
			})

			Convey("And all players reachable from the request", func() {
				So(req.Players(), ShouldResemble, []model.PlayerID{10, 11, 20})
			})
		})
	})

	Convey("Malformed requests are rejected", t, func() {
		cases := map[string][]byte{
			"invalid json":        []byte(`{`),
			"missing game_id":     []byte(`{"rating_type": "global", "teams": [{"outcome": "VICTORY", "player_ids": [1]}, {"outcome": "DEFEAT", "player_ids": [2]}]}`),
			"missing rating_type": []byte(`{"game_id": 1, "teams": [{"outcome": "VICTORY", "player_ids": [1]}, {"outcome": "DEFEAT", "player_ids": [2]}]}`),
			"one team":            []byte(`{"game_id": 1, "rating_type": "global", "teams": [{"outcome": "VICTORY", "player_ids": [1]}]}`),
			"three teams":         []byte(`{"game_id": 1, "rating_type": "global", "teams": [{"outcome": "VICTORY", "player_ids": [1]}, {"outcome": "DEFEAT", "player_ids": [2]}, {"outcome": "DEFEAT", "player_ids": [3]}]}`),
			"unknown outcome":     []byte(`{"game_id": 1, "rating_type": "global", "teams": [{"outcome": "WON_BIG", "player_ids": [1]}, {"outcome": "DEFEAT", "player_ids": [2]}]}`),
			"empty team":          []byte(`{"game_id": 1, "rating_type": "global", "teams": [{"outcome": "VICTORY", "player_ids": []}, {"outcome": "DEFEAT", "player_ids": [2]}]}`),
			"player on both":      []byte(`{"game_id": 1, "rating_type": "global", "teams": [{"outcome": "VICTORY", "player_ids": [1]}, {"outcome": "DEFEAT", "player_ids": [1]}]}`),
		}

		for name, body := range cases {
			Convey("Case: "+name, func() {
				_, err := model.ParseRequest(body)
				So(errors.Is(err, model.ErrMalformedRequest), ShouldBeTrue)
			})
		}
	})
}

func TestParseOutcome(t *testing.T) {
	Convey("Every reported literal round-trips", t, func() {
		for _, s := range []string{"VICTORY", "DEFEAT", "DRAW", "MUTUAL_DRAW", "UNKNOWN", "CONFLICTING"} {
			o, err := model.ParseOutcome(s)
			So(err, ShouldBeNil)
			So(string(o), ShouldEqual, s)
		}
	})

	Convey("Unrecognized literals fail", t, func() {
		for _, s := range []string{"", "victory", "WIN"} {
			_, err := model.ParseOutcome(s)
			So(errors.Is(err, model.ErrUnknownOutcome), ShouldBeTrue)
		}
	})

	Convey("Draw detection covers both draw literals", t, func() {
		So(model.OutcomeDraw.IsDraw(), ShouldBeTrue)
		So(model.OutcomeMutualDraw.IsDraw(), ShouldBeTrue)
		So(model.OutcomeVictory.IsDraw(), ShouldBeFalse)
	})
}

func TestCompletion(t *testing.T) {
	Convey("A completion handle fires exactly once", t, func() {
		var calls int
		c := model.NewCompletion(func() { calls++ })
		c.Done()
		c.Done()
		So(calls, ShouldEqual, 1)
	})

	Convey("A request without completion can still be completed", t, func() {
		req := model.RatingRequest{}
		So(req.Complete, ShouldNotPanic)
	})
}
