package repository

import (
	"context"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/FAForever/faf-rating-service/internal/domain/model"
	"github.com/FAForever/faf-rating-service/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	db, err := Open("sqlite3", "file::memory:?_fk=1")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	// One connection only, every handle must see the same in-memory DB.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db, opts...)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestStoreLeaderboards(t *testing.T) {
	Convey("Given an empty store", t, func() {
		store := newTestStore(t)
		ctx := context.Background()

		Convey("The leaderboard listing is empty", func() {
			boards, err := store.Leaderboards(ctx)
			So(err, ShouldBeNil)
			So(boards, ShouldBeEmpty)
		})

		Convey("When leaderboards are created", func() {
			globalID, err := store.CreateLeaderboard(ctx, "global")
			So(err, ShouldBeNil)
			ladderID, err := store.CreateLeaderboard(ctx, "ladder_1v1")
			So(err, ShouldBeNil)
			So(globalID, ShouldNotEqual, ladderID)

			Convey("They appear in the listing", func() {
				boards, err := store.Leaderboards(ctx)
				So(err, ShouldBeNil)
				So(boards, ShouldResemble, map[string]int64{
					"global":     globalID,
					"ladder_1v1": ladderID,
				})
			})

			Convey("Recreating one returns the existing id", func() {
				again, err := store.CreateLeaderboard(ctx, "global")
				So(err, ShouldBeNil)
				So(again, ShouldEqual, globalID)
			})
		})
	})
}

func TestStoreGetRating(t *testing.T) {
	Convey("Given a store with one leaderboard", t, func() {
		store := newTestStore(t)
		ctx := context.Background()
		boardID, err := store.CreateLeaderboard(ctx, "global")
		So(err, ShouldBeNil)

		Convey("An unseen player gets the default rating", func() {
			rating, err := store.GetRating(ctx, 42, boardID)
			So(err, ShouldBeNil)
			So(rating.Mean, ShouldEqual, model.DefaultMean)
			So(rating.Deviation, ShouldEqual, model.DefaultDeviation)

			Convey("And the default row is created exactly once", func() {
				again, err := store.GetRating(ctx, 42, boardID)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, rating)

				row, err := store.GetRatingRow(ctx, 42, boardID)
				So(err, ShouldBeNil)
				So(row.TotalGames, ShouldEqual, 0)
				So(row.WonGames, ShouldEqual, 0)
			})
		})

		Convey("A custom default rating is honored", func() {
			custom := newTestStore(t, WithDefaultRating(model.Rating{Mean: 1200, Deviation: 350}))
			customBoardID, err := custom.CreateLeaderboard(ctx, "global")
			So(err, ShouldBeNil)

			rating, err := custom.GetRating(ctx, 7, customBoardID)
			So(err, ShouldBeNil)
			So(rating, ShouldResemble, model.Rating{Mean: 1200, Deviation: 350})
		})

		Convey("GetRatingRow does not create a row", func() {
			_, err := store.GetRatingRow(ctx, 99, boardID)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestStoreApplyGameUpdate(t *testing.T) {
	Convey("Given two rated players", t, func() {
		store := newTestStore(t)
		ctx := context.Background()
		boardID, err := store.CreateLeaderboard(ctx, "global")
		So(err, ShouldBeNil)

		before1, err := store.GetRating(ctx, 1, boardID)
		So(err, ShouldBeNil)
		before2, err := store.GetRating(ctx, 2, boardID)
		So(err, ShouldBeNil)

		updates := []model.RatingUpdate{
			{
				PlayerID: 1,
				Before:   before1,
				After:    model.Rating{Mean: 1650, Deviation: 400},
				Won:      true,
			},
			{
				PlayerID: 2,
				Before:   before2,
				After:    model.Rating{Mean: 1350, Deviation: 400},
				Won:      false,
			},
		}

		Convey("When a game update is applied", func() {
			err := store.ApplyGameUpdate(ctx, 1000, boardID, updates)
			So(err, ShouldBeNil)

			Convey("The rating rows reflect the posterior", func() {
				row, err := store.GetRatingRow(ctx, 1, boardID)
				So(err, ShouldBeNil)
				So(row.Mean, ShouldEqual, 1650)
				So(row.Deviation, ShouldEqual, 400)
				So(row.TotalGames, ShouldEqual, 1)
				So(row.WonGames, ShouldEqual, 1)

				row, err = store.GetRatingRow(ctx, 2, boardID)
				So(err, ShouldBeNil)
				So(row.Mean, ShouldEqual, 1350)
				So(row.TotalGames, ShouldEqual, 1)
				So(row.WonGames, ShouldEqual, 0)
			})

			Convey("One journal entry per player is written", func() {
				count, err := store.JournalCount(ctx, boardID)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 2)

				entries, err := store.JournalEntries(ctx, 1, boardID)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].MeanBefore, ShouldEqual, before1.Mean)
				So(entries[0].MeanAfter, ShouldEqual, 1650)
			})

			Convey("Participation rows exist for both players", func() {
				var n int
				err := store.db.GetContext(ctx, &n,
					`SELECT COUNT(*) FROM game_player_stats WHERE game_id = 1000`)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("A failing update mutates nothing", func() {
			bad := append([]model.RatingUpdate{}, updates...)
			// Player 3 has no rating row, the whole game must roll back.
			bad = append(bad, model.RatingUpdate{
				PlayerID: 3,
				After:    model.Rating{Mean: 1500, Deviation: 500},
			})

			err := store.ApplyGameUpdate(ctx, 1001, boardID, bad)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)

			row, err := store.GetRatingRow(ctx, 1, boardID)
			So(err, ShouldBeNil)
			So(row.TotalGames, ShouldEqual, 0)

			count, err := store.JournalCount(ctx, boardID)
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 0)
		})
	})
}
