package insight_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/catalog"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/insight"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var fixed = time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC)

func newEngine() *insight.Engine {
	return insight.New(catalog.Default().Rules(), insight.WithClock(func() time.Time { return fixed }))
}

func ids(in []model.Insight) []string {
	out := make([]string, len(in))
	for i, x := range in {
		out[i] = x.ID
	}
	return out
}

func TestGenerate(t *testing.T) {
	Convey("Given the default rule table", t, func() {
		e := newEngine()

		Convey("When the user slept badly and worked out", func() {
			rec := model.DailyRecord{"sleep_hours": 5.0, "workout_done": true}
			got := e.Generate("u1", rec)

			Convey("Then insights are ordered by priority, ties in table order", func() {
				So(ids(got), ShouldResemble, []string{
					"sleep-mental", "sleep-fitness",
					"sleep-diet", "fitness-sleep", "fitness-diet",
					"fitness-mental",
				})
				So(got[0].Priority, ShouldEqual, model.PriorityHigh)
				So(got[0].Timestamp, ShouldEqual, fixed)
				So(got[0].AffectedAgents, ShouldResemble, []string{"mental-coach"})
			})
		})

		Convey("When nothing matches", func() {
			got := e.Generate("u1", model.DailyRecord{"sleep_hours": 8})

			Convey("Then the result is empty but not nil", func() {
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When the workout mapping only wrote its original fields", func() {
			rec := model.DailyRecord{"calories_burned": 300, "exercise_done": true, "mood_boost": 5}

			Convey("Then no workout rule can fire", func() {
				So(e.Generate("u1", rec), ShouldBeEmpty)
			})
		})

		Convey("When called repeatedly with the same record", func() {
			rec := model.DailyRecord{
				"sleep_hours": 4, "late_eating": true, "screen_time_night": 90,
				"sns_time": 200, "overspending": true, "gym_expense": true, "healthy_meal": true,
			}
			first := e.Generate("u1", rec)

			Convey("Then the output is identical", func() {
				for i := 0; i < 20; i++ {
					if diff := cmp.Diff(first, e.Generate("u1", rec)); diff != "" {
						t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
					}
				}
				So(len(first), ShouldEqual, 9)
			})
		})
	})
}

func TestForAgentAndSummarize(t *testing.T) {
	Convey("Given generated insights", t, func() {
		e := newEngine()
		got := e.Generate("u1", model.DailyRecord{"sleep_hours": 5, "gym_expense": true})

		Convey("ForAgent filters by affected agent", func() {
			So(ids(insight.ForAgent(got, "fitness-coach")), ShouldResemble, []string{"sleep-fitness", "money-fitness"})
			So(insight.ForAgent(got, "nobody"), ShouldBeEmpty)
		})

		Convey("Summarize counts and picks the first high-priority message", func() {
			s := insight.Summarize(got, fixed)
			So(s.TotalInsights, ShouldEqual, 4)
			So(s.HighPriorityCount, ShouldEqual, 2)
			So(s.Categories, ShouldResemble, []string{"sleep", "money"})
			So(s.TopMessage, ShouldEqual, got[0].Message)
			So(s.GeneratedAt, ShouldEqual, fixed)
		})

		Convey("Summarize falls back to the first insight", func() {
			low := []model.Insight{{ID: "a", Message: "first", Priority: model.PriorityLow, Category: "x"}}
			So(insight.Summarize(low, fixed).TopMessage, ShouldEqual, "first")
			So(insight.Summarize(nil, fixed).TopMessage, ShouldEqual, "")
		})
	})
}
