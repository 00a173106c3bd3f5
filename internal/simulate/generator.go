package simulate

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// Generation ranges.
const (
	sleepHoursMin    = 4.0
	sleepHoursRange  = 5.0
	workoutChance    = 0.6
	caloriesMin      = 150
	caloriesRange    = 450
	mealCostMin      = 5
	mealCostRange    = 30
	moodMin          = 1
	moodRange        = 10
	expenseRange     = 200
	budget           = 100
	nightMinutesMax  = 120
	snsMinutesMax    = 240
	unknownTypeRatio = 20
)

var sleepQualities = []string{"poor", "fair", "good", "great"}

// Generator produces reproducible synthetic days.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Batches creates one batch per user. Every unknownTypeRatio-th user also
// logs an input type the service does not know.
func (g *Generator) Batches(users int) []UserBatch {
	out := make([]UserBatch, users)
	for i := range out {
		out[i] = UserBatch{
			RequestID: uuid.NewString(),
			UserID:    uuid.NewString(),
			Inputs:    g.day(i%unknownTypeRatio == unknownTypeRatio-1),
		}
	}
	return out
}

func (g *Generator) day(withUnknown bool) []model.Input {
	hours := sleepHoursMin + g.rnd.Float64()*sleepHoursRange
	inputs := []model.Input{
		{Type: "sleep", Data: map[string]any{
			"hours":   float64(int(hours*10)) / 10,
			"quality": sleepQualities[g.rnd.IntN(len(sleepQualities))],
		}},
		{Type: "mood", Data: map[string]any{"score": moodMin + g.rnd.IntN(moodRange)}},
		{Type: "meal", Data: map[string]any{"cost": mealCostMin + g.rnd.IntN(mealCostRange)}},
		{Type: "expense", Data: map[string]any{"amount": g.rnd.IntN(expenseRange), "budget": budget}},
		{Type: "screen_time", Data: map[string]any{
			"nightMinutes": g.rnd.IntN(nightMinutesMax),
			"snsMinutes":   g.rnd.IntN(snsMinutesMax),
		}},
	}
	if g.rnd.Float64() < workoutChance {
		inputs = append(inputs, model.Input{Type: "workout", Data: map[string]any{
			"calories": caloriesMin + g.rnd.IntN(caloriesRange),
		}})
	}
	if withUnknown {
		inputs = append(inputs, model.Input{Type: "karaoke", Data: map[string]any{"songs": 3}})
	}
	g.rnd.Shuffle(len(inputs), func(i, j int) { inputs[i], inputs[j] = inputs[j], inputs[i] })
	return inputs
}
