// Package exp implements experience awards and level progression.
package exp

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/flor3z/levelbot/internal/storage"
)

// Needed returns the experience required to advance from level to level+1
func Needed(level int) int {
	return 5 * (level*(level+10) + 20)
}

// Total returns the cumulative experience of a user at level with exp progress into it
func Total(level, exp int) int {
	return 5*level*(level+7)*(2*level+13)/6 + exp
}

// Bar renders progress through the current level as a fixed-width bar, e.g. [####......]
func Bar(exp, level, size int) string {
	filled := exp * size / Needed(level)
	if filled < 0 {
		filled = 0
	}
	if filled > size {
		filled = size
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", size-filled) + "]"
}

// Result describes the outcome of a single award attempt
type Result struct {
	Awarded      bool // false when the user was still on cooldown
	Amount       int
	LevelsGained int
	Level        int // level after the award
}

// LeveledUp reports whether the award crossed at least one level
func (r Result) LeveledUp() bool {
	return r.LevelsGained > 0
}

// Engine awards experience under a per-user cooldown
type Engine struct {
	min      int
	max      int
	cooldown time.Duration
	intN     func(n int) int
}

// NewEngine creates an engine awarding a uniform amount in [min, max] at most once per cooldown
func NewEngine(min, max int, cooldown time.Duration) (*Engine, error) {
	if min < 0 || max < min {
		return nil, fmt.Errorf("invalid award range [%d, %d]", min, max)
	}
	if cooldown < 0 {
		return nil, fmt.Errorf("invalid cooldown %s", cooldown)
	}
	return &Engine{
		min:      min,
		max:      max,
		cooldown: cooldown,
		intN:     rand.IntN,
	}, nil
}

// Cooldown returns the minimum spacing between awards for one user
func (e *Engine) Cooldown() time.Duration {
	return e.cooldown
}

// Award grants experience to u for activity at now and resolves any level-ups
func (e *Engine) Award(u *storage.User, now time.Time) Result {
	if now.Before(u.NextEligible) {
		return Result{Level: u.Level}
	}
	u.NextEligible = now.Add(e.cooldown)

	amount := e.min + e.intN(e.max-e.min+1)
	u.Exp += amount

	gained := 0
	for u.Exp >= Needed(u.Level) {
		u.Exp -= Needed(u.Level)
		u.Level++
		gained++
	}

	return Result{
		Awarded:      true,
		Amount:       amount,
		LevelsGained: gained,
		Level:        u.Level,
	}
}
