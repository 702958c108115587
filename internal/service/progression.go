package service

import (
	"math"

	"github.com/curvedhammer/Achievle/internal/model"
)

const (
	firstLevelXP = 100
	levelXPBonus = 50
)

// walkLevels runs the level recurrence up to level and returns the XP
// accumulated before it and the increment needed to leave it. The first
// increment is 100; every later one is the running total plus a bonus of
// 50 per level above the second (never less than 50). Both values
// saturate at math.MaxInt instead of overflowing.
func walkLevels(level int) (total, increment int) {
	increment = firstLevelXP
	for lvl := 2; lvl <= level; lvl++ {
		bonus := levelXPBonus * max(1, lvl-2)
		if increment > math.MaxInt-total || total+increment > math.MaxInt-bonus {
			return math.MaxInt, math.MaxInt
		}
		total += increment
		increment = total + bonus
	}
	return total, increment
}

// XPRequiredForNextLevel returns the lifetime XP at which a user of the
// given level advances: 100, 150, 300, 650, 1350, ...
func XPRequiredForNextLevel(level int) int {
	_, increment := walkLevels(level)
	return increment
}

// TotalXPForLevel is the sum of the increments through level-1.
func TotalXPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	total, _ := walkLevels(level)
	return total
}

func CanLevelUp(level, xp int) bool {
	return xp >= XPRequiredForNextLevel(level)
}

// ApplyLevelUps raises the level while the threshold is met and returns
// the number of levels gained. XP itself is never touched and the level
// stays within [1, model.MaxLevel].
func ApplyLevelUps(p *model.Progression) int {
	p.Level = min(max(p.Level, 1), model.MaxLevel)
	gained := 0
	for p.Level < model.MaxLevel && CanLevelUp(p.Level, p.XP) {
		p.Level++
		gained++
	}
	return gained
}

// LevelProgress is what the XP bar shows.
type LevelProgress struct {
	Level     int
	XP        int
	Threshold int
	Percent   int
}

func ProgressFor(p model.Progression) LevelProgress {
	threshold := XPRequiredForNextLevel(p.Level)
	percent := 0
	if threshold > 0 {
		percent = p.XP * 100 / threshold
	}
	percent = min(max(percent, 0), 100)
	return LevelProgress{Level: p.Level, XP: p.XP, Threshold: threshold, Percent: percent}
}
