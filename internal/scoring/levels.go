// Package scoring applies point, stat and token side effects to user records
// and owns the level table shared by profiles and hints.
package scoring

// Level is a named score band.
type Level struct {
	Name     string `json:"name"`
	MinScore int64  `json:"min_score"`
}

// Levels is ordered by ascending MinScore.
var Levels = []Level{
	{Name: "Newcomer", MinScore: 0},
	{Name: "Rising", MinScore: 25},
	{Name: "On Fire", MinScore: 75},
	{Name: "Oomf Lord", MinScore: 150},
	{Name: "Legendary", MinScore: 300},
}

// LevelFor returns the highest level whose threshold score reaches.
// Negative scores are treated as zero.
func LevelFor(score int64) Level {
	for i := len(Levels) - 1; i >= 0; i-- {
		if score >= Levels[i].MinScore {
			return Levels[i]
		}
	}
	return Levels[0]
}

// NextLevel returns the level after the one score is in, and false at the top.
func NextLevel(score int64) (Level, bool) {
	for _, l := range Levels {
		if score < l.MinScore {
			return l, true
		}
	}
	return Level{}, false
}
