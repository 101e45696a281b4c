package progression

import "github.com/tatianab/mahes-quest/internal/models"

const (
	GoodKarma    = 70
	NeutralKarma = 40
)

// Resolve classifies a finished run. Incomplete fragments always end badly.
func Resolve(karma int, allFragments bool) models.Ending {
	if !allFragments {
		return models.EndingBad
	}
	switch {
	case karma >= GoodKarma:
		return models.EndingGood
	case karma >= NeutralKarma:
		return models.EndingNeutral
	default:
		return models.EndingBad
	}
}

// ResolveState is Resolve over a state's karma and fragments.
func ResolveState(s models.GameState) models.Ending {
	return Resolve(s.Stats.Karma, HasAllFragments(s))
}
