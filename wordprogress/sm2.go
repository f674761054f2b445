package wordprogress

import (
	"math"
	"time"

	"github.com/Skyrin/go-safar/wordprogress/model"
)

const (
	// reviewRepetitions the repetitions after which a word is in review
	reviewRepetitions = 2
	// masteredRepetitions and masteredInterval must both be reached for a
	// word to count as mastered
	masteredRepetitions = 5
	masteredInterval    = 21

	day = 24 * time.Hour
)

// DeriveWordStatus returns the status of a word with the given state
func DeriveWordStatus(repetitions, interval int) model.Status {
	switch {
	case repetitions >= masteredRepetitions && interval >= masteredInterval:
		return model.StatusMastered
	case repetitions >= reviewRepetitions:
		return model.StatusReview
	case repetitions > 0:
		return model.StatusLearning
	default:
		return model.StatusNew
	}
}

// CalculateSM2 applies one SuperMemo-2 review with the quality (0 to 5,
// clamped) to prev. A zero prev.EaseFactor means a new word
func CalculateSM2(prev model.SM2Result, quality int, now time.Time) model.SM2Result {
	if quality < 0 {
		quality = 0
	}
	if quality > 5 {
		quality = 5
	}

	ef := prev.EaseFactor
	if ef == 0 {
		ef = model.DefaultEaseFactor
	}

	res := model.SM2Result{}
	if quality < 3 {
		res.Repetitions = 0
		res.Interval = 1
	} else {
		switch prev.Repetitions {
		case 0:
			res.Interval = 1
		case 1:
			res.Interval = 6
		default:
			res.Interval = int(math.Round(float64(prev.Interval) * ef))
		}
		res.Repetitions = prev.Repetitions + 1
	}

	q := float64(5 - quality)
	ef += 0.1 - q*(0.08+q*0.02)
	if ef < model.MinEaseFactor {
		ef = model.MinEaseFactor
	}
	res.EaseFactor = ef
	res.NextReview = now.Add(time.Duration(res.Interval) * day)

	return res
}
