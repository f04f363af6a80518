package session

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// defaultChoiceThreshold is the minimum similarity score for a choice to
	// be accepted as a match.
	defaultChoiceThreshold = 0.80

	// phoneticScore is the floor score granted when the recognised text and
	// a choice agree phonetically (Double Metaphone), even if their spelling
	// diverges.
	phoneticScore = 0.90
)

// ChoiceMatch is a ranked candidate from [MatchChoice].
type ChoiceMatch struct {
	// Choice is the candidate, as passed in.
	Choice string

	// Score is the similarity to the recognised text in [0, 1].
	Score float64
}

// MatchChoice ranks the choices of a choice challenge against a recognised
// transcript and returns the best candidate. Ranking combines Jaro-Winkler
// string similarity with Double Metaphone phonetic agreement, so "their"
// still matches a recognised "there". The boolean reports whether the best
// score clears the acceptance threshold; the best candidate is returned
// either way so callers can inspect near misses.
//
// This is a client-side convenience for reconciling server output with a
// challenge's choice list; the server's recognised value remains
// authoritative.
func MatchChoice(recognised string, choices []string) (ChoiceMatch, bool) {
	best := ChoiceMatch{Score: -1}
	needle := strings.ToLower(strings.TrimSpace(recognised))
	if needle == "" || len(choices) == 0 {
		return ChoiceMatch{}, false
	}

	needlePrimary, needleSecondary := matchr.DoubleMetaphone(needle)

	for _, choice := range choices {
		candidate := strings.ToLower(strings.TrimSpace(choice))
		if candidate == "" {
			continue
		}

		var score float64
		if candidate == needle {
			score = 1
		} else {
			score = matchr.JaroWinkler(needle, candidate, true)
			if phoneticAgreement(needlePrimary, needleSecondary, candidate) && score < phoneticScore {
				score = phoneticScore
			}
		}

		if score > best.Score {
			best = ChoiceMatch{Choice: choice, Score: score}
		}
	}

	if best.Score < 0 {
		return ChoiceMatch{}, false
	}
	return best, best.Score >= defaultChoiceThreshold
}

// phoneticAgreement reports whether candidate shares a Double Metaphone code
// with the recognised text.
func phoneticAgreement(primary, secondary, candidate string) bool {
	if primary == "" {
		return false
	}
	cp, cs := matchr.DoubleMetaphone(candidate)
	if cp == "" {
		return false
	}
	return cp == primary ||
		(secondary != "" && cp == secondary) ||
		(cs != "" && cs == primary) ||
		(cs != "" && secondary != "" && cs == secondary)
}
