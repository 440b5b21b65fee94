// Package resolver validates and repairs entity identifiers supplied by the agent
// against the identifiers it was actually shown.
package resolver

import (
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Outcome tells the caller how the final identifier was obtained.
type Outcome string

const (
	OutcomeExactMatch         Outcome = "exact_match"
	OutcomeIndexCorrected     Outcome = "index_corrected"
	OutcomeNameMatched        Outcome = "name_matched"
	OutcomeRejectedFallback   Outcome = "rejected_fallback_to_persisted"
	OutcomeAcceptedUnverified Outcome = "accepted_unverified"
)

// Candidate is one identifier the agent has been shown.
type Candidate struct {
	ID          string
	DisplayName string
}

// Reference is a single resolution request.
type Reference struct {
	Kind      string      // "resource", "location"; used for logging only
	Candidate string      // identifier supplied by the agent
	Listed    []Candidate // most recent listing, in display order
	Persisted string      // last explicit, validated selection; empty if none
	Utterance string      // latest user message; enables the name pass when set
}

// Resolution is the answer for one Reference.
type Resolution struct {
	FinalID string
	Outcome Outcome
	// Changed is true when an exact match differs from the persisted selection.
	Changed bool
}

// Resolver implements the exact → index → name → persisted → unverified chain.
type Resolver struct {
	logger *zap.Logger
}

// New creates a Resolver. A nil logger disables logging.
func New(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve maps ref.Candidate to the identifier that should actually be used.
func (r *Resolver) Resolve(ref Reference) Resolution {
	candidate := strings.TrimSpace(ref.Candidate)

	for _, c := range ref.Listed {
		if c.ID == candidate {
			res := Resolution{FinalID: c.ID, Outcome: OutcomeExactMatch}
			if ref.Persisted != "" && ref.Persisted != c.ID {
				res.Changed = true
				r.logger.Info("resolver: selection changed",
					zap.String("kind", ref.Kind),
					zap.String("from", ref.Persisted),
					zap.String("to", c.ID))
			}
			return res
		}
	}

	// A restated persisted selection is valid even if it dropped out of the listing.
	if candidate != "" && candidate == ref.Persisted {
		return Resolution{FinalID: candidate, Outcome: OutcomeExactMatch}
	}

	if n, err := strconv.Atoi(candidate); err == nil && n >= 1 && n <= len(ref.Listed) {
		id := ref.Listed[n-1].ID
		r.logger.Info("resolver: ordinal replaced by listed id",
			zap.String("kind", ref.Kind),
			zap.String("candidate", candidate),
			zap.String("id", id))
		return Resolution{FinalID: id, Outcome: OutcomeIndexCorrected, Changed: id != ref.Persisted && ref.Persisted != ""}
	}

	if ref.Utterance != "" {
		if id, ok := MatchByName(ref.Utterance, ref.Listed); ok {
			r.logger.Info("resolver: matched listed name in utterance",
				zap.String("kind", ref.Kind),
				zap.String("candidate", candidate),
				zap.String("id", id))
			return Resolution{FinalID: id, Outcome: OutcomeNameMatched, Changed: id != ref.Persisted && ref.Persisted != ""}
		}
	}

	if ref.Persisted != "" {
		r.logger.Warn("resolver: rejected unseen identifier",
			zap.String("kind", ref.Kind),
			zap.String("candidate", candidate),
			zap.String("persisted", ref.Persisted))
		return Resolution{FinalID: ref.Persisted, Outcome: OutcomeRejectedFallback}
	}

	r.logger.Warn("resolver: accepting unverified identifier",
		zap.String("kind", ref.Kind),
		zap.String("candidate", candidate))
	return Resolution{FinalID: candidate, Outcome: OutcomeAcceptedUnverified}
}

// titles are ignored when matching display names.
var titles = map[string]bool{
	"dr": true, "dra": true, "doctor": true, "doctora": true,
	"lic": true, "sr": true, "sra": true, "de": true, "del": true, "la": true,
}

// MatchByName looks for exactly one listed display name mentioned in the utterance.
func MatchByName(utterance string, listed []Candidate) (string, bool) {
	words := make(map[string]bool)
	for _, w := range tokenize(utterance) {
		words[w] = true
	}
	if len(words) == 0 {
		return "", false
	}

	match := ""
	for _, c := range listed {
		for _, tok := range tokenize(c.DisplayName) {
			if len(tok) < 3 || titles[tok] {
				continue
			}
			if words[tok] {
				if match != "" && match != c.ID {
					return "", false // ambiguous
				}
				match = c.ID
				break
			}
		}
	}
	return match, match != ""
}

// tokenize lowercases, strips accents and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	return strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
