package conflict

import "github.com/ppiankov/brdsynth/internal/textutil"

var positiveTerms = map[string]bool{
	"approve": true, "approved": true, "approves": true, "agree": true, "agreed": true,
	"accept": true, "accepted": true, "include": true, "included": true, "support": true,
	"supported": true, "confirm": true, "confirmed": true, "keep": true, "proceed": true,
	"yes": true, "enable": true, "enabled": true, "go": true, "greenlit": true, "in-scope": true,
	"required": true, "mandatory": true, "prioritize": true, "add": true,
}

var negativeTerms = map[string]bool{
	"reject": true, "rejected": true, "rejects": true, "deny": true, "denied": true,
	"drop": true, "dropped": true, "exclude": true, "excluded": true, "cancel": true,
	"cancelled": true, "canceled": true, "postpone": true, "postponed": true, "defer": true,
	"deferred": true, "remove": true, "removed": true, "block": true, "blocked": true,
	"disable": true, "disabled": true, "out-of-scope": true, "optional": true, "descope": true,
	"descoped": true, "veto": true, "vetoed": true,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "don't": true, "doesn't": true, "won't": true,
	"isn't": true, "aren't": true, "cannot": true, "can't": true, "shouldn't": true,
	"wouldn't": true, "without": true,
}

// Vocabulary that turns a polarity clash into an approval conflict
var approvalTerms = []string{
	"approve", "approved", "approval", "reject", "rejected", "sign-off", "signed off",
	"veto", "vetoed", "greenlit", "deny", "denied",
}

// polarity returns (p-n)/(p+n) over lexicon hits and whether any hit was
// found. A negator flips the next polarity word within two tokens; a
// negator with nothing to flip counts as negative.
func polarity(tokens []string) (float64, bool) {
	var pos, neg int
	pending := 0 // Tokens left in which a negator is still active
	for _, tok := range tokens {
		switch {
		case negators[tok]:
			if pending > 0 {
				neg++
			}
			pending = 2
			continue
		case positiveTerms[tok]:
			if pending > 0 {
				neg++
			} else {
				pos++
			}
			pending = 0
			continue
		case negativeTerms[tok]:
			if pending > 0 {
				pos++
			} else {
				neg++
			}
			pending = 0
			continue
		}
		if pending > 0 {
			pending--
			if pending == 0 {
				neg++
			}
		}
	}
	if pending > 0 {
		neg++
	}
	if pos+neg == 0 {
		return 0, false
	}
	return float64(pos-neg) / float64(pos+neg), true
}

func hasApprovalVocabulary(tokens []string) bool {
	return len(textutil.MatchTerms(tokens, approvalTerms)) > 0
}
