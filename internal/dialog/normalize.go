package dialog

import (
	"regexp"
	"strings"
)

var relationshipAliases = map[string]string{
	"mother":  "mom",
	"father":  "dad",
	"grandma": "grandmother",
	"grandpa": "grandfather",
}

// NormalizeRelationship lowercases a relationship label, strips a leading
// "my ", and folds common aliases. Gender-neutral labels (spouse, partner)
// are resolved to wife or husband when the surrounding text makes the
// gender explicit; otherwise they pass through unchanged.
func NormalizeRelationship(label, contextText string) string {
	l := strings.TrimSpace(strings.ToLower(label))
	l = strings.TrimPrefix(l, "my ")
	if alias, ok := relationshipAliases[l]; ok {
		l = alias
	}
	if l == "spouse" || l == "partner" {
		ctx := strings.ToLower(contextText)
		switch {
		case containsWord(ctx, "wife"), containsWord(ctx, "she"), containsWord(ctx, "her"):
			return "wife"
		case containsWord(ctx, "husband"), containsWord(ctx, "he"), containsWord(ctx, "him"), containsWord(ctx, "his"):
			return "husband"
		}
	}
	return l
}

// spousalLabels are treated as referring to the same relationship when
// matching a mentioned relationship against stored contacts.
var spousalLabels = map[string]bool{
	"wife":    true,
	"husband": true,
	"spouse":  true,
	"partner": true,
}

// RelationshipsMatch reports whether two normalized labels refer to the
// same kind of relationship. Spousal labels all match one another.
func RelationshipsMatch(a, b string) bool {
	if a == b {
		return true
	}
	return spousalLabels[a] && spousalLabels[b]
}

// InverseRelationship gives the label for the reverse edge. Spousal labels
// swap gender; everything else mirrors as-is.
func InverseRelationship(label string) string {
	switch label {
	case "wife":
		return "husband"
	case "husband":
		return "wife"
	}
	return label
}

var giftPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsuggest\b.*\bgift`),
	regexp.MustCompile(`(?i)\bfind\b.*\bgift\b.*\bfor\b`),
	regexp.MustCompile(`(?i)\bwhat\s+should\s+i\s+(get|buy)\s+for\b`),
	regexp.MustCompile(`(?i)\bgift\s+ideas?\b`),
}

// IsGiftRequest reports whether the text matches one of the hard gift
// phrases. These override the classifier: a message that plainly asks for
// a gift is treated as a gift search regardless of the model's label.
func IsGiftRequest(text string) bool {
	for _, re := range giftPhrases {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

var affirmatives = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "sure": true,
	"ok": true, "okay": true, "please": true, "please do": true,
	"yes please": true, "go ahead": true, "do it": true,
}

// IsAffirmative reports whether the text is a bare agreement.
func IsAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, ".!")
	return affirmatives[t]
}

func containsWord(text, word string) bool {
	for _, f := range strings.Fields(text) {
		if strings.Trim(f, ".,!?;:'\"") == word {
			return true
		}
	}
	return false
}
