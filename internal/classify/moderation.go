// Package classify implements the layered sentiment classification chain:
// moderation, fuzzy phrase matching, lexical pattern heuristics, and an
// optional external NLP fallback stage.
package classify

import (
	"regexp"
	"strings"
	"unicode"
)

// spamPatterns match common spam/solicitation phrasing. Matching is against the
// lowercased message.
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`click here`),
	regexp.MustCompile(`free (money|cash|gift|prize)`),
	regexp.MustCompile(`buy now`),
	regexp.MustCompile(`limited (time )?offer`),
	regexp.MustCompile(`act now`),
	regexp.MustCompile(`100% (free|guaranteed)`),
	regexp.MustCompile(`make (money|\$+) (fast|from home)`),
	regexp.MustCompile(`(visit|check out) (my|our) (site|website|channel)`),
	regexp.MustCompile(`subscribe to`),
	regexp.MustCompile(`(crypto|forex) (signals|trading group)`),
}

// abusePatterns match abusive or harassing content.
var abusePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(idiot|moron|stupid (bot|app|thing))\b`),
	regexp.MustCompile(`\b(shut up|screw you)\b`),
	regexp.MustCompile(`\bkill yourself\b`),
	regexp.MustCompile(`\bf+u+c+k+\b`),
}

const (
	maxLinkCount       = 2
	shoutingMinLetters = 12
	shoutingUpperRatio = 0.8
	shoutingMinBangs   = 3
)

var linkPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// Moderate reports whether the message passes moderation. A false result means
// the message is spam or abuse and must not be classified, scored, embedded, or
// stored. The empty string passes (clean but useless, routed onward).
func Moderate(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return true
	}

	for _, p := range spamPatterns {
		if p.MatchString(lower) {
			return false
		}
	}

	for _, p := range abusePatterns {
		if p.MatchString(lower) {
			return false
		}
	}

	if len(linkPattern.FindAllString(lower, -1)) > maxLinkCount {
		return false
	}

	// Sustained shouting plus heavy exclamation reads as spam, not sentiment.
	if isShouting(text) && strings.Count(text, "!") >= shoutingMinBangs {
		return false
	}

	return true
}

// isShouting reports whether the message is mostly uppercase letters.
func isShouting(text string) bool {
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}

	if letters < shoutingMinLetters {
		return false
	}

	return float64(upper)/float64(letters) >= shoutingUpperRatio
}
