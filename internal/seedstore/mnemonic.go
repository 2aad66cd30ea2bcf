package seedstore

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// MaxTypoDistance is the maximum Levenshtein distance to consider a suggestion.
const MaxTypoDistance = 2

var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
)

// NormalizeMnemonic lowercases the phrase, strips list numbering and
// commas, and collapses whitespace.
func NormalizeMnemonic(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ValidateMnemonic checks the phrase against BIP39. Misspelled words are
// reported in the error suggestion.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonic(mnemonic)
	if normalized == "" {
		return syncerr.ErrInvalidMnemonic
	}
	if bip39.IsMnemonicValid(normalized) {
		return nil
	}

	if hint := typoHint(normalized); hint != "" {
		return syncerr.WithSuggestion(syncerr.ErrInvalidMnemonic, hint)
	}
	return syncerr.WithSuggestion(syncerr.ErrInvalidMnemonic, "check the word order and the final checksum word")
}

// SuggestWord returns the closest BIP39 word, or "" if none is within
// MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)

	minDist := math.MaxInt
	var suggestion string
	for _, word := range bip39.GetWordList() {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

func typoHint(normalized string) string {
	var hints []string
	for i, word := range strings.Fields(normalized) {
		if _, ok := bip39.GetWordIndex(word); ok {
			continue
		}
		hint := "word " + strconv.Itoa(i+1) + ": '" + word + "'"
		if s := SuggestWord(word); s != "" {
			hint += " - did you mean '" + s + "'?"
		} else {
			hint += " is not a BIP39 word"
		}
		hints = append(hints, hint)
	}
	return strings.Join(hints, "; ")
}
