package usecase

import (
	"errors"
	"regexp"
	"strings"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

// periodPattern recognizes the reporting-period statement of 10-Q and 10-K
// cover pages. The double space in the fiscal-year phrase is intentional:
// filings render that line with two spaces.
var periodPattern = regexp.MustCompile(`(for the (quarterly|fiscal) period ended:\s*(\w+\s\d{1,2},\s\d{4}))|(for the  fiscal year ended:\s*(\w+\s\d{1,2},\s\d{4}))`)

// ExtractPeriod returns the first reporting-period statement in text, title-cased.
// Matching runs on the lowercased text. No match yields "" and ErrDateNotFound.
func ExtractPeriod(text string) (string, error) {
	match := periodPattern.FindString(strings.ToLower(text))
	if match == "" {
		return "", domain.WrapError(domain.ErrDateNotFound, "extract period", errors.New("no reporting period statement"))
	}
	return titleCase(match), nil
}
