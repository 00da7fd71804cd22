package usecase

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
)

// UnknownCompany is reported when no organization passes the marker filter.
const UnknownCompany = "Unknown"

// companyMarkers are matched as plain substrings of the lowercased entity.
var companyMarkers = []string{"company", "inc.", "ltd", "enterprise", "corporation"}

type MetadataExtractor struct {
	recognizer ports.EntityRecognizer
}

func NewMetadataExtractor(recognizer ports.EntityRecognizer) *MetadataExtractor {
	return &MetadataExtractor{recognizer: recognizer}
}

// Extract never fails: missing values become sentinels and the reason is kept in Notes.
func (m *MetadataExtractor) Extract(ctx context.Context, text string) domain.Metadata {
	var meta domain.Metadata

	company, err := m.CompanyName(ctx, text)
	meta.CompanyName = company
	if err != nil {
		meta.Notes = append(meta.Notes, err.Error())
	}

	period, err := ExtractPeriod(text)
	meta.PeriodEnding = period
	if err != nil {
		meta.Notes = append(meta.Notes, err.Error())
	}
	return meta
}

// CompanyName returns the first recognized organization carrying a corporate
// marker, title-cased. It is a best-effort heuristic, not the registrant name.
func (m *MetadataExtractor) CompanyName(ctx context.Context, text string) (string, error) {
	if m.recognizer == nil {
		return UnknownCompany, domain.WrapError(domain.ErrCompanyNotFound, "recognize organizations", errors.New("no entity recognizer configured"))
	}
	entities, err := m.recognizer.Organizations(ctx, text)
	if err != nil {
		return UnknownCompany, domain.WrapError(domain.ErrCompanyNotFound, "recognize organizations", err)
	}
	filtered := FilterOrganizations(entities)
	if len(filtered) == 0 {
		return UnknownCompany, domain.WrapError(domain.ErrCompanyNotFound, "filter organizations", errors.New("no organization with a corporate marker"))
	}
	return titleCase(filtered[0]), nil
}

// FilterOrganizations keeps entities whose lowercase form contains a company
// marker, preserving extraction order.
func FilterOrganizations(entities []string) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		lower := strings.ToLower(e)
		for _, marker := range companyMarkers {
			if strings.Contains(lower, marker) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// titleCase builds a new Caser per call; a Caser keeps state and is not safe
// for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
