package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SectionKind is the "type" tag of a report section.
type SectionKind string

const (
	KindSummary         SectionKind = "summary"
	KindSWOT            SectionKind = "swot"
	KindMarket          SectionKind = "market"
	KindFinancials      SectionKind = "financials"
	KindRecommendations SectionKind = "recommendations"
)

var (
	// ErrUnknownSection is returned when decoding a tag that is not one of the known kinds.
	ErrUnknownSection = errors.New("unknown report section")
	// ErrDuplicateSection is returned when a report carries the same kind twice.
	ErrDuplicateSection = errors.New("duplicate report section")
)

// Section is one named part of a report.
type Section interface {
	Kind() SectionKind
}

// Summary free text overview
type Summary struct {
	Text string `json:"text"`
}

// SWOT strengths, weaknesses, opportunities and threats
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// Market sizing and competition
type Market struct {
	Size        string   `json:"size"`
	Growth      string   `json:"growth"`
	Segments    []string `json:"segments"`
	Competitors []string `json:"competitors"`
}

// Metric a single named figure
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Financials key figures in one currency
type Financials struct {
	Currency string   `json:"currency"`
	Metrics  []Metric `json:"metrics"`
}

// Recommendation one suggested action
type Recommendation struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Priority int    `json:"priority"`
}

// Recommendations ordered suggested actions
type Recommendations struct {
	Items []Recommendation `json:"items"`
}

func (Summary) Kind() SectionKind         { return KindSummary }
func (SWOT) Kind() SectionKind            { return KindSWOT }
func (Market) Kind() SectionKind          { return KindMarket }
func (Financials) Kind() SectionKind      { return KindFinancials }
func (Recommendations) Kind() SectionKind { return KindRecommendations }

// Report is an ordered list of sections, at most one per kind.
type Report struct {
	Sections []Section
}

// Add appends s, replacing an existing section of the same kind in place.
func (r *Report) Add(s Section) {
	for i, existing := range r.Sections {
		if existing.Kind() == s.Kind() {
			r.Sections[i] = s
			return
		}
	}
	r.Sections = append(r.Sections, s)
}

// Section returns the section of kind, ok is false when the report has none.
func (r Report) Section(kind SectionKind) (Section, bool) {
	for _, s := range r.Sections {
		if s.Kind() == kind {
			return s, true
		}
	}
	return nil, false
}

type taggedSection struct {
	Type SectionKind     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes the report as [{"type": ..., "data": ...}].
func (r Report) MarshalJSON() ([]byte, error) {
	out := make([]taggedSection, 0, len(r.Sections))
	for _, s := range r.Sections {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("marshal %s section: %w", s.Kind(), err)
		}
		out = append(out, taggedSection{Type: s.Kind(), Data: data})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes [{"type": ..., "data": ...}], rejecting unknown and repeated tags.
func (r *Report) UnmarshalJSON(b []byte) error {
	var raw []taggedSection
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	sections := make([]Section, 0, len(raw))
	seen := make(map[SectionKind]bool, len(raw))
	for _, t := range raw {
		if seen[t.Type] {
			return fmt.Errorf("%w: %q", ErrDuplicateSection, t.Type)
		}
		seen[t.Type] = true

		s, err := decodeSection(t)
		if err != nil {
			return err
		}
		sections = append(sections, s)
	}
	r.Sections = sections
	return nil
}

func decodeSection(t taggedSection) (Section, error) {
	var s Section
	switch t.Type {
	case KindSummary:
		s = &Summary{}
	case KindSWOT:
		s = &SWOT{}
	case KindMarket:
		s = &Market{}
	case KindFinancials:
		s = &Financials{}
	case KindRecommendations:
		s = &Recommendations{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, t.Type)
	}

	if len(t.Data) > 0 && string(t.Data) != "null" {
		if err := json.Unmarshal(t.Data, s); err != nil {
			return nil, fmt.Errorf("decode %s section: %w", t.Type, err)
		}
	}
	return deref(s), nil
}

// deref stores sections by value so Section(kind) type switches see one shape.
func deref(s Section) Section {
	switch v := s.(type) {
	case *Summary:
		return *v
	case *SWOT:
		return *v
	case *Market:
		return *v
	case *Financials:
		return *v
	case *Recommendations:
		return *v
	}
	return s
}
