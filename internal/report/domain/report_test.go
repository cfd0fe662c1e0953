package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_MarshalJSON(t *testing.T) {
	var r Report
	r.Add(Summary{Text: "steady demand"})
	r.Add(SWOT{Strengths: []string{"brand"}})

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"summary","data":{"text":"steady demand"}},
		{"type":"swot","data":{"strengths":["brand"],"weaknesses":null,"opportunities":null,"threats":null}}
	]`, string(b))
}

func TestReport_UnmarshalJSON(t *testing.T) {
	in := `[
		{"type":"financials","data":{"currency":"EUR","metrics":[{"name":"revenue","value":1200}]}},
		{"type":"recommendations","data":{"items":[{"title":"hire","detail":"two agents","priority":1}]}}
	]`

	var r Report
	require.NoError(t, json.Unmarshal([]byte(in), &r))
	require.Len(t, r.Sections, 2)

	s, ok := r.Section(KindFinancials)
	require.True(t, ok)
	fin, ok := s.(Financials)
	require.True(t, ok)
	assert.Equal(t, "EUR", fin.Currency)
	assert.Equal(t, 1200.0, fin.Metrics[0].Value)

	_, ok = r.Section(KindMarket)
	assert.False(t, ok)
}

func TestReport_UnmarshalJSON_Rejects(t *testing.T) {
	var r Report
	err := json.Unmarshal([]byte(`[{"type":"horoscope","data":{}}]`), &r)
	assert.ErrorIs(t, err, ErrUnknownSection)

	err = json.Unmarshal([]byte(`[{"type":"summary","data":{}},{"type":"summary","data":{}}]`), &r)
	assert.ErrorIs(t, err, ErrDuplicateSection)

	err = json.Unmarshal([]byte(`[{"type":"market","data":{"size":3}}]`), &r)
	assert.Error(t, err)
}

func TestReport_AddReplaces(t *testing.T) {
	var r Report
	r.Add(Market{Size: "small"})
	r.Add(Summary{Text: "a"})
	r.Add(Market{Size: "large"})

	require.Len(t, r.Sections, 2)
	s, _ := r.Section(KindMarket)
	assert.Equal(t, "large", s.(Market).Size)
	assert.Equal(t, KindMarket, r.Sections[0].Kind())
}

func TestReport_RoundTripKeepsOrder(t *testing.T) {
	var r Report
	r.Add(Recommendations{Items: []Recommendation{{Title: "x"}}})
	r.Add(Summary{Text: "y"})

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var back Report
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r, back)
}
