package seats

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowLabel(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for in, want := range cases {
		assert.Equal(t, want, RowLabel(in), "row %d", in)
	}
}

func TestGenerateSeats(t *testing.T) {
	eventID := uuid.New()
	chart, err := GenerateSeats(eventID, []SectionLayout{
		{Name: "Floor", Rows: 2, Columns: 3, Price: decimal.NewFromInt(50)},
		{Name: "VIP", Prefix: "v", Rows: 1, Columns: 2, Type: "VIP", Price: decimal.NewFromInt(120)},
	})
	require.NoError(t, err)
	require.Len(t, chart, 8)

	labels := make([]string, len(chart))
	for i, s := range chart {
		labels[i] = s.SeatID
		assert.Equal(t, eventID, s.EventID)
		assert.Equal(t, StatusAvailable, s.Status)
	}
	assert.Equal(t, []string{"A1", "A2", "A3", "B1", "B2", "B3", "VA1", "VA2"}, labels)
	assert.Equal(t, "STANDARD", chart[0].Type)
	assert.Equal(t, "VIP", chart[7].Type)
	assert.True(t, chart[7].Price.Equal(decimal.NewFromInt(120)))
}

func TestGenerateSeatsRejectsBadLayouts(t *testing.T) {
	tests := []struct {
		name    string
		layouts []SectionLayout
	}{
		{"overlapping labels", []SectionLayout{{Name: "A", Rows: 1, Columns: 2}, {Name: "B", Rows: 1, Columns: 1}}},
		{"empty grid", []SectionLayout{{Name: "A", Rows: 0, Columns: 2}}},
		{"negative price", []SectionLayout{{Name: "A", Rows: 1, Columns: 1, Price: decimal.NewFromInt(-1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateSeats(uuid.New(), tt.layouts)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeSeatIDs(t *testing.T) {
	assert.Equal(t, []string{"A1", "B2"}, NormalizeSeatIDs([]string{" a1", "B2", "A1", ""}))
	assert.Empty(t, NormalizeSeatIDs(nil))
}
