package seats

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SectionLayout is a rectangular block of the seating chart. Seats are
// labelled Prefix + row letters + column number, e.g. "A1" or "VIPB12".
type SectionLayout struct {
	Name    string          `json:"name" binding:"required,max=100"`
	Prefix  string          `json:"prefix" binding:"omitempty,alphanum,max=4"`
	Rows    int             `json:"rows" binding:"required,min=1,max=200"`
	Columns int             `json:"columns" binding:"required,min=1,max=200"`
	Type    string          `json:"type" binding:"omitempty,max=30"`
	Price   decimal.Decimal `json:"price"`
}

// RowLabel converts a zero based row index to spreadsheet style letters: 0 -> A, 25 -> Z, 26 -> AA.
func RowLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}

// GenerateSeats creates one AVAILABLE seat per grid cell of every section
func GenerateSeats(eventID uuid.UUID, layouts []SectionLayout) ([]Seat, error) {
	var out []Seat
	seen := make(map[string]string)

	for _, l := range layouts {
		if l.Rows <= 0 || l.Columns <= 0 {
			return nil, fmt.Errorf("section %q must have at least one row and column", l.Name)
		}
		if l.Price.IsNegative() {
			return nil, fmt.Errorf("section %q has a negative price", l.Name)
		}
		seatType := l.Type
		if seatType == "" {
			seatType = "STANDARD"
		}
		for r := 0; r < l.Rows; r++ {
			row := RowLabel(r)
			for c := 1; c <= l.Columns; c++ {
				label := normalizeLabel(fmt.Sprintf("%s%s%d", l.Prefix, row, c))
				if other, dup := seen[label]; dup {
					return nil, fmt.Errorf("seat %s appears in sections %q and %q", label, other, l.Name)
				}
				seen[label] = l.Name
				out = append(out, Seat{
					ID:      uuid.New(),
					EventID: eventID,
					SeatID:  label,
					Section: l.Name,
					Row:     row,
					Number:  c,
					Type:    seatType,
					Price:   l.Price,
					Status:  StatusAvailable,
				})
			}
		}
	}
	return out, nil
}

func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
