package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

func TestTotal(t *testing.T) {
	tests := []struct {
		name string
		spec models.PrintSpec
		want int
	}{
		{
			name: "colour a4 no binding",
			spec: models.PrintSpec{PrintType: models.PrintColor, BindType: models.BindNone, PaperSize: models.PaperA4, EstimatedPages: 10, Copies: 2},
			want: 100,
		},
		{
			name: "bw a3 spiral",
			spec: models.PrintSpec{PrintType: models.PrintBW, BindType: models.BindSpiral, PaperSize: models.PaperA3, EstimatedPages: 3, Copies: 1},
			want: 29,
		},
		{
			name: "colour a3 odd pages rounds half up",
			spec: models.PrintSpec{PrintType: models.PrintColor, BindType: models.BindStaple, PaperSize: models.PaperA3, EstimatedPages: 1, Copies: 1},
			want: 13,
		},
		{
			name: "letter has no multiplier",
			spec: models.PrintSpec{PrintType: models.PrintBW, BindType: models.BindStaple, PaperSize: models.PaperLetter, EstimatedPages: 5, Copies: 3},
			want: 35,
		},
		{
			name: "defaults",
			spec: models.DefaultPrintSpec(),
			want: 2,
		},
		{
			name: "zero pages leaves binding fee",
			spec: models.PrintSpec{PrintType: models.PrintBW, BindType: models.BindSpiral, PaperSize: models.PaperA4},
			want: 20,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Total(tt.spec))
		})
	}
}

func TestTotalFromStrings_NonNumericIsZero(t *testing.T) {
	assert.Equal(t, 0, TotalFromStrings("bw", "none", "a4", "abc", "2"))
	assert.Equal(t, 0, TotalFromStrings("color", "none", "a4", "10", ""))
	assert.Equal(t, 0, TotalFromStrings("bw", "staple", "a4", "x", "y"), "binding fee is not charged on unusable input")
	assert.Equal(t, 100, TotalFromStrings("color", "none", "a4", " 10 ", "2"))
}

func TestCompute_Breakdown(t *testing.T) {
	q := Compute(models.PrintColor, models.BindSpiral, models.PaperA3, 4, 2)
	assert.Equal(t, Quote{PerPage: 5, TotalPages: 8, Multiplier: 1.5, BindingFee: 20, Total: 80}, q)
}
