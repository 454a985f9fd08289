// Package pricing computes the cost of a print job in whole rupees.
package pricing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

var (
	bwPerPage      = decimal.NewFromInt(2)
	colorPerPage   = decimal.NewFromInt(5)
	spiralFee      = decimal.NewFromInt(20)
	stapleFee      = decimal.NewFromInt(5)
	a3Multiplier   = decimal.RequireFromString("1.5")
	unitMultiplier = decimal.NewFromInt(1)
)

// Quote is the breakdown shown next to the order form.
type Quote struct {
	PerPage    int     `json:"perPage"`
	TotalPages int     `json:"totalPages"`
	Multiplier float64 `json:"multiplier"`
	BindingFee int     `json:"bindingFee"`
	Total      int     `json:"total"`
}

// Total returns round(base * pages * copies * sizeMultiplier + bindingFee),
// rounding halves up.
func Total(spec models.PrintSpec) int {
	return Compute(spec.PrintType, spec.BindType, spec.PaperSize, spec.EstimatedPages, spec.Copies).Total
}

// Compute prices a job from its individual inputs.
func Compute(printType models.PrintType, bind models.BindType, size models.PaperSize, pages, copies int) Quote {
	base := bwPerPage
	if printType == models.PrintColor {
		base = colorPerPage
	}

	fee := decimal.Zero
	switch bind {
	case models.BindSpiral:
		fee = spiralFee
	case models.BindStaple:
		fee = stapleFee
	}

	mult := unitMultiplier
	if size == models.PaperA3 {
		mult = a3Multiplier
	}

	totalPages := pages * copies
	total := base.Mul(decimal.NewFromInt(int64(totalPages))).Mul(mult).Add(fee)

	m, _ := mult.Float64()
	return Quote{
		PerPage:    int(base.IntPart()),
		TotalPages: totalPages,
		Multiplier: m,
		BindingFee: int(fee.IntPart()),
		Total:      int(roundHalfUp(total).IntPart()),
	}
}

// ComputeFromStrings prices raw form input. If pages or copies is not an
// integer the quote is zero.
func ComputeFromStrings(printType, bind, size, pages, copies string) Quote {
	p, err := strconv.Atoi(strings.TrimSpace(pages))
	if err != nil {
		return Quote{}
	}
	c, err := strconv.Atoi(strings.TrimSpace(copies))
	if err != nil {
		return Quote{}
	}
	return Compute(models.PrintType(printType), models.BindType(bind), models.PaperSize(size), p, c)
}

// TotalFromStrings is the total of ComputeFromStrings.
func TotalFromStrings(printType, bind, size, pages, copies string) int {
	return ComputeFromStrings(printType, bind, size, pages, copies).Total
}

// roundHalfUp rounds toward positive infinity at .5, like Math.round.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(decimal.New(5, -1)).Floor()
}

