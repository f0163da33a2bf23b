package money

import (
	"fmt"
	"strings"
)

// Amount is a currency value in minor units (paise). All arithmetic stays in
// integer space; conversion to rupees happens only when formatting.
type Amount int64

// Mul returns the amount for qty units priced at a.
func (a Amount) Mul(qty int64) Amount {
	return a * Amount(qty)
}

// Sum adds up a list of amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// FormatINR renders an amount in paise as a display string, e.g. 12345678
// becomes "₹1,23,456.78". Indian grouping: the last three integer digits,
// then groups of two.
func FormatINR(a Amount) string {
	neg := a < 0
	if neg {
		a = -a
	}

	rupees := int64(a) / 100
	paise := int64(a) % 100

	digits := fmt.Sprintf("%d", rupees)
	grouped := groupIndian(digits)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	b.WriteString(grouped)
	fmt.Fprintf(&b, ".%02d", paise)
	return b.String()
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}

	return strings.Join(groups, ",") + "," + tail
}
