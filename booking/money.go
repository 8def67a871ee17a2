package booking

import (
	"fmt"
	"strconv"
	"strings"
)

// multiply scales a decimal money amount ("120.00") by the passenger count
// without going through floats.
func multiply(amount string, count int) (string, error) {
	cents, err := parseCents(amount)
	if err != nil {
		return "", err
	}

	total := cents * int64(count)
	return fmt.Sprintf("%d.%02d", total/100, total%100), nil
}

func parseCents(amount string) (int64, error) {
	whole, fraction, _ := strings.Cut(amount, ".")

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", amount, err)
	}

	var cents int64
	switch len(fraction) {
	case 0:
	case 1:
		cents, err = strconv.ParseInt(fraction, 10, 64)
		cents *= 10
	case 2:
		cents, err = strconv.ParseInt(fraction, 10, 64)
	default:
		return 0, fmt.Errorf("parsing amount %q: too many decimal places", amount)
	}
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", amount, err)
	}

	return units*100 + cents, nil
}
