package sm2

import (
	"fmt"
	"strconv"
)

// Quality is the user's 0-5 assessment of recall for a single review.
// Ratings below CorrectDifficult count as failures and reset a card's
// repetition streak.
type Quality int

const (
	Blackout          Quality = 0 // no recall at all
	Incorrect         Quality = 1 // wrong, but recognized the answer when shown
	IncorrectFamiliar Quality = 2 // wrong, but the answer felt familiar
	CorrectDifficult  Quality = 3 // correct with serious effort
	CorrectHesitation Quality = 4 // correct after some hesitation
	Perfect           Quality = 5 // immediate correct recall
)

var qualityNames = [...]string{
	Blackout:          "Blackout",
	Incorrect:         "Incorrect",
	IncorrectFamiliar: "IncorrectFamiliar",
	CorrectDifficult:  "CorrectDifficult",
	CorrectHesitation: "CorrectHesitation",
	Perfect:           "Perfect",
}

// IsValid reports whether q is inside the 0-5 rating scale.
func (q Quality) IsValid() bool {
	return q >= Blackout && q <= Perfect
}

// String returns the name of the rating.
// For invalid values it returns "Quality(n)".
func (q Quality) String() string {
	if q.IsValid() {
		return qualityNames[q]
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ParseQuality converts a decimal string such as "4" into a Quality.
// Returns ErrInvalidQuality for anything outside the 0-5 scale.
func ParseQuality(s string) (Quality, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	}
	q := Quality(n)
	if !q.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQuality, n)
	}
	return q, nil
}
