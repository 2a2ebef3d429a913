package domain

import (
	"fmt"
	"strings"
)

// ValidatePoints checks that a point value lies on the board.
func ValidatePoints(points int) error {
	if points < MinPoints || points > MaxPoints {
		return fmt.Errorf("%w: points must be between %d and %d, got %d", ErrInvalidInput, MinPoints, MaxPoints, points)
	}
	return nil
}

// ValidateColor checks a category color against the fixed palette.
func ValidateColor(c Color) error {
	for _, known := range Colors {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown color %q", ErrInvalidInput, c)
}

// RequireNonEmpty returns a validation error naming the first blank field.
// Fields are passed as alternating name/value pairs.
func RequireNonEmpty(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, pairs[i])
		}
	}
	return nil
}

// ValidateQuestion checks the fields an admin supplies for a question.
func ValidateQuestion(q Question) error {
	if err := RequireNonEmpty("categoryId", q.CategoryID, "question", q.Text, "answer", q.Answer); err != nil {
		return err
	}
	return ValidatePoints(q.Points)
}
