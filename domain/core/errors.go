package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrMissingData: no qualifying feature columns survived cleaning.
	ErrMissingData = errors.New("no usable feature columns in dataset")

	// ErrInsufficientLabels: too few labeled rows to fit a model.
	ErrInsufficientLabels = errors.New("insufficient labeled rows for training")

	// ErrLeakage: a feature computation touched the label wave.
	ErrLeakage = errors.New("data leakage detected")
)

// NewMissingDataError reports a fatal absence of qualifying feature columns.
func NewMissingDataError(detail string) error {
	return fmt.Errorf("%w: %s", ErrMissingData, detail)
}

// NewInsufficientLabelsError reports a training set too small to split.
func NewInsufficientLabelsError(rows int) error {
	return fmt.Errorf("%w: %d rows", ErrInsufficientLabels, rows)
}

// NewLeakageError reports feature access at or after the label wave.
func NewLeakageError(person PersonID, wave, lastWave int) error {
	return fmt.Errorf("%w: person %s feature wave %d >= label wave %d", ErrLeakage, person, wave, lastWave)
}

// Error checking helpers
func IsMissingData(err error) bool {
	return errors.Is(err, ErrMissingData)
}

func IsInsufficientLabels(err error) bool {
	return errors.Is(err, ErrInsufficientLabels)
}

func IsLeakage(err error) bool {
	return errors.Is(err, ErrLeakage)
}
