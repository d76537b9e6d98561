package spaced_repetition

import (
	"fmt"
	"math"
)

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// Valid reports whether q is in [0, 5]
func (q QualityResponse) Valid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// ParseQuality converts a raw integer score, rejecting anything outside [0, 5]
func ParseQuality(v int) (QualityResponse, error) {
	q := QualityResponse(v)
	if !q.Valid() {
		return 0, fmt.Errorf("%w: quality %d is outside [0, 5]", ErrInvalidInput, v)
	}
	return q, nil
}

// QualityFromCorrect bridges a boolean correct/incorrect answer into the 0-5 scale
func QualityFromCorrect(correct bool) QualityResponse {
	if correct {
		return QualityPerfect
	}
	return QualityIncorrectFamiliar
}

// QualityFromAccuracy определяет качество ответа на основе точности (0.0 - 1.0)
func QualityFromAccuracy(accuracy float64) (QualityResponse, error) {
	if math.IsNaN(accuracy) || accuracy < 0 || accuracy > 1 {
		return 0, fmt.Errorf("%w: accuracy %v is outside [0, 1]", ErrInvalidInput, accuracy)
	}
	if accuracy == 0 {
		return QualityBlackout, nil // Полностью неверный ответ
	}

	quality := QualityResponse(accuracy * 5)
	if quality > QualityPerfect {
		quality = QualityPerfect
	}
	return quality, nil
}
