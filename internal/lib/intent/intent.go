package intent

import (
	"regexp"
	"strconv"
	"strings"
)

type Kind string

const (
	KindShow    Kind = "show"
	KindBook    Kind = "book"
	KindConfirm Kind = "confirm"
	KindGreet   Kind = "greet"
	KindUnknown Kind = "unknown"
)

// Intent is a structured booking request extracted from free text. Event and
// Quantity are only set for KindBook.
type Intent struct {
	Kind     Kind   `json:"intent"`
	Event    string `json:"event,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

var (
	bookRe    = regexp.MustCompile(`book\s*(\d+|one|two|three|four|five|six|seven|eight|nine|ten)?\s*(?:tickets?)?\s*for\s+(.+)$`)
	confirmRe = regexp.MustCompile(`^yes\b.*\bbook\b`)
	greetRe   = regexp.MustCompile(`^(hi|hello|hey)\b`)
)

var numberWords = map[string]int{
	"one":   1,
	"two":   2,
	"three": 3,
	"four":  4,
	"five":  5,
	"six":   6,
	"seven": 7,
	"eight": 8,
	"nine":  9,
	"ten":   10,
}

func Parse(message string) Intent {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return Intent{Kind: KindUnknown}
	}

	if strings.Contains(text, "show") && strings.Contains(text, "event") {
		return Intent{Kind: KindShow}
	}

	if m := bookRe.FindStringSubmatch(text); m != nil {
		return Intent{
			Kind:     KindBook,
			Event:    strings.TrimSpace(m[2]),
			Quantity: quantity(m[1]),
		}
	}

	if confirmRe.MatchString(text) {
		return Intent{Kind: KindConfirm}
	}

	if greetRe.MatchString(text) {
		return Intent{Kind: KindGreet}
	}

	return Intent{Kind: KindUnknown}
}

func quantity(raw string) int {
	if raw == "" {
		return 1
	}

	if n, ok := numberWords[raw]; ok {
		return n
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 1
	}

	return n
}
