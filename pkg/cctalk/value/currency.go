package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Factor is the multiplier character trailing a ccTalk currency value
// string (e.g. the 'K' in "US001K").
type Factor byte

const (
	FactorNone  Factor = 0
	FactorMicro Factor = 'm'
	FactorDot   Factor = '.'
	FactorKilo  Factor = 'K'
	FactorMega  Factor = 'M'
	FactorGiga  Factor = 'G'
)

func factorFromRune(r rune) Factor {
	switch r {
	case 'm':
		return FactorMicro
	case '.':
		return FactorDot
	case 'K':
		return FactorKilo
	case 'M':
		return FactorMega
	case 'G':
		return FactorGiga
	default:
		return FactorNone
	}
}

// Multiplier returns the factor's numeric scale. Dot and None both scale
// by 1 — Dot exists only to mark that the source string used a literal
// decimal point instead of an implicit one.
func (f Factor) Multiplier() float64 {
	switch f {
	case FactorMicro:
		return 0.001
	case FactorKilo:
		return 1000
	case FactorMega:
		return 1_000_000
	case FactorGiga:
		return 1_000_000_000
	default:
		return 1
	}
}

func (f Factor) String() string {
	switch f {
	case FactorMicro:
		return "micro"
	case FactorDot:
		return "dot"
	case FactorKilo:
		return "kilo"
	case FactorMega:
		return "mega"
	case FactorGiga:
		return "giga"
	default:
		return "none"
	}
}

// countryDecimals returns the number of decimal places a country's
// smallest currency unit implies. Most currencies use 2; a handful of
// zero- and three-decimal currencies are special-cased.
func countryDecimals(countryCode string) int {
	switch countryCode {
	case "JP", "JPY", "XP", "XPF":
		return 0
	case "BH", "BHD", "OM", "OMR", "TN", "TND":
		return 3
	default:
		return 2
	}
}

// CurrencyToken is a parsed ccTalk value string: either an opaque Token
// (country code "TK", e.g. token/jeton acceptance) or a Currency value.
type CurrencyToken struct {
	IsToken  bool
	Currency CurrencyValue
}

// CurrencyValue is a monetary amount recovered from a 6- or 7-character
// ccTalk value string, expressed in the currency's smallest unit.
type CurrencyValue struct {
	CountryCode string
	Factor      Factor
	Decimals    int
	// Value is the amount in the smallest currency unit (cents, pence, ...).
	Value uint32
}

// MonetaryValue returns Value scaled down by Decimals, e.g. 199 cents at
// 2 decimals becomes 1.99.
func (c CurrencyValue) MonetaryValue() float64 {
	return float64(c.Value) / math.Pow(10, float64(c.Decimals))
}

// ErrCurrencyToken reports why a value string could not be parsed.
type ErrCurrencyToken struct {
	Reason string
}

func (e ErrCurrencyToken) Error() string { return "ccTalk: currency token: " + e.Reason }

var (
	errValueStringTooSmall       = ErrCurrencyToken{Reason: "value string too small"}
	errCoinNotSupportedByDevice  = ErrCurrencyToken{Reason: "coin not supported by device (country code '..')"}
	errInvalidFormat             = ErrCurrencyToken{Reason: "invalid format"}
)

// ParseCurrencyToken decodes a ccTalk value string such as "EU050A" (coin,
// 0.50 EUR) or "EU0100B" (bill, 100 EUR). The country code occupies the
// first two characters; everything up to the trailing type letter is
// digits with an optional factor character; a 7-character string is a
// bill (value scaled to the currency's smallest unit), a 6-character
// string is a coin (value already in smallest units).
func ParseCurrencyToken(s string) (CurrencyToken, error) {
	if len(s) < 6 {
		return CurrencyToken{}, errValueStringTooSmall
	}

	countryCode := s[0:2]
	if countryCode == ".." {
		return CurrencyToken{}, errCoinNotSupportedByDevice
	}
	if countryCode == "TK" {
		return CurrencyToken{IsToken: true}, nil
	}
	decimals := countryDecimals(countryCode)

	rest := s[2:]
	var digits strings.Builder
	var factor Factor
	for _, r := range rest {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		if f := factorFromRune(r); f != FactorNone {
			factor = f
		}
	}

	var numeric uint64
	if digits.Len() > 0 {
		n, err := strconv.ParseUint(digits.String(), 10, 32)
		if err != nil {
			return CurrencyToken{}, errInvalidFormat
		}
		numeric = n
	}

	isBill := len(s) == 7
	var finalValue uint32
	if factor == FactorMicro {
		floatResult := float64(numeric) * factor.Multiplier()
		if isBill {
			finalValue = uint32(floatResult * math.Pow(10, float64(decimals)))
		} else {
			finalValue = uint32(floatResult)
		}
	} else {
		factored := uint32(float64(numeric) * factor.Multiplier())
		if isBill {
			finalValue = factored * uint32(math.Pow(10, float64(decimals)))
		} else {
			finalValue = factored
		}
	}

	return CurrencyToken{
		Currency: CurrencyValue{
			CountryCode: countryCode,
			Factor:      factor,
			Decimals:    decimals,
			Value:       finalValue,
		},
	}, nil
}

func (c CurrencyValue) String() string {
	return fmt.Sprintf("%s %.*f", c.CountryCode, c.Decimals, c.MonetaryValue())
}
