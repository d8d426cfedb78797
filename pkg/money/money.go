package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("money: invalid amount")

// Moedas cujo número de casas decimais difere do padrão ISO 4217 de duas casas
var currencyExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "COP": 0, "CRC": 0, "HUF": 0, "ISK": 0, "JPY": 0, "KRW": 0,
	"PYG": 0, "TWD": 0, "UGX": 0, "VND": 0, "XAF": 0, "XOF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// Exponent retorna a quantidade de casas decimais da unidade menor da moeda
func Exponent(currency string) int32 {
	if exp, ok := currencyExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// ToMinorUnits converte um valor decimal em texto (ex.: "12.345") para a unidade menor da moeda.
// O arredondamento é meio-para-par (banker's rounding): "0.125" BRL vira 12 centavos e "0.135" vira 14.
func ToMinorUnits(amount, currency string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, nil
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	minor := d.Shift(Exponent(currency)).RoundBank(0)
	if !minor.IsInteger() || minor.Abs().GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, fmt.Errorf("%w: %q fora do intervalo", ErrInvalidAmount, amount)
	}

	return minor.IntPart(), nil
}

// FromMinorUnits converte a unidade menor de volta para a unidade principal da moeda
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-Exponent(currency))
}
