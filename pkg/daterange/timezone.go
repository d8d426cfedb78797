package daterange

import (
	"fmt"
	"math"
	"time"
)

// Window é o intervalo semiaberto [Since, Until) em instantes absolutos,
// calculado no fuso de relatório da conta.
type Window struct {
	Since    time.Time
	Until    time.Time
	Location *time.Location
}

// LoadAccountLocation resolve o fuso de relatório de uma conta.
// Usa o nome IANA quando disponível e cai para o offset fixo informado pela plataforma.
func LoadAccountLocation(name string, offsetHours float64) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}

	if offsetHours != 0 {
		seconds := int(math.Round(offsetHours * 3600))
		return time.FixedZone(fmt.Sprintf("UTC%+g", offsetHours), seconds)
	}

	return time.UTC
}

// AccountWindow converte um intervalo de datas civis nas fronteiras de dia do fuso da conta.
// Para UTC-3 o dia D começa em D 03:00Z, e não em D 00:00Z.
func AccountWindow(r Range, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}

	since := time.Date(r.Start.Year(), r.Start.Month(), r.Start.Day(), 0, 0, 0, 0, loc)
	until := time.Date(r.End.Year(), r.End.Month(), r.End.Day()+1, 0, 0, 0, 0, loc)

	return Window{Since: since, Until: until, Location: loc}
}

// SinceDate é a primeira data local (inclusiva) enviada para a API
func (w Window) SinceDate() string {
	return w.Since.In(w.location()).Format(time.DateOnly)
}

// UntilDate é a última data local (inclusiva) enviada para a API
func (w Window) UntilDate() string {
	return w.Until.In(w.location()).AddDate(0, 0, -1).Format(time.DateOnly)
}

func (w Window) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// DayIn interpreta uma data da plataforma (YYYY-MM-DD) no fuso da conta e
// devolve a data civil correspondente junto com o início do dia local.
func DayIn(date string, loc *time.Location) (civil time.Time, start time.Time, err error) {
	if loc == nil {
		loc = time.UTC
	}

	start, err = time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("data inválida %q: %w", date, err)
	}

	return Truncate(start), start, nil
}
