package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRange       = errors.New("daterange: end date before start date")
	ErrInvalidGranularity = errors.New("daterange: invalid granularity")
)

// Granularity define o tamanho de cada pedaço gerado por Chunk
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Week, Month:
		return g, nil
	case "":
		return Month, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
}

// Range é um intervalo fechado de datas civis [Start, End].
// As datas são normalizadas para meia-noite UTC e não carregam fuso horário.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewRange(start, end time.Time) (Range, error) {
	r := Range{Start: Truncate(start), End: Truncate(end)}
	if r.End.Before(r.Start) {
		return Range{}, ErrInvalidRange
	}
	return r, nil
}

// Days retorna a quantidade de dias do intervalo, incluindo as duas pontas
func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

// Date monta uma data civil
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate descarta hora e fuso, mantendo o dia do calendário como visto em t.Location()
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate interpreta uma data no formato YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("data inválida %q: %w", s, err)
	}
	return t, nil
}

// Chunk divide [start, end] em sub-intervalos contíguos e disjuntos do tamanho da granularidade.
// O primeiro e o último pedaço são recortados pelas datas informadas.
func Chunk(start, end time.Time, g Granularity) ([]Range, error) {
	r, err := NewRange(start, end)
	if err != nil {
		return nil, err
	}

	if g == "" {
		g = Month
	}

	chunks := make([]Range, 0, estimate(r, g))
	cursor := r.Start
	for !cursor.After(r.End) {
		next, err := nextUnit(cursor, g)
		if err != nil {
			return nil, err
		}

		chunkEnd := next.AddDate(0, 0, -1)
		if chunkEnd.After(r.End) {
			chunkEnd = r.End
		}

		chunks = append(chunks, Range{Start: cursor, End: chunkEnd})
		cursor = next
	}

	return chunks, nil
}

// nextUnit retorna o primeiro dia da unidade de calendário seguinte a d
func nextUnit(d time.Time, g Granularity) (time.Time, error) {
	switch g {
	case Day:
		return d.AddDate(0, 0, 1), nil
	case Week:
		// semanas ISO começam na segunda-feira
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, 7-offset), nil
	case Month:
		return Date(d.Year(), d.Month()+1, 1), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidGranularity, g)
	}
}

func estimate(r Range, g Granularity) int {
	switch g {
	case Day:
		return r.Days()
	case Week:
		return r.Days()/7 + 2
	default:
		return (r.End.Year()-r.Start.Year())*12 + int(r.End.Month()) - int(r.Start.Month()) + 1
	}
}
