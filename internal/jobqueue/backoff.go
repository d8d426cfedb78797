package jobqueue

import "time"

// Backoff exponencial: Base * 2^(tentativa-1), limitado a Max
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if b.Base <= 0 {
		return 0
	}

	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if b.Max > 0 && delay >= b.Max {
			return b.Max
		}
	}

	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}
