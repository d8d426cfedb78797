package metadomain

type AdAccount struct {
	ID                     string  `json:"id"`
	AccountID              string  `json:"account_id"`
	Name                   string  `json:"name"`
	Currency               string  `json:"currency"`
	TimezoneName           string  `json:"timezone_name"`
	TimezoneOffsetHoursUTC float64 `json:"timezone_offset_hours_utc"`
	AccountStatus          int     `json:"account_status"`
}

type Cursors struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// Paging acompanha toda resposta de lista. Next vazio significa última página.
type Paging struct {
	Cursors Cursors `json:"cursors"`
	Next    string  `json:"next,omitempty"`
}

// HasNext indica se existe uma próxima página a buscar
func (p *Paging) HasNext() bool {
	return p.Next != "" && p.Cursors.After != ""
}

type AdAccountsResponse struct {
	Data   []AdAccount `json:"data"`
	Paging Paging      `json:"paging"`
}
