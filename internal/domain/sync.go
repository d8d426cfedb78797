package domain

// SyncRequest é o contrato de entrada "iniciar sincronização" (HTTP e CLI)
type SyncRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type SyncResponse struct {
	BatchID string   `json:"batch_id"`
	Chunks  int      `json:"chunks"`
	JobIDs  []string `json:"job_ids"`
}

// ChunkPayload é o payload de um job de sincronização de um pedaço do intervalo
type ChunkPayload struct {
	BatchID   string `json:"batch_id"`
	Platform  string `json:"platform"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ChunkSummary resume o resultado de uma passada do orquestrador
type ChunkSummary struct {
	BatchID  string `json:"batch_id"`
	Start    string `json:"start_date"`
	End      string `json:"end_date"`
	Accounts int    `json:"accounts"`
	Objects  int    `json:"objects"`
	Facts    int    `json:"facts"`
}
