package domain

import (
	"time"
)

// Platform identifica o tipo de integração com uma plataforma de anúncios
type Platform string

const (
	PlatformMeta Platform = "meta"
)

// Connection é a integração credenciada com a plataforma. Existe no máximo uma por Platform.
// CredentialRef guarda apenas uma impressão digital da credencial, nunca o token em texto puro.
type Connection struct {
	ID            string    `json:"id"`
	Platform      Platform  `json:"platform"`
	CredentialRef string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AdAccount struct {
	ID                  string    `json:"id"`
	ConnectionID        string    `json:"connection_id"`
	ExternalID          string    `json:"external_id"`
	Name                string    `json:"name"`
	Currency            string    `json:"currency"`
	TimezoneName        string    `json:"timezone_name"`
	TimezoneOffsetHours float64   `json:"timezone_offset_hours"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
