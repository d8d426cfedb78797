package metaclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	metadomain "github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/domain"
)

const maxErrorBody = 4096

// APIError é uma resposta não-2xx da Graph API
type APIError struct {
	StatusCode int
	Body       string
	Meta       metadomain.ErrorDetails
}

func (e *APIError) Error() string {
	if e.Meta.Message != "" {
		return fmt.Sprintf("erro na resposta da API. Status: %d, Código: %d, Mensagem: %s", e.StatusCode, e.Meta.Code, e.Meta.Message)
	}
	return fmt.Sprintf("erro na resposta da API. Status: %d, Corpo: %s", e.StatusCode, e.Body)
}

func ParseErrorResponse(body []byte) (*metadomain.ErrorResponse, error) {
	var errorResp metadomain.ErrorResponse
	err := json.Unmarshal(body, &errorResp)
	if err != nil {
		return nil, err
	}
	return &errorResp, nil
}

// handleResponse lê o corpo e converte respostas de erro em *APIError
func handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler resposta: %w", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return body, nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Body:       truncate(string(body), maxErrorBody),
	}

	if errorResp, parseErr := ParseErrorResponse(body); parseErr == nil {
		apiErr.Meta = errorResp.Error
	}

	switch {
	case apiErr.Meta.IsTokenExpired() || containsTokenExpirationMessage(apiErr.Body):
		logrus.Warnf("Token expirado detectado pela API Meta. Código: %d, Subcódigo: %d",
			apiErr.Meta.Code, apiErr.Meta.ErrorSubcode)
	case apiErr.Meta.IsRateLimited():
		logrus.WithField("code", apiErr.Meta.Code).Warn("Limite de chamadas da API Meta atingido")
	}

	return nil, apiErr
}

// containsTokenExpirationMessage verifica se a mensagem contém indicação de token expirado
func containsTokenExpirationMessage(message string) bool {
	return strings.Contains(message, "Error validating access token") ||
		strings.Contains(message, "Session has expired") ||
		strings.Contains(message, "The session has been invalidated")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
