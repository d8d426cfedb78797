package metaclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	metadomain "github.com/vfg2006/traffic-ledger/infrastructure/integrator/meta/domain"
	"github.com/vfg2006/traffic-ledger/internal/config"
	"github.com/vfg2006/traffic-ledger/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrTimeout indica que a requisição passou do META_REQUEST_TIMEOUT
var ErrTimeout = errors.New("meta: tempo limite da requisição excedido")

const defaultPageSize = 100

// Client busca uma página por chamada; a paginação fica a cargo do integrador
type Client interface {
	GetAdAccounts(ctx context.Context, after string) (*metadomain.AdAccountsResponse, error)
	GetInsights(ctx context.Context, params InsightsParams) (*metadomain.InsightsResponse, error)
}

type MetaClient struct {
	Cfg        *config.Meta
	HTTPClient *http.Client
}

func NewClient(cfg *config.Meta) Client {
	return &MetaClient{
		Cfg: cfg,
		HTTPClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

func (c *MetaClient) pageSize() int {
	if c.Cfg.PageSize > 0 {
		return c.Cfg.PageSize
	}
	return defaultPageSize
}

// get executa um GET autenticado e decodifica o corpo em out
func (c *MetaClient) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s/%s?%s", c.Cfg.URL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		logrus.WithError(err).Error("Erro ao criar a requisição")
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Cfg.AccessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	metrics.ExternalRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		if isTimeout(err) {
			metrics.ExternalRequests.WithLabelValues(endpoint, "timeout").Inc()
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		metrics.ExternalRequests.WithLabelValues(endpoint, "error").Inc()
		logrus.WithError(err).WithField("endpoint", endpoint).Error("Erro ao fazer a requisição")
		return err
	}
	defer resp.Body.Close()

	metrics.ExternalRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := handleResponse(resp)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		logrus.WithError(err).Error("Erro ao decodificar JSON")
		return fmt.Errorf("erro ao decodificar resposta de %s: %w", endpoint, err)
	}

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
