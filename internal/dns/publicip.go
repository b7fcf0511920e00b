package dns

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultPublicIPURL — endpoint, возвращающий IP клиента в теле ответа.
const DefaultPublicIPURL = "https://checkip.amazonaws.com"

const defaultPublicIPTimeout = 10 * time.Second

// PublicIPFetcher возвращает собственный публичный IPv4 воркера.
type PublicIPFetcher interface {
	PublicIPv4(ctx context.Context) (net.IP, error)
}

// HTTPPublicIP получает публичный IP через "echo my IP" endpoint.
type HTTPPublicIP struct {
	url    string
	client *http.Client
}

// NewHTTPPublicIP создаёт HTTPPublicIP. Пустой url — DefaultPublicIPURL.
func NewHTTPPublicIP(url string, client *http.Client) *HTTPPublicIP {
	if url == "" {
		url = DefaultPublicIPURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultPublicIPTimeout}
	}
	return &HTTPPublicIP{url: url, client: client}
}

// PublicIPv4 запрашивает endpoint и парсит тело как IPv4.
func (p *HTTPPublicIP) PublicIPv4(ctx context.Context) (net.IP, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrPublicIP, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublicIP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrPublicIP, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrPublicIP, err)
	}

	raw := strings.TrimSpace(string(body))
	ip := net.ParseIP(raw).To4()
	if ip == nil {
		return nil, fmt.Errorf("%w: not an ipv4 address: %q", ErrPublicIP, raw)
	}

	return ip, nil
}
