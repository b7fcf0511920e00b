package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Resolver резолвит IPv4-адреса хоста.
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) ([]net.IP, error)
}

// NetResolver — Resolver поверх net.Resolver.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver создаёт резолвер. nil — системный резолвер по умолчанию.
func NewNetResolver(r *net.Resolver) *NetResolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &NetResolver{resolver: r}
}

// LookupIPv4 возвращает только IPv4-адреса хоста.
func (r *NetResolver) LookupIPv4(ctx context.Context, host string) ([]net.IP, error) {
	ips, err := r.resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		// NXDOMAIN и пустой ответ — не ошибка, а отсутствие записи
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup %s: %w", host, err)
	}

	out := make([]net.IP, 0, len(ips))
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			out = append(out, v4)
		}
	}
	return out, nil
}
