// Package servers checks whether the configured game servers accept
// connections.
package servers

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// DefaultTimeout bounds a single reachability probe
const DefaultTimeout = 2 * time.Second

// Probe reports whether a TCP connection to server succeeds within timeout
func Probe(ctx context.Context, server models.ServerConfig, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(server.Host, strconv.Itoa(server.Port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ProbeAll probes every server concurrently and returns results in input
// order
func ProbeAll(ctx context.Context, list []models.ServerConfig, timeout time.Duration) []models.ServerStatus {
	results := make([]models.ServerStatus, len(list))
	var wg sync.WaitGroup
	for i, server := range list {
		wg.Add(1)
		go func(i int, server models.ServerConfig) {
			defer wg.Done()
			results[i] = models.ServerStatus{Server: server, Online: Probe(ctx, server, timeout)}
		}(i, server)
	}
	wg.Wait()
	return results
}

// Find returns the server with the given name
func Find(list []models.ServerConfig, name string) (models.ServerConfig, bool) {
	for _, s := range list {
		if s.Name == name {
			return s, true
		}
	}
	return models.ServerConfig{}, false
}
