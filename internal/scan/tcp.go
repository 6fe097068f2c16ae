package scan

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"
)

// IIODPort is the TCP port network contexts listen on.
const IIODPort = 30431

// TCPProber reports the hosts that accept a TCP connection on Port as
// "ip:<host>" URIs.
type TCPProber struct {
	Hosts   []string
	Port    int
	Timeout time.Duration
}

func (p TCPProber) Scan(ctx context.Context) ([]string, error) {
	port := p.Port
	if port == 0 {
		port = IIODPort
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	var (
		mu    sync.Mutex
		found []string
		wg    sync.WaitGroup
	)
	dialer := net.Dialer{Timeout: timeout}
	for _, host := range p.Hosts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
			if err != nil {
				return
			}
			_ = conn.Close()
			mu.Lock()
			found = append(found, "ip:"+host)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return found, err
	}
	return found, nil
}

// Multi runs several scanners and merges their results. Errors are joined;
// partial results are kept.
func Multi(scanners ...Scanner) Scanner {
	return ScannerFunc(func(ctx context.Context) ([]string, error) {
		var uris []string
		var errs []error
		for _, s := range scanners {
			found, err := s.Scan(ctx)
			uris = append(uris, found...)
			if err != nil {
				errs = append(errs, err)
			}
		}
		return uris, errors.Join(errs...)
	})
}
