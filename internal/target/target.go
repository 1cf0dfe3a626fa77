// Package target checks whether the app under test is up.
package target

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	dialTimeout = 250 * time.Millisecond
	httpTimeout = 800 * time.Millisecond
)

// Reachable dials the host of base and then issues a GET against it. Any
// HTTP response counts as reachable.
func Reachable(ctx context.Context, base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse %q: %w", base, err)
	}
	if u.Host == "" {
		return fmt.Errorf("parse %q: no host", base)
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return fmt.Errorf("dial %s: %w", host, err)
	}
	_ = conn.Close()

	reqCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, base, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", base, err)
	}
	_ = resp.Body.Close()
	return nil
}

// Detect returns base when it is reachable. Otherwise it tries the same
// port on localhost and 127.0.0.1 and returns the first one that answers.
// If nothing answers, base is returned unchanged so navigation reports the
// failure.
func Detect(ctx context.Context, base string, log logrus.FieldLogger) string {
	start := time.Now()
	if Reachable(ctx, base) == nil {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}

	tried := []string{base}
	for _, host := range []string{"localhost", "127.0.0.1"} {
		if host == u.Hostname() {
			continue
		}
		c := *u
		c.Host = net.JoinHostPort(host, port)
		candidate := c.String()
		tried = append(tried, candidate)
		if Reachable(ctx, candidate) == nil {
			log.WithFields(logrus.Fields{
				"from":    base,
				"to":      candidate,
				"elapsed": time.Since(start),
			}).Info("auto-detect switched base URL")
			return candidate
		}
	}
	log.WithFields(logrus.Fields{
		"base_url": base,
		"tried":    tried,
		"elapsed":  time.Since(start),
	}).Warn("auto-detect found no reachable base URL")
	return base
}
