package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps how much of one response body is kept.
const maxBodyBytes = 32 << 20

type response struct {
	status int
	header http.Header
	body   []byte
	url    string
}

// get requests target and follows redirects itself. hops lists every URL
// that answered with a redirect, in order; it is returned on failure too.
func (c *Connector) get(ctx context.Context, target string, headers http.Header) (*response, []string, error) {
	hops := []string{}
	current := target
	for {
		if !fetchable(current) {
			return nil, hops, fmt.Errorf("%w %q", ErrUnsupportedScheme, current)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, hops, err
		}
		req.Header = c.requestHeaders(headers)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, hops, err
		}
		loc := resp.Header.Get("Location")
		if isRedirect(resp.StatusCode) && loc != "" {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			resp.Body.Close()
			if len(hops) >= c.opts.MaxRedirects {
				return nil, hops, fmt.Errorf("%w: more than %d", ErrTooManyRedirects, c.opts.MaxRedirects)
			}
			next, err := req.URL.Parse(loc)
			if err != nil {
				return nil, hops, fmt.Errorf("redirect from %s: %w", current, err)
			}
			c.logger.Debug("redirect", "from", current, "to", next.String(), "status", resp.StatusCode)
			hops = append(hops, current)
			current = next.String()
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			return nil, hops, fmt.Errorf("read %s: %w", current, err)
		}
		return &response{
			status: resp.StatusCode,
			header: resp.Header,
			body:   body,
			url:    current,
		}, hops, nil
	}
}

// requestHeaders merges the configured headers with per-call ones; per-call
// values win.
func (c *Connector) requestHeaders(extra http.Header) http.Header {
	h := c.headers.Clone()
	for k, vs := range extra {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
