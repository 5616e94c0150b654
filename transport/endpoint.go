package transport

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var baseURLPattern = regexp.MustCompile(`^(https?)://([^:/\s]+)(?::(\d+))?/?$`)

var errMalformedURL = errors.New("base URL must look like scheme://host[:port] with scheme http or https")

// Endpoint is a parsed base URL.
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// ParseBaseURL accepts scheme://host[:port] with scheme http or https.
// A missing port defaults to 443 for https and 80 for http.
func ParseBaseURL(raw string) (Endpoint, error) {
	m := baseURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Endpoint{}, errMalformedURL
	}
	ep := Endpoint{Scheme: m[1], Host: m[2], Port: defaultPort(m[1])}
	if m[3] != "" {
		port, err := strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return Endpoint{}, errMalformedURL
		}
		ep.Port = port
	}
	return ep, nil
}

// URL joins the endpoint with path. Default ports are left implicit so the
// Host header matches what vendors expect.
func (e Endpoint) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if e.Port == defaultPort(e.Scheme) {
		return fmt.Sprintf("%s://%s%s", e.Scheme, e.Host, path)
	}
	return fmt.Sprintf("%s://%s:%d%s", e.Scheme, e.Host, e.Port, path)
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}
