// Utilities for turning browser request captures into YouTube Music credentials.
package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// allowedHeaders are the request headers YouTube Music needs to authenticate a browser session.
var allowedHeaders = map[string]bool{
	"cookie":          true,
	"x-goog-authuser": true,
	"authorization":   true,
	"x-origin":        true,
	"user-agent":      true,
	"accept-language": true,
}

var (
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
)

// BrowserHeaders is a lower-cased header name → value map restricted to the headers YouTube Music accepts.
type BrowserHeaders map[string]string

// Cookie returns the session cookie.
func (h BrowserHeaders) Cookie() string {
	return h["cookie"]
}

// Validate requires a cookie.
func (h BrowserHeaders) Validate() error {
	if strings.TrimSpace(h.Cookie()) == "" {
		return fmt.Errorf("%w: cookie header is required", ErrMissingCredentials)
	}
	return nil
}

// Raw renders the headers as newline-separated "name: value" pairs in a stable order.
func (h BrowserHeaders) Raw() string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, h[k]))
	}
	return strings.Join(lines, "\n")
}

func (h BrowserHeaders) set(key, value string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !allowedHeaders[key] {
		return
	}
	h[key] = strings.TrimSpace(value)
}

// ParseRawHeaders parses headers copied from the browser's network inspector, one "Name: value" per line.
//
// Lines without a colon and headers outside the allowed set are ignored. A cookie is required.
func ParseRawHeaders(raw string) (BrowserHeaders, error) {
	headers := BrowserHeaders{}
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers.set(key, value)
	}

	if err := headers.Validate(); err != nil {
		return nil, err
	}
	return headers, nil
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers.
func ParseCurlFile(path string) (BrowserHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a "Copy as cURL" command and extracts the allowed headers.
//
// A cookie passed with -b takes precedence over a Cookie -H header.
func ParseCurlCommand(curlCmd string) (BrowserHeaders, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := BrowserHeaders{}
	for _, match := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		line := match[1]
		if line == "" {
			line = match[2]
		}
		if key, value, ok := strings.Cut(line, ":"); ok {
			headers.set(key, value)
		}
	}

	if m := curlCookieRegex.FindStringSubmatch(curlCmd); len(m) > 1 {
		cookie := m[1]
		if cookie == "" {
			cookie = m[2]
		}
		headers.set("cookie", cookie)
	}

	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no usable headers found in curl command", ErrInvalidCredentials)
	}
	if err := headers.Validate(); err != nil {
		return nil, err
	}
	return headers, nil
}

// LoadHeadersFile reads headers saved by [SaveHeadersFile], or a raw header dump.
func LoadHeadersFile(path string) (BrowserHeaders, error) {
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read headers file: %w", err)
	}

	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return ParseRawHeaders(string(data))
	}

	headers := BrowserHeaders{}
	for k, v := range stored {
		headers.set(k, v)
	}
	if err := headers.Validate(); err != nil {
		return nil, err
	}
	return headers, nil
}

// SaveHeadersFile writes headers as JSON with owner-only permissions.
func SaveHeadersFile(path string, headers BrowserHeaders) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create headers directory: %w", err)
	}

	data, err := json.MarshalIndent(headers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write headers file: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
