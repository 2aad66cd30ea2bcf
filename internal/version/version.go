// Package version reports build information and checks for newer releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// Build information, set with -ldflags at release time.
//
//nolint:gochecknoglobals // populated by the linker
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const (
	// DefaultReleaseURL is the release feed queried by Check.
	DefaultReleaseURL = "https://api.github.com/repos/mrz1836/addrsync/releases/latest"

	// DefaultTimeout bounds a release check.
	DefaultTimeout = 10 * time.Second

	maxReleaseBody = 64 * 1024
)

// ErrReleaseCheck is returned when the release feed cannot be read.
var ErrReleaseCheck = &syncerr.SyncError{
	Code:       "RELEASE_CHECK_FAILED",
	Message:    "could not check for a newer release",
	Suggestion: "retry later or check network access",
	ExitCode:   syncerr.ExitRemote,
}

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Latest    string `json:"latest,omitempty"`
	Outdated  bool   `json:"outdated,omitempty"`
}

// Current returns the build information of this binary.
func Current() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Checker fetches the latest published release tag.
type Checker struct {
	url        string
	httpClient *http.Client
}

// NewChecker creates a checker for the release feed at url. An empty url
// selects DefaultReleaseURL.
func NewChecker(url string, httpClient *http.Client) *Checker {
	if url == "" {
		url = DefaultReleaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Checker{url: url, httpClient: httpClient}
}

// Latest returns the tag name of the newest release.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", syncerr.WithCause(ErrReleaseCheck, err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", fmt.Sprintf("addrsync/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH))

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL comes from configuration
	if err != nil {
		return "", syncerr.WithCause(ErrReleaseCheck, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", syncerr.WithDetails(ErrReleaseCheck, map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
		})
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReleaseBody)).Decode(&release); err != nil {
		return "", syncerr.WithCause(ErrReleaseCheck, err)
	}
	if release.TagName == "" {
		return "", syncerr.WithDetails(ErrReleaseCheck, map[string]string{"tag_name": "empty"})
	}
	return release.TagName, nil
}

// Check fills in the latest release and whether info is behind it.
func (c *Checker) Check(ctx context.Context, info Info) (Info, error) {
	latest, err := c.Latest(ctx)
	if err != nil {
		return info, err
	}
	info.Latest = Normalize(latest)
	info.Outdated = Compare(latest, info.Version) > 0
	return info, nil
}

// Compare returns 1, 0 or -1 as a is newer than, equal to or older than b.
// Development builds and commit hashes are older than any release.
func Compare(a, b string) int {
	aDev, bDev := isDevelopment(a), isDevelopment(b)
	switch {
	case aDev && bDev:
		return 0
	case aDev:
		return -1
	case bDev:
		return 1
	}

	pa, pb := parts(a), parts(b)
	for i := range 3 {
		if pa[i] != pb[i] {
			if pa[i] > pb[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// Normalize strips a leading "v" and any pre-release or build suffix.
func Normalize(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	return v
}

func parts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(Normalize(v), ".", 3) {
		n, err := strconv.Atoi(p)
		if err == nil {
			out[i] = n
		}
	}
	return out
}

func isDevelopment(v string) bool {
	v = Normalize(v)
	if v == "" || v == "dev" {
		return true
	}
	return isCommitHash(v)
}

// isCommitHash matches 7 to 40 hex characters with at least one letter.
func isCommitHash(s string) bool {
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	hasLetter := false
	for _, c := range strings.ToLower(s) {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
			hasLetter = true
		default:
			return false
		}
	}
	return hasLetter
}
