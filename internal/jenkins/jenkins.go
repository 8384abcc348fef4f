package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/bndr/gojenkins"

	"github.com/marcin-skalski/jobcheck/internal/builds"
)

// ErrServer covers transport failures, non-2xx answers and bodies that are
// not the expected JSON.
var ErrServer = errors.New("jenkins request failed")

type FieldSet int

const (
	// Basic is what the poller needs.
	Basic FieldSet = iota
	// Extended adds build duration for the report.
	Extended
)

func (f FieldSet) String() string {
	if f == Extended {
		return "extended"
	}
	return "basic"
}

// TreeQuery returns the tree selector that fetches jobs, their builds and
// the build causes in one request.
func TreeQuery(f FieldSet) string {
	fields := "number,url,building,result,timestamp"
	if f == Extended {
		fields += ",duration"
	}
	return "jobs[name,url,builds[" + fields + ",actions[causes[userId,userName]]]]"
}

// QueryURL is the jobs endpoint for serverURL with the tree selector
// encoded as a query parameter.
func QueryURL(serverURL string, f FieldSet) string {
	return strings.TrimRight(serverURL, "/") + "/api/json?tree=" + url.QueryEscape(TreeQuery(f))
}

type jobsResponse struct {
	Jobs []builds.Job `json:"jobs"`
}

type whoAmIResponse struct {
	Name string `json:"name"`
}

type Client struct {
	serverURL string
	requester *gojenkins.Requester
	logger    *slog.Logger
}

// NewClient talks to serverURL through httpClient. Authentication is
// whatever the client's cookie jar carries.
func NewClient(serverURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	j := gojenkins.CreateJenkins(httpClient, strings.TrimRight(serverURL, "/"))
	return &Client{
		serverURL: serverURL,
		requester: j.Requester,
		logger:    logger,
	}
}

func (c *Client) ServerURL() string { return c.serverURL }

// Jobs fetches the job tree for f.
func (c *Client) Jobs(ctx context.Context, f FieldSet) ([]builds.Job, error) {
	c.logger.Debug("fetch jobs", "url", QueryURL(c.serverURL, f), "fields", f)

	var out jobsResponse
	if err := c.getJSON(ctx, "/", &out, map[string]string{"tree": TreeQuery(f)}); err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}
	return out.Jobs, nil
}

// WhoAmI returns the account name of the session the client carries.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	var out whoAmIResponse
	if err := c.getJSON(ctx, "/whoAmI/", &out, nil); err != nil {
		return "", fmt.Errorf("fetch identity: %w", err)
	}
	return out.Name, nil
}

// getJSON requests endpoint + "api/json" and decodes the body into result.
// The body is read raw so that a page that is not JSON, such as a login
// redirect answered with 200, is reported instead of decoding to zero values.
func (c *Client) getJSON(ctx context.Context, endpoint string, result any, query map[string]string) error {
	ar := gojenkins.NewAPIRequest(http.MethodGet, endpoint, nil)
	ar.Suffix = "api/json"

	var body string
	resp, err := c.requester.Do(ctx, ar, &body, query)
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return fmt.Errorf("%w: %s returned status %d", ErrServer, endpoint+ar.Suffix, resp.StatusCode)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServer, err)
	}
	if err := json.Unmarshal([]byte(body), result); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrServer, endpoint+ar.Suffix, err)
	}
	return nil
}

// NewHTTPClient builds the transport client: a cookie jar pre-loaded with
// the session cookies for serverURL, and timeout (zero keeps the transport
// default).
func NewHTTPClient(serverURL string, cookies map[string]string, timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	if len(cookies) > 0 && serverURL != "" {
		u, err := url.Parse(serverURL)
		if err != nil {
			return nil, fmt.Errorf("parse server url %q: %w", serverURL, err)
		}
		jarCookies := make([]*http.Cookie, 0, len(cookies))
		for name, value := range cookies {
			jarCookies = append(jarCookies, &http.Cookie{Name: name, Value: value, Path: "/"})
		}
		jar.SetCookies(u, jarCookies)
	}

	return &http.Client{Jar: jar, Timeout: timeout}, nil
}
