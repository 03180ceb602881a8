package identity

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/studyhall/server/internal/domain"
	"github.com/valyala/fasthttp"
)

// Remote asks the profile service: GET {base}/api/users/{id} -> {"name": "..."}.
type Remote struct {
	base    string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Remote{
		base:    strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client: &fasthttp.Client{
			Name:         "studyhall-chat",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

type profileResponse struct {
	Name string `json:"name"`
}

func (r *Remote) DisplayName(ctx context.Context, id domain.UserID) (string, error) {
	timeout := r.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return "", context.DeadlineExceeded
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.base + "/api/users/" + url.PathEscape(string(id)))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := r.client.DoTimeout(req, resp, timeout); err != nil {
		return "", fmt.Errorf("%w: profile lookup: %v", domain.ErrIdentityUnresolved, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("%w: profile lookup status %d", domain.ErrIdentityUnresolved, resp.StatusCode())
	}
	var body profileResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("%w: profile body: %v", domain.ErrIdentityUnresolved, err)
	}
	if body.Name == "" {
		return "", fmt.Errorf("%w: profile has no name", domain.ErrIdentityUnresolved)
	}
	return body.Name, nil
}
