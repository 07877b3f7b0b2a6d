package recipeapi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"recipe-planner/internal/config"
	"recipe-planner/internal/recipe"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTimeout bounds every request to the recipe backend.
const DefaultTimeout = 15 * time.Second

const (
	opList   = "ListRecipes"
	opSearch = "SearchRecipes"
	opGet    = "GetRecipe"
	opHealth = "HealthCheck"
)

// ListParams filters a recipe listing. Zero values are not sent.
type ListParams struct {
	Limit  int
	Offset int
	Search string
}

// RecipePage is one page of recipes.
type RecipePage struct {
	Recipes []recipe.Recipe
	Total   int
	Limit   int
	Offset  int
}

// Health is the backend health report.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// Healthy reports whether the backend declared itself healthy.
func (h Health) Healthy() bool {
	return h.Status == "healthy"
}

// Client is the recipe backend API.
type Client interface {
	ListRecipes(ctx context.Context, params ListParams) (*RecipePage, error)
	SearchRecipes(ctx context.Context, query string, limit int) ([]recipe.Recipe, error)
	GetRecipe(ctx context.Context, id string) (*recipe.Recipe, error)
	HealthCheck(ctx context.Context) (*Health, error)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e envelope) message(fallback string) string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// httpClient is the concrete implementation of the recipe backend client.
type httpClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// Option customizes a client.
type Option func(*httpClient)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) { c.timeout = d }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.httpClient = hc }
}

// NewClient creates a new recipe backend client.
func NewClient(cfg *config.Config, opts ...Option) Client {
	c := &httpClient{
		baseURL:    strings.TrimRight(cfg.RecipeAPIURL, "/"),
		apiKey:     cfg.RecipeAPIKey,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRecipes fetches one page of recipes.
func (c *httpClient) ListRecipes(ctx context.Context, params ListParams) (*RecipePage, error) {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}

	env, err := c.get(ctx, opList, "/api/recipes", q)
	if err != nil {
		return nil, err
	}

	var recipes []recipe.Recipe
	if err := decodeData(env, &recipes); err != nil {
		return nil, &Error{Kind: KindUnknown, Op: opList, Endpoint: "/api/recipes", Status: http.StatusOK, Message: "invalid recipe list", Err: err}
	}

	return &RecipePage{Recipes: recipes, Total: env.Total, Limit: env.Limit, Offset: env.Offset}, nil
}

// SearchRecipes fetches recipes matching a free-text query.
func (c *httpClient) SearchRecipes(ctx context.Context, query string, limit int) ([]recipe.Recipe, error) {
	q := url.Values{}
	q.Set("search", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	env, err := c.get(ctx, opSearch, "/api/recipes", q)
	if err != nil {
		return nil, err
	}

	var recipes []recipe.Recipe
	if err := decodeData(env, &recipes); err != nil {
		return nil, &Error{Kind: KindUnknown, Op: opSearch, Endpoint: "/api/recipes", Status: http.StatusOK, Message: "invalid recipe list", Err: err}
	}
	return recipes, nil
}

// GetRecipe fetches one recipe. A 404 or an empty payload yields KindNotFound.
func (c *httpClient) GetRecipe(ctx context.Context, id string) (*recipe.Recipe, error) {
	endpoint := "/api/recipes/" + url.PathEscape(id)

	env, err := c.get(ctx, opGet, endpoint, nil)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			apiErr.Kind = KindNotFound
		}
		return nil, err
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &Error{Kind: KindNotFound, Op: opGet, Endpoint: endpoint, Status: http.StatusOK, Message: "recipe not found"}
	}

	var r recipe.Recipe
	if err := json.Unmarshal(env.Data, &r); err != nil {
		return nil, &Error{Kind: KindUnknown, Op: opGet, Endpoint: endpoint, Status: http.StatusOK, Message: "invalid recipe", Err: err}
	}
	return &r, nil
}

// HealthCheck fetches the backend health report.
func (c *httpClient) HealthCheck(ctx context.Context) (*Health, error) {
	env, err := c.get(ctx, opHealth, "/health", nil)
	if err != nil {
		return nil, err
	}

	var h Health
	if err := decodeData(env, &h); err != nil {
		return nil, &Error{Kind: KindUnknown, Op: opHealth, Endpoint: "/health", Status: http.StatusOK, Message: "invalid health report", Err: err}
	}
	return &h, nil
}

func decodeData(env *envelope, out interface{}) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// get issues one GET under the per-request timeout and unwraps the
// {success, data} envelope.
func (c *httpClient) get(ctx context.Context, op, endpoint string, query url.Values) (*envelope, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	fail := func(kind Kind, status int, msg string, err error) (*envelope, error) {
		return nil, &Error{Kind: kind, Op: op, Endpoint: endpoint, Status: status, Message: msg, Err: err}
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return fail(KindUnknown, 0, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		token, err := c.createToken()
		if err != nil {
			return fail(KindUnknown, 0, "failed to create api token", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ctx, reqCtx, fail, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, reqCtx, fail, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		if decodeErr == nil {
			msg = env.message(msg)
		}
		return fail(KindServerRejected, resp.StatusCode, msg, nil)
	}
	if decodeErr != nil {
		return fail(KindUnknown, resp.StatusCode, "invalid response body", decodeErr)
	}
	if !env.Success {
		return fail(KindServerRejected, resp.StatusCode, env.message(msgGeneric), nil)
	}
	return &env, nil
}

type failFunc func(kind Kind, status int, msg string, err error) (*envelope, error)

func (c *httpClient) transportError(parent, reqCtx context.Context, fail failFunc, err error) (*envelope, error) {
	if parent.Err() != nil {
		return nil, parent.Err()
	}
	var netErr net.Error
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fail(KindTimeout, 0, msgTimeout, err)
	}
	return fail(KindNetwork, 0, "network error: "+err.Error(), err)
}

// createToken generates a short-lived JWT from an "id:hexsecret" key.
func (c *httpClient) createToken() (string, error) {
	keyParts := strings.Split(c.apiKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid api key format: expected id:secret")
	}

	secret, err := hex.DecodeString(keyParts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "/api/",
	})
	token.Header["kid"] = keyParts[0]

	return token.SignedString(secret)
}
