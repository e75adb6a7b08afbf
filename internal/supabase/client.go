package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client fala com o Supabase Auth (GoTrue) via REST
type Client struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	http           *resty.Client
}

type Config struct {
	BaseURL        string // ex.: https://<projeto>.supabase.co
	AnonKey        string
	ServiceRoleKey string
	Timeout        time.Duration
}

// Auth é o cliente usado pelos handlers; configurado em main
var Auth *Client

func NewClient(cfg Config) *Client {
	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.SetHeader("Content-Type", "application/json")
	return &Client{
		baseURL:        cfg.BaseURL,
		anonKey:        cfg.AnonKey,
		serviceRoleKey: cfg.ServiceRoleKey,
		http:           client,
	}
}

// APIError carrega o status e o corpo devolvidos pelo Supabase
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.StatusCode, e.Body)
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type signupResponse struct {
	// Sem confirmação por e-mail o usuário vem em "user", com confirmação vem na raiz
	ID   string `json:"id"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

// SignUp cria o usuário no Supabase Auth e devolve o seu ID
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (string, error) {
	var out signupResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("apikey", c.anonKey).
		SetBody(map[string]interface{}{"email": email, "password": password, "data": metadata}).
		SetResult(&out).
		Post(c.baseURL + "/auth/v1/signup")
	if err != nil {
		return "", fmt.Errorf("supabase signup: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	id := out.User.ID
	if id == "" {
		id = out.ID
	}
	if id == "" {
		return "", errors.New("supabase signup: nenhum ID de usuário retornado")
	}
	return id, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]string{"email": email, "password": password})
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (c *Client) token(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	var session Session
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("apikey", c.anonKey).
		SetQueryParam("grant_type", grantType).
		SetBody(body).
		SetResult(&session).
		Post(c.baseURL + "/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("supabase token (%s): %w", grantType, err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return &session, nil
}

// DeleteUser remove o usuário do Supabase Auth (requer a service role key)
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("apikey", c.serviceRoleKey).
		SetAuthToken(c.serviceRoleKey).
		Delete(c.baseURL + "/auth/v1/admin/users/" + userID)
	if err != nil {
		return fmt.Errorf("supabase delete user: %w", err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
