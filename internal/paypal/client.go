// Package paypal implémente le client de la passerelle de paiement :
// acquisition/cache du jeton OAuth, création d'ordre, capture et
// remboursement. Chaque appel sortant porte une clé d'idempotence unique
// par tentative et est journalisé avec sa latence.
//
// Le client ne ré-essaie jamais de lui-même : la politique de retry
// appartient à l'appelant (et pour la capture, elle est volontairement
// absente — un échec de capture est un cul-de-sac).
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrAuth — identifiants absents ou rejetés par la passerelle
	ErrAuth = errors.New("identifiants PayPal non configurés ou rejetés")

	// ErrTransport — échec réseau avant/pendant l'appel ; classe ré-essayable,
	// à distinguer des refus métier de la passerelle qui sont terminaux
	ErrTransport = errors.New("erreur transport passerelle PayPal")
)

// Result — résultat structuré d'un appel passerelle. Les refus métier
// (fonds insuffisants…) arrivent ici avec Success=false, jamais en error.
type Result struct {
	Success     bool
	ID          string
	ErrorDetail string
}

// Gateway — frontière consommée par le moteur de cycle de vie
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (Result, error)
	CaptureOrder(ctx context.Context, gatewayOrderID string) (Result, error)
	RefundCapture(ctx context.Context, captureID string, amount decimal.Decimal) (Result, error)
}

// tokenSkew — on rafraîchit le jeton ~60s avant son expiration réelle
const tokenSkew = 60 * time.Second

type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string

	mu          sync.RWMutex
	accessToken string
	tokenExpiry time.Time
	sf          singleflight.Group
}

// NewClient construit le client depuis l'environnement
// (PAYPAL_CLIENT_ID, PAYPAL_CLIENT_SECRET, PAYPAL_API_URL)
func NewClient() *Client {
	apiURL := os.Getenv("PAYPAL_API_URL")
	if apiURL == "" {
		apiURL = "https://api-m.sandbox.paypal.com"
	}
	return NewClientWith(apiURL, os.Getenv("PAYPAL_CLIENT_ID"), os.Getenv("PAYPAL_CLIENT_SECRET"), nil)
}

func NewClientWith(baseURL, clientID, clientSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// getAccessToken retourne le jeton en cache ou le rafraîchit sous garde
// single-flight — deux expirations concurrentes ne déclenchent qu'une requête.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		token := c.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.sf.Do("token", func() (any, error) {
		return c.fetchAccessToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) fetchAccessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrAuth
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ Jeton PayPal refusé (%d): %s", resp.StatusCode, body)
		return "", fmt.Errorf("%w: statut %d", ErrAuth, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("décodage jeton: %w", err)
	}

	c.mu.Lock()
	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenSkew)
	c.mu.Unlock()

	log.Println("✅ Jeton d'accès PayPal obtenu")
	return tokenResp.AccessToken, nil
}

// call fait exactement un appel sortant authentifié et journalise
// clé d'idempotence + latence pour l'audit
func (c *Client) call(ctx context.Context, method, path, idempotencyKey string, payload any) (int, []byte, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	var bodyReader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("PayPal-Request-Id", idempotencyKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("❌ Appel PayPal %s échoué après %.2fs (clé %s): %v", path, elapsed.Seconds(), idempotencyKey, err)
		return 0, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	log.Printf("💳 PayPal %s %s → %d en %.2fs (clé %s)", method, path, resp.StatusCode, elapsed.Seconds(), idempotencyKey)
	return resp.StatusCode, body, nil
}

// CreateOrder crée un ordre passerelle pour le montant donné
// (intent CAPTURE, montant en chaîne à deux décimales)
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (Result, error) {
	transactionID := uuid.NewString()

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"reference_id": transactionID,
				"amount": map[string]string{
					"currency_code": currency,
					"value":         amount.StringFixed(2),
				},
			},
		},
	}

	status, body, err := c.call(ctx, http.MethodPost, "/v2/checkout/orders", transactionID, payload)
	if err != nil {
		return Result{}, err
	}

	if status < 200 || status >= 300 {
		// refus métier de la passerelle — terminal pour cet appel
		return Result{ErrorDetail: string(body)}, nil
	}

	var orderResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return Result{}, fmt.Errorf("décodage ordre PayPal: %w", err)
	}

	log.Printf("✅ Ordre PayPal créé: %s (transaction %s)", orderResp.ID, transactionID)
	return Result{Success: true, ID: orderResp.ID}, nil
}

// CaptureOrder capture un ordre approuvé et retourne l'identifiant de capture
func (c *Client) CaptureOrder(ctx context.Context, gatewayOrderID string) (Result, error) {
	idempotencyKey := uuid.NewString()

	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", gatewayOrderID)
	status, body, err := c.call(ctx, http.MethodPost, path, idempotencyKey, nil)
	if err != nil {
		return Result{}, err
	}

	if status < 200 || status >= 300 {
		log.Printf("❌ Capture refusée pour %s (clé %s): %s", gatewayOrderID, idempotencyKey, body)
		return Result{ErrorDetail: string(body)}, nil
	}

	var captureResp struct {
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID string `json:"id"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.Unmarshal(body, &captureResp); err != nil {
		return Result{}, fmt.Errorf("décodage capture PayPal: %w", err)
	}
	if len(captureResp.PurchaseUnits) == 0 || len(captureResp.PurchaseUnits[0].Payments.Captures) == 0 {
		return Result{ErrorDetail: "réponse capture sans identifiant"}, nil
	}

	captureID := captureResp.PurchaseUnits[0].Payments.Captures[0].ID
	log.Printf("✅ Paiement capturé: %s (clé %s)", captureID, idempotencyKey)
	return Result{Success: true, ID: captureID}, nil
}

// RefundCapture rembourse une capture, montant en chaîne à deux décimales
func (c *Client) RefundCapture(ctx context.Context, captureID string, amount decimal.Decimal) (Result, error) {
	idempotencyKey := uuid.NewString()

	payload := map[string]any{
		"amount": map[string]string{
			"value":         amount.StringFixed(2),
			"currency_code": "USD",
		},
	}

	path := fmt.Sprintf("/v2/payments/captures/%s/refund", captureID)
	status, body, err := c.call(ctx, http.MethodPost, path, idempotencyKey, payload)
	if err != nil {
		return Result{}, err
	}

	if status < 200 || status >= 300 {
		log.Printf("❌ Remboursement refusé pour %s (clé %s): %s", captureID, idempotencyKey, body)
		return Result{ErrorDetail: string(body)}, nil
	}

	var refundResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &refundResp); err != nil {
		return Result{}, fmt.Errorf("décodage remboursement PayPal: %w", err)
	}

	log.Printf("💰 Capture remboursée: %s (remboursement %s, clé %s)", captureID, refundResp.ID, idempotencyKey)
	return Result{Success: true, ID: refundResp.ID}, nil
}
