// Package client implements the HTTP client for the registry and relayer
// API. Mutating calls are signed with the wallet; the signature travels in
// request headers and covers method, path, timestamp and body.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/velsand/tokengate"
	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/relayer"
	"github.com/velsand/tokengate/pkg/session"
	"github.com/velsand/tokengate/pkg/wallet"
)

// APIClient talks to a tokengate server. It implements the session's
// RegistryClient surface and the relayer Service surface, so a remote server
// is interchangeable with the in-process pieces.
type APIClient struct {
	ServerURL  *url.URL
	HTTPClient *http.Client
	Logger     *slog.Logger
	Signer     wallet.Signer
}

// ClientConfig holds configuration for creating a new APIClient.
type ClientConfig struct {
	ServerURL string
	Signer    wallet.Signer
	Logger    *slog.Logger
}

// NewAPIClient creates a new API client instance.
func NewAPIClient(config ClientConfig) (*APIClient, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	serverURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if config.Signer == nil {
		config.Logger.Warn("no wallet configured, signed operations will fail")
	}
	return &APIClient{
		ServerURL:  serverURL,
		HTTPClient: &http.Client{},
		Logger:     config.Logger,
		Signer:     config.Signer,
	}, nil
}

// do sends one request and decodes the JSON response into out (when out is
// non-nil). When signed is set the request carries wallet auth headers.
func (c *APIClient) do(ctx context.Context, method, path string, body, out any, signed bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	endpoint := c.ServerURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		if c.Signer == nil {
			return fmt.Errorf("this operation requires a wallet")
		}
		ts := time.Now().Unix()
		digest := wallet.RequestDigest(method, path, ts, payload)
		sig, err := c.Signer.SignDigest(digest)
		if err != nil {
			return err
		}
		req.Header.Set("X-Tokengate-Address", c.Signer.Address().Hex())
		req.Header.Set("X-Tokengate-Public-Key", c.Signer.PublicKeyHex())
		req.Header.Set("X-Tokengate-Signature", base64.StdEncoding.EncodeToString(sig))
		req.Header.Set("X-Tokengate-Timestamp", fmt.Sprintf("%d", ts))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error: %s: %s", resp.Status, strings.TrimSpace(string(respBytes)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// RegistryAddress fetches the registry identity used for proof binding and
// authorization scoping.
func (c *APIClient) RegistryAddress(ctx context.Context) (model.Address, error) {
	var resp struct {
		Address model.Address `json:"address"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/registry", nil, &resp, false); err != nil {
		return model.Address{}, err
	}
	return resp.Address, nil
}

// ServiceKey fetches the relayer's box public key.
func (c *APIClient) ServiceKey(ctx context.Context) ([32]byte, error) {
	var resp struct {
		PublicKey string `json:"publicKey"`
	}
	var key [32]byte
	if err := c.do(ctx, http.MethodGet, "/api/v1/relayer/key", nil, &resp, false); err != nil {
		return key, err
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(resp.PublicKey, "0x"))
	if err != nil || len(raw) != 32 {
		return key, fmt.Errorf("server returned a malformed relayer key")
	}
	copy(key[:], raw)
	return key, nil
}

// RegisterInput submits sealed ciphertexts to the relayer. The signer must
// be this client's wallet; the server binds the bundle to the authenticated
// caller.
func (c *APIClient) RegisterInput(ctx context.Context, contract, signer model.Address, ciphertexts [][]byte) ([]model.Handle, []byte, error) {
	if c.Signer != nil && signer != c.Signer.Address() {
		return nil, nil, fmt.Errorf("input signer must be the client wallet")
	}
	encoded := make([]string, 0, len(ciphertexts))
	for _, ct := range ciphertexts {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(ct))
	}
	var resp struct {
		Handles    []model.Handle `json:"handles"`
		InputProof []byte         `json:"inputProof"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/relayer/inputs",
		map[string]any{"ciphertexts": encoded}, &resp, true)
	if err != nil {
		return nil, nil, err
	}
	return resp.Handles, resp.InputProof, nil
}

// UserDecrypt submits a signed decryption authorization and returns the
// values re-sealed to the authorization's session key.
func (c *APIClient) UserDecrypt(ctx context.Context, req relayer.UserDecryptRequest) (map[model.Handle][]byte, error) {
	var resp struct {
		Values map[string]string `json:"values"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/relayer/decrypt", req, &resp, false); err != nil {
		return nil, err
	}
	out := make(map[model.Handle][]byte, len(resp.Values))
	for handleHex, encoded := range resp.Values {
		handle, err := model.ParseHandle(handleHex)
		if err != nil {
			return nil, fmt.Errorf("server returned a malformed handle: %w", err)
		}
		box, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("server returned a malformed value: %w", err)
		}
		out[handle] = box
	}
	return out, nil
}

// CreateSecret runs the whole client-side creation flow: encode the text,
// seal it to the relayer, register the input bundle and create the secret.
func (c *APIClient) CreateSecret(ctx context.Context, title, text string, g model.Gate) (model.SecretID, error) {
	if c.Signer == nil {
		return 0, fmt.Errorf("this operation requires a wallet")
	}
	content, err := tokengate.EncodeSecretText(text)
	if err != nil {
		return 0, err
	}
	registryAddr, err := c.RegistryAddress(ctx)
	if err != nil {
		return 0, err
	}
	relayerKey, err := c.ServiceKey(ctx)
	if err != nil {
		return 0, err
	}
	handles, proof, err := relayer.NewInputBuilder(relayerKey, registryAddr, c.Signer.Address()).
		Add64(uint64(len(text))).
		Add256(content).
		Encrypt(ctx, c)
	if err != nil {
		return 0, err
	}

	gateWire, err := model.MarshalGate(g)
	if err != nil {
		return 0, err
	}
	var resp struct {
		SecretID model.SecretID `json:"secretId"`
	}
	err = c.do(ctx, http.MethodPost, "/api/v1/secrets", map[string]any{
		"title":       title,
		"valueHandle": handles[0],
		"dataHandle":  handles[1],
		"gate":        json.RawMessage(gateWire),
		"inputProof":  proof,
	}, &resp, true)
	if err != nil {
		return 0, err
	}
	return resp.SecretID, nil
}

// ListSecrets fetches public projections of every secret, in registry order.
func (c *APIClient) ListSecrets(ctx context.Context) ([]model.SecretInfo, error) {
	var infos []model.SecretInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/secrets", nil, &infos, false); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetSecretInfo fetches one secret's public projection.
func (c *APIClient) GetSecretInfo(ctx context.Context, id model.SecretID) (model.SecretInfo, error) {
	var info model.SecretInfo
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/secrets/%d", id), nil, &info, false)
	return info, err
}

// GetSecretsCount fetches the total number of secrets.
func (c *APIClient) GetSecretsCount(ctx context.Context) (uint64, error) {
	var resp struct {
		Count uint64 `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/secrets/count", nil, &resp, false)
	return resp.Count, err
}

// UpdateGate swaps the gate of a secret this wallet created.
func (c *APIClient) UpdateGate(ctx context.Context, id model.SecretID, g model.Gate) error {
	gateWire, err := model.MarshalGate(g)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/secrets/%d/gate", id),
		map[string]any{"gate": json.RawMessage(gateWire)}, nil, true)
}

// RequestPermanentAccess asks for a permanent grant on the secret.
func (c *APIClient) RequestPermanentAccess(ctx context.Context, id model.SecretID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/secrets/%d/access", id), nil, nil, true)
}

// HasAccess reports whether this wallet can read the secret.
func (c *APIClient) HasAccess(ctx context.Context, id model.SecretID) (bool, error) {
	return c.HasAccessFor(ctx, id, c.walletAddress())
}

// HasAccessFor reports whether addr can read the secret.
func (c *APIClient) HasAccessFor(ctx context.Context, id model.SecretID, addr model.Address) (bool, error) {
	var resp struct {
		HasAccess bool `json:"hasAccess"`
	}
	err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/api/v1/secrets/%d/access/%s", id, addr.Hex()), nil, &resp, false)
	return resp.HasAccess, err
}

// PermanentAccess reads the raw grant table for addr.
func (c *APIClient) PermanentAccess(ctx context.Context, id model.SecretID, addr model.Address) (bool, error) {
	var resp struct {
		Granted bool `json:"granted"`
	}
	err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/api/v1/secrets/%d/grant/%s", id, addr.Hex()), nil, &resp, false)
	return resp.Granted, err
}

// MeetsGateRequirement evaluates the secret's gate for addr.
func (c *APIClient) MeetsGateRequirement(ctx context.Context, id model.SecretID, addr model.Address) (bool, error) {
	var resp struct {
		MeetsGate bool `json:"meetsGate"`
	}
	err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/api/v1/secrets/%d/gate-check/%s", id, addr.Hex()), nil, &resp, false)
	return resp.MeetsGate, err
}

// GetSecretHandles fetches the ciphertext handles of a secret this wallet
// can read.
func (c *APIClient) GetSecretHandles(ctx context.Context, id model.SecretID) (value, data model.Handle, err error) {
	var resp struct {
		ValueHandle model.Handle `json:"valueHandle"`
		DataHandle  model.Handle `json:"dataHandle"`
	}
	err = c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/secrets/%d/handles", id), nil, &resp, true)
	return resp.ValueHandle, resp.DataHandle, err
}

func (c *APIClient) walletAddress() model.Address {
	if c.Signer == nil {
		return model.Address{}
	}
	return c.Signer.Address()
}

var (
	_ session.RegistryClient = (*APIClient)(nil)
	_ relayer.Service        = (*APIClient)(nil)
)
