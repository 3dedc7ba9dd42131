package token

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/velsand/tokengate/pkg/gate"
	"github.com/velsand/tokengate/pkg/model"
)

// RPCResolver resolves gate contracts against an Ethereum-style JSON-RPC
// endpoint using eth_call. Only the two standard views are encoded —
// balanceOf(address) and ownerOf(uint256) — because no other contract shape
// is accepted as a gate target.
type RPCResolver struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewRPCResolver(endpoint string, logger *slog.Logger) *RPCResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &RPCResolver{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

func (r *RPCResolver) Resolve(ctx context.Context, contract model.Address) (gate.TokenContract, error) {
	return &rpcContract{resolver: r, address: contract}, nil
}

var _ gate.Resolver = (*RPCResolver)(nil)

// Four-byte selectors of the accepted views, first bytes of
// keccak256(signature).
var (
	selectorBalanceOf = selector("balanceOf(address)")
	selectorOwnerOf   = selector("ownerOf(uint256)")
	selectorName      = selector("name()")
)

func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// word left-pads data into a 32-byte ABI word.
func word(data []byte) []byte {
	out := make([]byte, 32)
	copy(out[32-len(data):], data)
	return out
}

type rpcContract struct {
	resolver *RPCResolver
	address  model.Address
}

func (c *rpcContract) BalanceOf(ctx context.Context, addr model.Address) (*big.Int, error) {
	calldata := append(append([]byte{}, selectorBalanceOf...), word(addr[:])...)
	result, err := c.resolver.call(ctx, c.address, calldata)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(result), nil
}

func (c *rpcContract) OwnerOf(ctx context.Context, tokenID *big.Int) (model.Address, error) {
	calldata := append(append([]byte{}, selectorOwnerOf...), word(tokenID.Bytes())...)
	result, err := c.resolver.call(ctx, c.address, calldata)
	if err != nil {
		return model.Address{}, err
	}
	if len(result) < 32 {
		return model.Address{}, fmt.Errorf("ownerOf returned %d bytes, want 32", len(result))
	}
	var owner model.Address
	copy(owner[:], result[12:32])
	return owner, nil
}

// Name fetches the contract's display name. Contracts without name() yield
// an error the caller is free to ignore.
func (c *rpcContract) Name(ctx context.Context) (string, error) {
	result, err := c.resolver.call(ctx, c.address, selectorName)
	if err != nil {
		return "", err
	}
	// ABI-encoded string: offset word, length word, then the bytes.
	if len(result) < 64 {
		return "", fmt.Errorf("name() returned %d bytes", len(result))
	}
	length := new(big.Int).SetBytes(result[32:64]).Int64()
	if length < 0 || 64+length > int64(len(result)) {
		return "", fmt.Errorf("name() returned a malformed string")
	}
	return string(result[64 : 64+length]), nil
}

var _ gate.TokenContract = (*rpcContract)(nil)
var _ Named = (*rpcContract)(nil)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r *RPCResolver) call(ctx context.Context, to model.Address, calldata []byte) ([]byte, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params: []any{
			map[string]string{"to": to.Hex(), "data": "0x" + hex.EncodeToString(calldata)},
			"latest",
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rpc error: %s: %s", resp.Status, string(body))
	}
	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	return hex.DecodeString(strings.TrimPrefix(decoded.Result, "0x"))
}
