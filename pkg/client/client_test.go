package client

import (
	"context"
	"log/slog"
	"math/big"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/velsand/tokengate/pkg/gate"
	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/registry"
	"github.com/velsand/tokengate/pkg/relayer"
	"github.com/velsand/tokengate/pkg/session"
	"github.com/velsand/tokengate/pkg/token"
	"github.com/velsand/tokengate/pkg/wallet"
	"github.com/velsand/tokengate/server"
	"github.com/velsand/tokengate/server/stores"
)

func addr(last byte) model.Address {
	var a model.Address
	a[19] = last
	return a
}

type testEnv struct {
	ts     *httptest.Server
	ledger *token.Static
	nft    model.Address
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	rel, err := relayer.New(nil)
	assert.NoError(t, err)
	ledger := token.NewStatic()
	nft := addr(0x10)
	ledger.Register(nft, "MockNFT")
	reg := registry.New(addr(0xff), stores.NewMemory(), rel, rel, gate.NewEvaluator(ledger), nil)

	srv := server.NewServer()
	srv.UseDefaultMiddleware(slog.Default())
	srv.AddRoutes(server.NewHandler(reg, rel, nil))

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, ledger: ledger, nft: nft}
}

func (e *testEnv) client(t *testing.T, signer wallet.Signer) *APIClient {
	t.Helper()
	parsed, err := url.Parse(e.ts.URL)
	assert.NoError(t, err)
	return &APIClient{
		ServerURL:  parsed,
		HTTPClient: e.ts.Client(),
		Logger:     slog.Default(),
		Signer:     signer,
	}
}

func TestCreateAndListSecrets(t *testing.T) {
	env := setupTestServer(t)
	creator, err := wallet.Generate()
	assert.NoError(t, err)
	c := env.client(t, creator)

	id, err := c.CreateSecret(context.Background(), "first", "hello", model.AnyNFT{Contract: env.nft})
	assert.NoError(t, err)
	assert.Equal(t, model.SecretID(0), id)

	id, err = c.CreateSecret(context.Background(), "second", "world", model.MinBalance{Contract: env.nft, Minimum: big.NewInt(5)})
	assert.NoError(t, err)
	assert.Equal(t, model.SecretID(1), id)

	infos, err := c.ListSecrets(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(infos))
	assert.Equal(t, "first", infos[0].Title)
	assert.Equal(t, model.GateAnyNFT, infos[0].Gate.Kind())
	assert.Equal(t, model.GateMinBalance, infos[1].Gate.Kind())
	assert.Equal(t, creator.Address(), infos[0].Creator)

	count, err := c.GetSecretsCount(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	info, err := c.GetSecretInfo(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, "second", info.Title)

	_, err = c.GetSecretInfo(context.Background(), 99)
	assert.Error(t, err)
}

func TestCreateSecretRequiresWallet(t *testing.T) {
	env := setupTestServer(t)
	c := env.client(t, nil)

	_, err := c.CreateSecret(context.Background(), "nope", "text", model.AnyNFT{Contract: env.nft})
	assert.Error(t, err)
}

func TestCreateSecretRejectsOversizedText(t *testing.T) {
	env := setupTestServer(t)
	creator, err := wallet.Generate()
	assert.NoError(t, err)
	c := env.client(t, creator)

	long := "this plaintext is far longer than the thirty-one byte cap"
	_, err = c.CreateSecret(context.Background(), "too long", long, model.AnyNFT{Contract: env.nft})
	assert.Error(t, err)
}

func TestAccessAndDecryptOverHTTP(t *testing.T) {
	env := setupTestServer(t)
	creator, err := wallet.Generate()
	assert.NoError(t, err)
	holder, err := wallet.Generate()
	assert.NoError(t, err)
	env.ledger.Register(env.nft, "MockNFT").Mint(holder.Address(), big.NewInt(1))

	creatorClient := env.client(t, creator)
	id, err := creatorClient.CreateSecret(context.Background(), "club", "members only", model.AnyNFT{Contract: env.nft})
	assert.NoError(t, err)

	holderClient := env.client(t, holder)

	ok, err := holderClient.HasAccess(context.Background(), id)
	assert.NoError(t, err)
	assert.False(t, ok)

	meets, err := holderClient.MeetsGateRequirement(context.Background(), id, holder.Address())
	assert.NoError(t, err)
	assert.True(t, meets)

	s := session.New(holderClient, holderClient, holder, session.Options{
		PollInterval: time.Millisecond,
		PollAttempts: 3,
		SettleDelay:  time.Millisecond,
	})
	text, err := s.Decrypt(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, "members only", text)

	granted, err := holderClient.PermanentAccess(context.Background(), id, holder.Address())
	assert.NoError(t, err)
	assert.True(t, granted)
}

func TestDecryptDeniedOverHTTP(t *testing.T) {
	env := setupTestServer(t)
	creator, err := wallet.Generate()
	assert.NoError(t, err)
	stranger, err := wallet.Generate()
	assert.NoError(t, err)

	creatorClient := env.client(t, creator)
	id, err := creatorClient.CreateSecret(context.Background(), "club", "members only", model.AnyNFT{Contract: env.nft})
	assert.NoError(t, err)

	strangerClient := env.client(t, stranger)
	s := session.New(strangerClient, strangerClient, stranger, session.Options{
		PollInterval: time.Millisecond,
		PollAttempts: 2,
		SettleDelay:  time.Millisecond,
	})
	_, err = s.Decrypt(context.Background(), id)
	assert.IsError(t, err, model.ErrGateRequirementNotMet)
}

func TestUpdateGateOverHTTP(t *testing.T) {
	env := setupTestServer(t)
	creator, err := wallet.Generate()
	assert.NoError(t, err)
	other, err := wallet.Generate()
	assert.NoError(t, err)

	c := env.client(t, creator)
	id, err := c.CreateSecret(context.Background(), "mutable", "text", model.AnyNFT{Contract: env.nft})
	assert.NoError(t, err)

	err = env.client(t, other).UpdateGate(context.Background(), id, model.SpecificNFT{Contract: env.nft, TokenID: big.NewInt(1)})
	assert.Error(t, err)

	assert.NoError(t, c.UpdateGate(context.Background(), id, model.SpecificNFT{Contract: env.nft, TokenID: big.NewInt(1)}))
	info, err := c.GetSecretInfo(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, model.GateSpecificNFT, info.Gate.Kind())
}

func TestHandlesRequireSignature(t *testing.T) {
	env := setupTestServer(t)
	creator, err := wallet.Generate()
	assert.NoError(t, err)
	c := env.client(t, creator)

	id, err := c.CreateSecret(context.Background(), "sealed", "text", model.AnyNFT{Contract: env.nft})
	assert.NoError(t, err)

	_, _, err = env.client(t, nil).GetSecretHandles(context.Background(), id)
	assert.Error(t, err)

	value, data, err := c.GetSecretHandles(context.Background(), id)
	assert.NoError(t, err)
	assert.False(t, value.IsZero())
	assert.False(t, data.IsZero())
}
