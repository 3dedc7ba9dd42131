// Package server exposes the registry and relayer over JSON HTTP. Reads are
// public; mutations and handle reads require a signed request, and the
// decrypt endpoint is authorized by the signed payload it carries.
package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/registry"
	"github.com/velsand/tokengate/pkg/relayer"
	"github.com/velsand/tokengate/server/middleware"
)

type Handler struct {
	Registry *registry.Registry
	Relayer  *relayer.Relayer
	logger   *slog.Logger
}

func NewHandler(reg *registry.Registry, rel *relayer.Relayer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Registry: reg, Relayer: rel, logger: logger}
}

// writeError maps the error taxonomy onto HTTP status codes. The response
// body carries the classified, truncated message only.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	classified := model.Classify(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(classified, model.ErrSecretNotFound):
		status = http.StatusNotFound
	case errors.Is(classified, model.ErrNotCreator),
		errors.Is(classified, model.ErrAccessDenied),
		errors.Is(classified, model.ErrGateRequirementNotMet):
		status = http.StatusForbidden
	case errors.Is(classified, model.ErrInvalidCiphertext):
		status = http.StatusBadRequest
	case errors.Is(classified, model.ErrSignatureRejected):
		status = http.StatusUnauthorized
	case errors.Is(classified, model.ErrDecryptionService):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		h.logger.Error("request failed", "error", err)
	}
	http.Error(w, model.Truncate(classified.Error()), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) (model.SecretID, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, model.ErrSecretNotFound
	}
	return model.SecretID(id), nil
}

func pathAddr(r *http.Request) (model.Address, error) {
	return model.ParseAddress(r.PathValue("addr"))
}

// RegistryInfo handles GET /api/v1/registry
func (h *Handler) RegistryInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"address": h.Registry.Address().Hex(),
	})
}

type createSecretRequest struct {
	Title       string          `json:"title"`
	ValueHandle model.Handle    `json:"valueHandle"`
	DataHandle  model.Handle    `json:"dataHandle"`
	Gate        json.RawMessage `json:"gate"`
	InputProof  []byte          `json:"inputProof"`
}

// CreateSecret handles POST /api/v1/secrets
func (h *Handler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var req createSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	gate, err := model.UnmarshalGate(req.Gate)
	if err != nil {
		http.Error(w, "invalid gate: "+model.Truncate(err.Error()), http.StatusBadRequest)
		return
	}
	id, err := h.Registry.CreateSecret(r.Context(), caller, registry.CreateParams{
		Title:       req.Title,
		ValueHandle: req.ValueHandle,
		DataHandle:  req.DataHandle,
		Gate:        gate,
		InputProof:  req.InputProof,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"secretId": id})
}

// ListSecrets handles GET /api/v1/secrets
func (h *Handler) ListSecrets(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Registry.GetAllSecrets(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// SecretsCount handles GET /api/v1/secrets/count
func (h *Handler) SecretsCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Registry.GetSecretsCount(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": count})
}

// GetSecret handles GET /api/v1/secrets/{id}
func (h *Handler) GetSecret(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	info, err := h.Registry.GetSecretInfo(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type updateGateRequest struct {
	Gate json.RawMessage `json:"gate"`
}

// UpdateGate handles PUT /api/v1/secrets/{id}/gate
func (h *Handler) UpdateGate(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req updateGateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	gate, err := model.UnmarshalGate(req.Gate)
	if err != nil {
		http.Error(w, "invalid gate: "+model.Truncate(err.Error()), http.StatusBadRequest)
		return
	}
	if err := h.Registry.UpdateGate(r.Context(), caller, id, gate); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// RequestAccess handles POST /api/v1/secrets/{id}/access
func (h *Handler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Registry.RequestPermanentAccess(r.Context(), caller, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HasAccess handles GET /api/v1/secrets/{id}/access/{addr}
func (h *Handler) HasAccess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	addr, err := pathAddr(r)
	if err != nil {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	ok, err := h.Registry.HasAccess(r.Context(), id, addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasAccess": ok})
}

// PermanentAccess handles GET /api/v1/secrets/{id}/grant/{addr}
func (h *Handler) PermanentAccess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	addr, err := pathAddr(r)
	if err != nil {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	granted, err := h.Registry.PermanentAccess(r.Context(), id, addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"granted": granted})
}

// GateCheck handles GET /api/v1/secrets/{id}/gate-check/{addr}
func (h *Handler) GateCheck(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	addr, err := pathAddr(r)
	if err != nil {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	meets, err := h.Registry.MeetsGateRequirement(r.Context(), id, addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"meetsGate": meets})
}

// SecretHandles handles GET /api/v1/secrets/{id}/handles
func (h *Handler) SecretHandles(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	value, data, err := h.Registry.GetSecretHandles(r.Context(), caller, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Handle{
		"valueHandle": value,
		"dataHandle":  data,
	})
}

// RelayerKey handles GET /api/v1/relayer/key
func (h *Handler) RelayerKey(w http.ResponseWriter, r *http.Request) {
	key := h.Relayer.PublicKey()
	writeJSON(w, http.StatusOK, map[string]string{
		"publicKey": "0x" + encodeHex(key[:]),
	})
}

type registerInputsRequest struct {
	Ciphertexts []string `json:"ciphertexts"` // base64
}

type registerInputsResponse struct {
	Handles    []model.Handle `json:"handles"`
	InputProof []byte         `json:"inputProof"`
}

// RegisterInputs handles POST /api/v1/relayer/inputs. The signer of the
// bundle is the authenticated caller; the contract scope is the registry.
func (h *Handler) RegisterInputs(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var req registerInputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	ciphertexts := make([][]byte, 0, len(req.Ciphertexts))
	for _, encoded := range req.Ciphertexts {
		ct, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			http.Error(w, "invalid ciphertext encoding", http.StatusBadRequest)
			return
		}
		ciphertexts = append(ciphertexts, ct)
	}
	handles, proof, err := h.Relayer.RegisterInput(r.Context(), h.Registry.Address(), caller, ciphertexts)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerInputsResponse{Handles: handles, InputProof: proof})
}

// UserDecrypt handles POST /api/v1/relayer/decrypt. The payload carries its
// own signed authorization, so no request signature is required.
func (h *Handler) UserDecrypt(w http.ResponseWriter, r *http.Request) {
	var req relayer.UserDecryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	sealed, err := h.Relayer.UserDecrypt(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make(map[string]string, len(sealed))
	for handle, box := range sealed {
		out[handle.Hex()] = base64.StdEncoding.EncodeToString(box)
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": out})
}
