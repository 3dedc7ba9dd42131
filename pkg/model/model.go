// Package model holds the shared data model of the registry: addresses,
// ciphertext handles, gates and the secret records themselves.
package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a 20-byte caller or contract identity, rendered as 0x-prefixed
// lowercase hex on the wire.
type Address [20]byte

// ParseAddress parses a 0x-prefixed hex address.
func ParseAddress(s string) (Address, error) {
	var a Address
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return a, fmt.Errorf("address %q is missing the 0x prefix", s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %v", s, err)
	}
	if len(raw) != len(a) {
		return a, fmt.Errorf("address %q is %d bytes, want %d", s, len(raw), len(a))
	}
	copy(a[:], raw)
	return a, nil
}

func (a Address) Hex() string    { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) String() string { return a.Hex() }
func (a Address) IsZero() bool   { return a == Address{} }

// Short renders the address the way the UI shows it: 0x1234…abcd.
func (a Address) Short() string {
	h := a.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *Address) UnmarshalText(data []byte) error {
	parsed, err := ParseAddress(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Handle is a fixed-width 256-bit opaque reference to a ciphertext held by
// the relayer. It is meaningless without the input proof at creation time
// and without a valid decryption authorization at read time.
type Handle [32]byte

// ParseHandle parses a 0x-prefixed hex handle.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return h, fmt.Errorf("handle %q is missing the 0x prefix", s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return h, fmt.Errorf("invalid handle %q: %v", s, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("handle %q is %d bytes, want %d", s, len(raw), len(h))
	}
	copy(h[:], raw)
	return h, nil
}

func (h Handle) Hex() string    { return "0x" + hex.EncodeToString(h[:]) }
func (h Handle) String() string { return h.Hex() }
func (h Handle) IsZero() bool   { return h == Handle{} }

func (h Handle) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

func (h *Handle) UnmarshalText(data []byte) error {
	parsed, err := ParseHandle(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// SecretID identifies a secret. IDs are assigned densely from 0 in creation
// order and never reused.
type SecretID uint64

// Secret is the full registry record. ValueHandle references the encrypted
// 64-bit length field, DataHandle the encrypted 256-bit content field; both
// come from a single encrypted input and are never regenerated.
type Secret struct {
	ID          SecretID `json:"secretId"`
	Title       string   `json:"title"`
	ValueHandle Handle   `json:"valueHandle"`
	DataHandle  Handle   `json:"dataHandle"`
	Gate        Gate     `json:"-"`
	Creator     Address  `json:"creator"`
	Exists      bool     `json:"exists"`
}

// Info projects the public fields of a secret. Handles are deliberately
// absent; they are only reachable through the access-controlled path.
func (s Secret) Info() SecretInfo {
	return SecretInfo{
		ID:      s.ID,
		Title:   s.Title,
		Gate:    s.Gate,
		Creator: s.Creator,
		Exists:  s.Exists,
	}
}

// SecretInfo is the always-public projection of a secret.
type SecretInfo struct {
	ID      SecretID `json:"secretId"`
	Title   string   `json:"title"`
	Gate    Gate     `json:"-"`
	Creator Address  `json:"creator"`
	Exists  bool     `json:"exists"`
}

// The Gate interface cannot be unmarshalled generically, so both record
// types carry it through a tagged wire field.

type secretJSON struct {
	ID          SecretID        `json:"secretId"`
	Title       string          `json:"title"`
	ValueHandle Handle          `json:"valueHandle"`
	DataHandle  Handle          `json:"dataHandle"`
	Gate        json.RawMessage `json:"gate"`
	Creator     Address         `json:"creator"`
	Exists      bool            `json:"exists"`
}

func (s Secret) MarshalJSON() ([]byte, error) {
	gate, err := MarshalGate(s.Gate)
	if err != nil {
		return nil, err
	}
	return json.Marshal(secretJSON{
		ID:          s.ID,
		Title:       s.Title,
		ValueHandle: s.ValueHandle,
		DataHandle:  s.DataHandle,
		Gate:        gate,
		Creator:     s.Creator,
		Exists:      s.Exists,
	})
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	var raw secretJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	gate, err := UnmarshalGate(raw.Gate)
	if err != nil {
		return err
	}
	*s = Secret{
		ID:          raw.ID,
		Title:       raw.Title,
		ValueHandle: raw.ValueHandle,
		DataHandle:  raw.DataHandle,
		Gate:        gate,
		Creator:     raw.Creator,
		Exists:      raw.Exists,
	}
	return nil
}

type secretInfoJSON struct {
	ID      SecretID        `json:"secretId"`
	Title   string          `json:"title"`
	Gate    json.RawMessage `json:"gate"`
	Creator Address         `json:"creator"`
	Exists  bool            `json:"exists"`
}

func (s SecretInfo) MarshalJSON() ([]byte, error) {
	gate, err := MarshalGate(s.Gate)
	if err != nil {
		return nil, err
	}
	return json.Marshal(secretInfoJSON{
		ID:      s.ID,
		Title:   s.Title,
		Gate:    gate,
		Creator: s.Creator,
		Exists:  s.Exists,
	})
}

func (s *SecretInfo) UnmarshalJSON(data []byte) error {
	var raw secretInfoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	gate, err := UnmarshalGate(raw.Gate)
	if err != nil {
		return err
	}
	*s = SecretInfo{
		ID:      raw.ID,
		Title:   raw.Title,
		Gate:    gate,
		Creator: raw.Creator,
		Exists:  raw.Exists,
	}
	return nil
}
