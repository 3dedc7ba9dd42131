package crypto

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// boxedMessage is the wire form of a sealed box:
//
//	TGATE[V:encrypterPublic:nonce:box]
//
// where V is the schema version and the three payload segments are base64.
// The format is printable so sealed values can travel inside JSON bodies
// and logs without further escaping.
type boxedMessage struct {
	SchemaVersion   int
	EncrypterPublic [32]byte
	Nonce           [24]byte
	Box             []byte
}

const wireLabel = "TGATE"

var wirePattern = regexp.MustCompile(`\A` + wireLabel + `\[\d+:[A-Za-z0-9+/=]{44}:[A-Za-z0-9+/=]{32}:[A-Za-z0-9+/=]+\]\z`)

// IsBoxedMessage reports whether data looks like a dumped boxedMessage.
func IsBoxedMessage(data []byte) bool {
	return wirePattern.Match(data)
}

func (b *boxedMessage) Dump() []byte {
	pub := base64.StdEncoding.EncodeToString(b.EncrypterPublic[:])
	nonce := base64.StdEncoding.EncodeToString(b.Nonce[:])
	body := base64.StdEncoding.EncodeToString(b.Box)
	return []byte(fmt.Sprintf("%s[%d:%s:%s:%s]", wireLabel, b.SchemaVersion, pub, nonce, body))
}

func (b *boxedMessage) Load(data []byte) error {
	s := string(data)
	if !strings.HasPrefix(s, wireLabel+"[") || !strings.HasSuffix(s, "]") {
		return fmt.Errorf("invalid message format: %q", truncated(s))
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, wireLabel+"["), "]")
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return fmt.Errorf("invalid message format: expected 4 segments, got %d", len(parts))
	}

	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("invalid schema version: %v", err)
	}
	b.SchemaVersion = version

	pub, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return err
	}
	if len(pub) != 32 {
		return fmt.Errorf("encrypter public key is %d bytes, want 32", len(pub))
	}
	copy(b.EncrypterPublic[:], pub)

	nonce, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return err
	}
	if len(nonce) != 24 {
		return fmt.Errorf("nonce is %d bytes, want 24", len(nonce))
	}
	copy(b.Nonce[:], nonce)

	b.Box, err = base64.StdEncoding.DecodeString(parts[3])
	return err
}

func truncated(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
