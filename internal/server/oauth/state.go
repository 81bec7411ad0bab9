package oauth

import (
	"encoding/base64"
	"encoding/json"

	"github.com/dmitrijs2005/ergoauth/internal/common"
)

// State is the blob carried through the provider's state parameter:
// the post-login destination and a nonce.
type State struct {
	Redirect string `json:"r"`
	Nonce    string `json:"n"`
}

// Encode renders the state as standard base64 of its JSON form.
func (s State) Encode() string {
	b, _ := json.Marshal(s)
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeState parses a state blob. Fields of the wrong type are left empty;
// ok is false only when the blob itself is not base64 JSON.
func DecodeState(raw string) (s State, ok bool) {
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return State{}, false
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return State{}, false
	}
	s.Redirect, _ = m["r"].(string)
	s.Nonce, _ = m["n"].(string)
	return s, true
}

// NewNonce returns a fresh random nonce.
func NewNonce() (string, error) {
	return common.MakeRandHexString(16)
}
