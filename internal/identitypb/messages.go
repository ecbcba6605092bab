package identitypb

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event types carried by WatchSession.
const (
	EventSignedOut = "SIGNED_OUT"
)

type Empty struct{}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

type ProfileRequest struct {
	ID string `json:"id"`
}

type Profile struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

// Encode converts v into a Struct through its JSON form. v must encode to
// a JSON object.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return structpb.NewStruct(m)
}

// MustEncode is Encode for values known to be encodable.
func MustEncode(v any) *structpb.Struct {
	s, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode fills v from s. A nil s decodes as an empty object.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
