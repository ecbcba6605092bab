package identitypb

import (
	"os"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readSchema(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(Identity_ServiceDesc.Metadata.(string))
	require.NoError(t, err)
	return string(b)
}

// messageFields returns the field names declared in message name.
func messageFields(t *testing.T, schema, name string) []string {
	t.Helper()
	re := regexp.MustCompile(`(?s)message ` + name + ` \{(.*?)\n\}`)
	m := re.FindStringSubmatch(schema)
	require.NotNil(t, m, "message %s not declared", name)

	var fields []string
	for _, f := range regexp.MustCompile(`(?m)^\s+\w+ (\w+) = \d+;`).FindAllStringSubmatch(m[1], -1) {
		fields = append(fields, f[1])
	}
	return fields
}

func jsonFields(v any) []string {
	var fields []string
	typ := reflect.TypeOf(v)
	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		fields = append(fields, name)
	}
	return fields
}

func TestSchema_DeclaresEveryMethod(t *testing.T) {
	schema := readSchema(t)

	assert.Contains(t, schema, "package identity.v1;")
	assert.Contains(t, schema, "service Identity {")
	for _, m := range Identity_ServiceDesc.Methods {
		assert.Contains(t, schema, "rpc "+m.MethodName+"(google.protobuf.Struct) returns (google.protobuf.Struct);")
	}
	for _, s := range Identity_ServiceDesc.Streams {
		assert.Contains(t, schema, "rpc "+s.StreamName+"(google.protobuf.Struct) returns (stream google.protobuf.Struct);")
	}
}

func TestSchema_MatchesMessageFields(t *testing.T) {
	schema := readSchema(t)

	tests := []struct {
		name string
		msg  any
	}{
		{"Empty", Empty{}},
		{"Credentials", Credentials{}},
		{"RefreshRequest", RefreshRequest{}},
		{"User", User{}},
		{"Session", Session{}},
		{"ProfileRequest", ProfileRequest{}},
		{"Profile", Profile{}},
		{"CreateUserRequest", CreateUserRequest{}},
		{"Event", Event{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if reflect.TypeOf(tt.msg).NumField() == 0 {
				assert.Contains(t, schema, "message "+tt.name+" {}")
				return
			}
			assert.Equal(t, jsonFields(tt.msg), messageFields(t, schema, tt.name))
		})
	}
}
