package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
)

func TestIsUserID(t *testing.T) {
	valid := []string{"U001", "Ua0000000000000000000000000000000", "user_id-1", strings.Repeat("a", 36)}
	for _, s := range valid {
		assert.True(t, IsUserID(s), s)
	}

	invalid := []string{"", strings.Repeat("a", 37), "has space", "日本語", "semi;colon"}
	for _, s := range invalid {
		assert.False(t, IsUserID(s), s)
	}
}

func TestIsMessage(t *testing.T) {
	assert.False(t, IsMessage(""))
	assert.False(t, IsMessage("a"))
	assert.True(t, IsMessage("hi"))
	assert.True(t, IsMessage("こん"))
	assert.True(t, IsMessage(strings.Repeat("あ", 5000)))
	assert.False(t, IsMessage(strings.Repeat("a", 5001)))
}

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID("f4f4d2ee-770f-4b6d-90c9-16cf918ae3be"))
	assert.False(t, IsUUID("not-a-uuid"))
}

func TestValidateRequestID(t *testing.T) {
	assert.NoError(t, ValidateRequestID("req_123-abc"))
	assert.NoError(t, ValidateRequestID(NewRequestID()))
	assert.NoError(t, ValidateRequestID(strings.Repeat("a", 255)))

	for _, s := range []string{"", "with space", "slash/", strings.Repeat("a", 256)} {
		err := ValidateRequestID(s)
		assert.ErrorIs(t, err, ports.ErrValidationFailed, s)
	}
	assert.ErrorContains(t, ValidateRequestID(strings.Repeat("a", 256)), "255")
}

func TestParseMessageRequest(t *testing.T) {
	req, params := ParseMessageRequest([]byte(`{"conversation_id": "f4f4d2ee-770f-4b6d-90c9-16cf918ae3be", "message": "hello"}`))
	require.Empty(t, params)
	assert.Equal(t, MessageRequest{ConversationID: "f4f4d2ee-770f-4b6d-90c9-16cf918ae3be", Message: "hello"}, req)

	req, params = ParseMessageRequest([]byte(`{"message": "hello"}`))
	require.Empty(t, params)
	assert.Empty(t, req.ConversationID)
}

func TestParseMessageRequest_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []InvalidParam
	}{
		{
			name: "missing message",
			body: `{}`,
			want: []InvalidParam{{Name: "message", Reason: "field required"}},
		},
		{
			name: "short message",
			body: `{"message": "a"}`,
			want: []InvalidParam{{Name: "message", Reason: "message must be at least 2 character and no more than 5,000 characters"}},
		},
		{
			name: "bad conversation id",
			body: `{"conversation_id": "abc", "message": "hello"}`,
			want: []InvalidParam{{Name: "conversation_id", Reason: "'abc' is not in UUID format"}},
		},
		{
			name: "not json",
			body: `{"message":`,
			want: []InvalidParam{{Name: "body", Reason: "request body is not valid JSON"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, params := ParseMessageRequest([]byte(tt.body))
			assert.Equal(t, tt.want, params)
		})
	}
}

func TestNewJSONValidator_BadSchema(t *testing.T) {
	_, err := NewJSONValidator(`{"type": 12}`)
	assert.Error(t, err)
}
