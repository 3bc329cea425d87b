package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/teams-newsbot/internal/logging"
)

func newTestServer(t *testing.T) (*Server, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var main, special bytes.Buffer
	mainLog := logging.NewWriterLogger(&main, "info")
	specialLog := logging.NewWriterLogger(&special, "info")
	t.Cleanup(func() {
		_ = mainLog.Close()
		_ = specialLog.Close()
	})

	s := New(Config{Port: 0, Log: mainLog, SpecialLog: specialLog})
	return s, &main, &special
}

func flush(s *Server) {
	s.log.Flush()
	s.specialLog.Flush()
}

func TestHandleAny_AlwaysHello(t *testing.T) {
	s, main, _ := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/any/path?x=1", strings.NewReader(`{"a":1}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, method)
		assert.Equal(t, "hello", rec.Body.String())
	}

	flush(s)
	out := main.String()
	assert.Contains(t, out, "[REQ_UNKN] 000001 - GET")
	assert.Contains(t, out, "[REQ_UNKN] 000004 - DELETE")
	assert.Contains(t, out, "/any/path?x=1")
	assert.Contains(t, out, "BODY: Non-JSON response")
}

func TestHandleAny_ChatAIGoesToSpecialLog(t *testing.T) {
	s, main, special := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"messages":[{"role":"user","content":"secret"}],"is_alt":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	flush(s)
	assert.Contains(t, special.String(), "[REQ_CHAT] 000001")
	assert.Contains(t, special.String(), "(messages is confidential)")
	assert.NotContains(t, special.String(), "secret")
	assert.NotContains(t, main.String(), "[REQ_CHAT]")
	assert.Contains(t, main.String(), "[RESP] 000001 - 200")
}

func TestRequestCounter_Concurrent(t *testing.T) {
	var c RequestCounter
	var wg sync.WaitGroup
	seen := sync.Map{}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(c.Next(), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()

	assert.Equal(t, "000101", c.Next())
}

func TestClientAppName(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		referer     string
		expected    string
	}{
		{name: "explicit client name", contentType: "application/json", body: `{"client_name":"mytool","query":"q"}`, expected: "mytool"},
		{name: "query key", contentType: "application/json", body: `{"query":"q"}`, expected: ClientChromeAI},
		{name: "messages key", contentType: "application/json", body: `{"messages":[]}`, expected: ClientChatAI},
		{name: "chatai referer", contentType: "application/json", body: `{}`, referer: "https://chatai.example.com", expected: ClientChatAI},
		{name: "not json content type", contentType: "text/plain", body: `{"query":"q"}`, expected: ClientUnknown},
		{name: "malformed json", contentType: "application/json", body: `{`, expected: ClientUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClientAppName(tt.contentType, []byte(tt.body), tt.referer))
		})
	}
}

func TestParseAndTruncateBody(t *testing.T) {
	long := strings.Repeat("a", 150)

	t.Run("truncates long alphanumeric values", func(t *testing.T) {
		out, confidential := ParseAndTruncateBody([]byte(`{"token":"`+long+`","short":"abc"}`), false)
		assert.False(t, confidential)
		assert.Contains(t, out, strings.Repeat("a", 100)+"...(truncated)")
		assert.NotContains(t, out, long)
		assert.Contains(t, out, `"short": "abc"`)
	})

	t.Run("truncates base64", func(t *testing.T) {
		b64 := strings.Repeat("QUJD", 40)
		out, _ := ParseAndTruncateBody([]byte(`{"file":"`+b64+`"}`), false)
		assert.Contains(t, out, "...(truncated)")
	})

	t.Run("keeps prose", func(t *testing.T) {
		prose := strings.Repeat("hello world ", 20)
		out, _ := ParseAndTruncateBody([]byte(`{"text":"`+prose+`"}`), false)
		assert.Contains(t, out, prose)
	})

	t.Run("keeps file names", func(t *testing.T) {
		name := strings.Repeat("b", 120) + ".pdf"
		out, _ := ParseAndTruncateBody([]byte(`{"name":"`+name+`"}`), false)
		assert.Contains(t, out, name)
	})

	t.Run("masks sensitive keys when is_alt", func(t *testing.T) {
		out, confidential := ParseAndTruncateBody([]byte(`{"is_alt":true,"prompt":"p","choices":[{"x":1}],"model":"m"}`), false)
		assert.True(t, confidential)
		assert.Contains(t, out, "(prompt is confidential)")
		assert.Contains(t, out, "(choices is confidential)")
		assert.Contains(t, out, `"model": "m"`)
	})

	t.Run("inherited confidentiality", func(t *testing.T) {
		out, confidential := ParseAndTruncateBody([]byte(`{"content":"answer"}`), true)
		assert.True(t, confidential)
		assert.Contains(t, out, "(content is confidential)")
	})

	t.Run("non-JSON returned as text", func(t *testing.T) {
		out, confidential := ParseAndTruncateBody([]byte("plain"), false)
		assert.Equal(t, "plain", out)
		assert.False(t, confidential)
	})

	t.Run("numbers preserved", func(t *testing.T) {
		out, _ := ParseAndTruncateBody([]byte(`{"n":12345678901234567890}`), false)
		assert.Contains(t, out, "12345678901234567890")
	})
}

func TestIsBase64(t *testing.T) {
	assert.True(t, isBase64("QUJD"))
	assert.True(t, isBase64("QUI="))
	assert.False(t, isBase64("QUI"))
	assert.False(t, isBase64("not base64!"))
}
