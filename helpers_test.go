package flagsnap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const testSDKKey = "test-sdk-key"

const testDocument = `{
  "debug": {"value": true, "settingType": 0},
  "color": {"value": "red", "settingType": 1},
  "limit": {"value": 10, "settingType": 2},
  "price": {"value": 9.99, "settingType": 3},
  "rollout": {
    "value": "base", "settingType": 1,
    "rolloutPercentageItems": [
      {"percentage": 20, "value": "A", "variationId": "v-a"},
      {"percentage": 30, "value": "B", "variationId": "v-b"},
      {"percentage": 50, "value": "C", "variationId": "v-c"}
    ]
  },
  "targeted": {
    "value": 1, "settingType": 2,
    "rolloutRules": [
      {"comparisonAttribute": "Email", "comparator": 2, "comparisonValue": "@example.com", "value": 2, "variationId": "v-email"}
    ]
  }
}`

// MockConfigServer is a mock CDN serving one configuration document
type MockConfigServer struct {
	*httptest.Server

	mu        sync.Mutex
	document  string
	etag      string
	status    int
	requests  int
	userAgent string
}

// NewMockConfigServer creates a new mock config server
func NewMockConfigServer(t *testing.T, document, etag string) *MockConfigServer {
	mock := &MockConfigServer{document: document, etag: etag}

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/configuration-files/"+testSDKKey+"/config_v5.json") {
			http.NotFound(w, r)
			return
		}

		mock.mu.Lock()
		defer mock.mu.Unlock()

		mock.requests++
		mock.userAgent = r.Header.Get("X-ConfigCat-UserAgent")

		if mock.status != 0 {
			w.WriteHeader(mock.status)
			return
		}
		if mock.etag != "" && r.Header.Get("If-None-Match") == mock.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", mock.etag)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mock.document))
	}))
	t.Cleanup(mock.Close)

	return mock
}

func (m *MockConfigServer) SetDocument(document, etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.document = document
	m.etag = etag
}

func (m *MockConfigServer) SetStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *MockConfigServer) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func (m *MockConfigServer) UserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userAgent
}

func newTestLogger() (*log.Logger, *logtest.Hook) {
	return logtest.NewNullLogger()
}

func hasEntry(hook *logtest.Hook, level log.Level, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && strings.Contains(e.Message, msg) {
			return true
		}
	}
	return false
}
