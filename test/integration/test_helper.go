package integration

import (
	"net/http"
	"os"
	"testing"
	"time"
)

var BaseURL = "http://localhost:8080"

// serverUp is probed once in TestMain; tests skip when the API is not running
var serverUp bool

func TestMain(m *testing.M) {
	if url := os.Getenv("API_BASE_URL"); url != "" {
		BaseURL = url
	}

	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 5; i++ {
		resp, err := client.Get(BaseURL + "/health")
		if err == nil {
			resp.Body.Close()
			serverUp = resp.StatusCode == http.StatusOK
			if serverUp {
				break
			}
		}
		time.Sleep(time.Second)
	}

	os.Exit(m.Run())
}

func requireServer(t *testing.T) {
	t.Helper()
	if !serverUp {
		t.Skipf("API not reachable at %s", BaseURL)
	}
}
