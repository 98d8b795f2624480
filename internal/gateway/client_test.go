package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient returns a client pointed at a test server handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, srv
}

func TestClient_EnvelopeUnwrap(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user-device/get-all-device" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"status":true,"message":"ok","data":[{"id":"d1","name":"Lamp","type":"light","enabled":true,"status":"online"}]}`))
	})

	devices, err := client.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "d1" || !devices[0].Enabled {
		t.Errorf("Devices() = %+v, want one enabled device d1", devices)
	}
}

func TestClient_EnvelopeStatusFalse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":false,"message":"device is offline","data":null}`))
	})

	err := client.SetDevicePower(context.Background(), "d1", true)
	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Message != "device is offline" {
		t.Errorf("Message = %q, want server-supplied message", apiErr.Message)
	}
}

func TestClient_EnvelopeStatusFalseWithoutMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":false,"message":"","data":null}`))
	})

	err := client.SetDevicePower(context.Background(), "d1", true)
	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Message == "" {
		t.Error("Message is empty, want generic default")
	}
}

func TestClient_NonOKStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":false,"message":"boom","data":null}`))
	})

	_, err := client.Rooms(context.Background())
	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("HTTPStatus = %d, want 500", apiErr.HTTPStatus)
	}
	if apiErr.Message != "boom" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "boom")
	}
}

func TestClient_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":false,"message":"token expired","data":null}`))
	})

	_, err := client.Notifications(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestClient_UnreachableNamesBaseURL(t *testing.T) {
	// Point at a closed port: the server is created then immediately shut
	// down so the address is known-dead.
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := New(Config{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Devices(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable", err)
	}
	if !strings.Contains(err.Error(), baseURL) {
		t.Errorf("error %q does not name the backend address %q", err.Error(), baseURL)
	}
}

func TestClient_BearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":true,"message":"","data":[]}`))
	})

	client.SetToken("tok-123")
	if _, err := client.Rooms(context.Background()); err != nil {
		t.Fatalf("Rooms() error = %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-123")
	}

	client.SetToken("")
	client.Rooms(context.Background())
	if gotAuth != "" {
		t.Errorf("Authorization = %q after clearing token, want empty", gotAuth)
	}
}

func TestClient_LoginInstallsToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/login":
			w.Write([]byte(`{"status":true,"message":"","data":{"token":"tok-9","user":{"id":"u1","name":"Pat","email":"pat@example.com"}}}`))
		default:
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"status":true,"message":"","data":[]}`))
		}
	})

	result, err := client.Login(context.Background(), "pat@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token != "tok-9" || result.User.ID != "u1" {
		t.Errorf("Login() = %+v", result)
	}

	client.Devices(context.Background())
	if gotAuth != "Bearer tok-9" {
		t.Errorf("Authorization = %q after login, want %q", gotAuth, "Bearer tok-9")
	}
}

func TestClient_NullDataLeavesDestZeroed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":true,"message":"","data":null}`))
	})

	devices, err := client.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("Devices() = %v, want empty", devices)
	}
}

func TestClient_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() with empty base URL succeeded, want error")
	}
}

func TestDataFilter_Query(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"status":true,"message":"","data":[]}`))
	})

	_, err := client.LatestSensorData(context.Background(), DataFilter{
		DeviceID: "d1",
		Kind:     "temperature",
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("LatestSensorData() error = %v", err)
	}
	for _, want := range []string{"device_id=d1", "kind=temperature", "limit=10"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}
