package registry_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/JonMunkholm/icdload/internal/registry"
	"github.com/JonMunkholm/icdload/internal/registry/registrytest"
)

const stemURI = "http://id.who.int/icd/release/11/2025-01/mms/1256772020/unspecified"

func newFake(t *testing.T) *registrytest.Server {
	t.Helper()
	srv := registrytest.NewServer("2025-01", "mms")
	t.Cleanup(srv.Close)
	return srv
}

func TestAcquireToken_CachesToken(t *testing.T) {
	srv := newFake(t)
	client := registry.New(srv.Config(time.Second))

	if client.HasToken() {
		t.Fatal("new client should not hold a token")
	}

	for i := 0; i < 3; i++ {
		tok, err := client.AcquireToken(context.Background())
		if err != nil {
			t.Fatalf("AcquireToken() error = %v", err)
		}
		if tok != registrytest.Token {
			t.Errorf("AcquireToken() = %q, want %q", tok, registrytest.Token)
		}
	}

	if got := srv.TokenRequests(); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
	if !client.HasToken() {
		t.Error("client should hold a token after acquisition")
	}
}

func TestAcquireToken_RecordsExpiry(t *testing.T) {
	srv := newFake(t)
	client := registry.New(srv.Config(time.Second))

	if _, ok := client.TokenExpiry(); ok {
		t.Fatal("TokenExpiry() ok = true before any token is held")
	}

	before := time.Now()
	if _, err := client.AcquireToken(context.Background()); err != nil {
		t.Fatalf("AcquireToken() error = %v", err)
	}

	exp, ok := client.TokenExpiry()
	if !ok {
		t.Fatal("TokenExpiry() ok = false after acquisition")
	}
	// The fake issues an opaque token with expires_in 3600.
	if exp.Before(before.Add(time.Hour)) || exp.After(time.Now().Add(time.Hour)) {
		t.Errorf("TokenExpiry() = %v, want about one hour from %v", exp, before)
	}
}

func TestAcquireToken_SendsClientCredentials(t *testing.T) {
	srv := newFake(t)
	client := registry.New(srv.Config(time.Second))

	if _, err := client.AcquireToken(context.Background()); err != nil {
		t.Fatalf("AcquireToken() error = %v", err)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	want := map[string]string{
		"client_id":     "client",
		"client_secret": "secret",
		"scope":         "icdapi_access",
		"grant_type":    "client_credentials",
	}
	for k, v := range want {
		if reqs[0].Form[k] != v {
			t.Errorf("form %s = %q, want %q", k, reqs[0].Form[k], v)
		}
	}
	if ct := reqs[0].Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestAcquireToken_Failure(t *testing.T) {
	srv := newFake(t)
	srv.SetTokenStatus(http.StatusUnauthorized)
	client := registry.New(srv.Config(time.Second))

	_, err := client.AcquireToken(context.Background())
	if !errors.Is(err, registry.ErrTokenAcquisition) {
		t.Fatalf("AcquireToken() error = %v, want ErrTokenAcquisition", err)
	}

	var statusErr *registry.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error %v should wrap *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusUnauthorized)
	}
	if client.HasToken() {
		t.Error("client should not hold a token after a failed exchange")
	}
}

func TestAcquireToken_Unreachable(t *testing.T) {
	srv := newFake(t)
	cfg := srv.Config(time.Second)
	srv.Close()

	_, err := registry.New(cfg).AcquireToken(context.Background())
	if !errors.Is(err, registry.ErrTokenAcquisition) {
		t.Fatalf("AcquireToken() error = %v, want ErrTokenAcquisition", err)
	}
}

func TestStemByCode(t *testing.T) {
	srv := newFake(t)
	srv.AddStem("CA40", stemURI)
	client := registry.New(srv.Config(time.Second))

	info, err := client.StemByCode(context.Background(), "CA40")
	if err != nil {
		t.Fatalf("StemByCode() error = %v", err)
	}
	if info.StemID != stemURI {
		t.Errorf("StemID = %q, want %q", info.StemID, stemURI)
	}

	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	if last.Path != "/icd/release/2025-01/mms/codeinfo/CA40" {
		t.Errorf("path = %q", last.Path)
	}
	headers := map[string]string{
		"Accept":          "application/json",
		"Accept-Language": "es",
		"API-Version":     "v2",
		"Authorization":   "Bearer " + registrytest.Token,
	}
	for k, v := range headers {
		if got := last.Header.Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
}

func TestStemByCode_AcquiresTokenLazily(t *testing.T) {
	srv := newFake(t)
	srv.AddStem("CA40", stemURI)
	srv.AddStem("1A00", stemURI)
	client := registry.New(srv.Config(time.Second))

	for _, code := range []string{"CA40", "1A00"} {
		if _, err := client.StemByCode(context.Background(), code); err != nil {
			t.Fatalf("StemByCode(%q) error = %v", code, err)
		}
	}
	if got := srv.TokenRequests(); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
}

func TestStemByCode_NotFound(t *testing.T) {
	srv := newFake(t)
	client := registry.New(srv.Config(time.Second))

	_, err := client.StemByCode(context.Background(), "ZZ99")
	if !errors.Is(err, registry.ErrRequest) {
		t.Fatalf("StemByCode() error = %v, want ErrRequest", err)
	}
	if errors.Is(err, registry.ErrTokenAcquisition) {
		t.Error("a lookup failure must not be reported as a token failure")
	}

	var statusErr *registry.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("error %v should wrap a 404 *StatusError", err)
	}
}

func TestStemByCode_Timeout(t *testing.T) {
	srv := newFake(t)
	srv.AddStem("CA40", stemURI)
	srv.SetDelay(2 * time.Second)
	client := registry.New(srv.Config(200 * time.Millisecond))

	_, err := client.StemByCode(context.Background(), "CA40")
	if !errors.Is(err, registry.ErrRequest) {
		t.Fatalf("StemByCode() error = %v, want ErrRequest", err)
	}
}

func TestStemByCode_TokenFailure(t *testing.T) {
	srv := newFake(t)
	srv.SetTokenStatus(http.StatusInternalServerError)
	client := registry.New(srv.Config(time.Second))

	_, err := client.StemByCode(context.Background(), "CA40")
	if !errors.Is(err, registry.ErrTokenAcquisition) {
		t.Fatalf("StemByCode() error = %v, want ErrTokenAcquisition", err)
	}
}

func TestEntityByReference(t *testing.T) {
	srv := newFake(t)
	srv.AddEntity("1256772020/unspecified", map[string]any{
		"@id":   stemURI,
		"code":  "CA40.Z",
		"title": map[string]string{"@language": "es", "@value": "Neumonía, organismo no especificado"},
		"child": []string{},
	})
	client := registry.New(srv.Config(time.Second))

	entity, err := client.EntityByReference(context.Background(), stemURI)
	if err != nil {
		t.Fatalf("EntityByReference() error = %v", err)
	}

	if code, _ := entity.CodeValue(); code != "CA40.Z" {
		t.Errorf("code = %q, want %q", code, "CA40.Z")
	}
	title, ok := entity.Title.Text()
	if !ok || title != "Neumonía, organismo no especificado" {
		t.Errorf("title = %q, %v", title, ok)
	}

	reqs := srv.Requests()
	if last := reqs[len(reqs)-1]; last.Path != "/icd/release/2025-01/mms/1256772020/unspecified" {
		t.Errorf("path = %q", last.Path)
	}
}

func TestEntityByReference_PathWithoutMarker(t *testing.T) {
	srv := newFake(t)
	srv.AddEntity("1256772020", map[string]any{"@id": "x", "code": "CA40"})
	client := registry.New(srv.Config(time.Second))

	if _, err := client.EntityByReference(context.Background(), "1256772020"); err != nil {
		t.Fatalf("EntityByReference() error = %v", err)
	}
}

func TestEntityByReference_NotFound(t *testing.T) {
	srv := newFake(t)
	client := registry.New(srv.Config(time.Second))

	_, err := client.EntityByReference(context.Background(), stemURI)
	if !errors.Is(err, registry.ErrRequest) {
		t.Fatalf("EntityByReference() error = %v, want ErrRequest", err)
	}
}

func TestEntityPath(t *testing.T) {
	tests := []struct {
		ref       string
		wantPath  string
		wantFound bool
	}{
		{stemURI, "1256772020/unspecified", true},
		{"http://id.who.int/icd/release/11/2025-01/mms/257068234", "257068234", true},
		{"http://id.who.int/icd/release/11/2025-01/mms/", "", true},
		{"http://id.who.int/icd/release/11/2025-01/mms/123/mms/456", "123/mms/456", true},
		{"1256772020/other", "1256772020/other", false},
		{"http://id.who.int/icd/entity/257068234", "http://id.who.int/icd/entity/257068234", false},
	}

	for _, tt := range tests {
		path, found := registry.EntityPath(tt.ref)
		if path != tt.wantPath || found != tt.wantFound {
			t.Errorf("EntityPath(%q) = %q, %v, want %q, %v", tt.ref, path, found, tt.wantPath, tt.wantFound)
		}
	}
}
