package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/MeKo-Tech/barloc/internal/server"
	"github.com/cucumber/godog"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// Close shuts the test server down.
func (w *HTTPTestServerWrapper) Close() {
	if w.Server != nil {
		w.Server.Close()
	}
}

func (testCtx *TestContext) startServer(cfg server.Config) error {
	if testCtx.HTTPTestServer != nil {
		return errors.New("server already running")
	}
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(srv.Handler()),
		TestServer: srv,
	}
	return nil
}

func defaultServerConfig() server.Config {
	return server.Config{
		CORSOrigin:     "*",
		MaxUploadMB:    5,
		TimeoutSec:     30,
		Pipeline:       pipeline.DefaultConfig(),
		OverlayEnabled: true,
		Version:        "test",
	}
}

func (testCtx *TestContext) theLocalizationServerIsRunning() error {
	return testCtx.startServer(defaultServerConfig())
}

func (testCtx *TestContext) theServerIsRunningWithRateLimit(perMinute int) error {
	cfg := defaultServerConfig()
	cfg.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerMinute: perMinute}
	return testCtx.startServer(cfg)
}

func (testCtx *TestContext) theServerIsRunningWithOverlaysDisabled() error {
	cfg := defaultServerConfig()
	cfg.OverlayEnabled = false
	return testCtx.startServer(cfg)
}

func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", errors.New("server is not running")
	}
	return testCtx.HTTPTestServer.Server.URL + path, nil
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iRequest(path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	resp, err := http.Get(url) //nolint:gosec,noctx // G107: URL points at the local test server
	if err != nil {
		return err
	}
	return testCtx.recordResponse(resp)
}

// iUpload posts a scenario file as multipart form data. The form field is
// "pdf" for PDF endpoints and "image" otherwise.
func (testCtx *TestContext) iUpload(name, path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.TempPath(name))
	if err != nil {
		return err
	}

	field := "image"
	if strings.HasPrefix(path, "/locate/pdf") {
		field = "pdf"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := http.Post(url, mw.FormDataContentType(), &body) //nolint:gosec,noctx // local test server
	if err != nil {
		return err
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) iUploadTimes(name, path string, n int) error {
	for range n {
		if err := testCtx.iUpload(name, path); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != value {
		return fmt.Errorf("expected header %s=%q, got %q", name, value, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldReportCandidates(want int) error {
	var resp server.LocateResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &resp); err != nil {
		return fmt.Errorf("response is not a locate response: %w", err)
	}
	if !resp.Success || resp.Image == nil {
		return fmt.Errorf("request did not succeed: %s", testCtx.LastHTTPResponse)
	}
	if got := len(resp.Image.Regions); got != want {
		return fmt.Errorf("expected %d candidates, got %d", want, got)
	}
	return nil
}

// RegisterServerSteps registers steps driving an in-process server.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the localization server is running$`, testCtx.theLocalizationServerIsRunning)
	sc.Step(`^the localization server is running with a limit of (\d+) requests per minute$`,
		testCtx.theServerIsRunningWithRateLimit)
	sc.Step(`^the localization server is running with overlays disabled$`, testCtx.theServerIsRunningWithOverlaysDisabled)

	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUpload)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)" (\d+) times$`, testCtx.iUploadTimes)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should report (\d+) candidates?$`, testCtx.theResponseShouldReportCandidates)
}
