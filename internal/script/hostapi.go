package script

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// bindHostAPI registers the fixed host-API surface onto vm:
// http.get/post/put, json.encode/decode, env.get, log.debug/info/warn/error,
// fs.read/fs.list, base64.encode/decode, crypto.sha256/hmac_sha256, sleep.
// runCtx is the sandbox's per-invocation timeout context — sleep and the
// http module select on runCtx.Done() so the script's time budget can
// preempt a blocking native call, not just the JS bytecode loop.
func bindHostAPI(vm *goja.Runtime, sbx *Sandbox, logger *log.Logger, runCtx context.Context) {
	vm.Set("http", newHTTPModule(runCtx))
	vm.Set("json", newJSONModule())
	vm.Set("env", newEnvModule())
	vm.Set("log", newLogModule(logger))
	vm.Set("fs", newFSModule(sbx.RootDir))
	vm.Set("base64", newBase64Module())
	vm.Set("crypto", newCryptoModule())
	vm.Set("sleep", sleepFn(runCtx))
}

// --- http ---

type httpResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
	OK      bool              `json:"ok"`
	JSON    any               `json:"json,omitempty"`
}

type httpOpts struct {
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

func newHTTPModule(runCtx context.Context) map[string]any {
	client := &http.Client{Timeout: 15 * time.Second}
	do := func(method, url string, opts httpOpts) (httpResponse, error) {
		var bodyReader io.Reader
		if opts.Body != "" {
			bodyReader = strings.NewReader(opts.Body)
		}
		req, err := http.NewRequestWithContext(runCtx, method, url, bodyReader)
		if err != nil {
			return httpResponse{}, fmt.Errorf("build request: %w", err)
		}
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}
		resp, err := client.Do(req)
		if err != nil {
			return httpResponse{}, fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return httpResponse{}, fmt.Errorf("read response body: %w", err)
		}

		headers := map[string]string{}
		for k := range resp.Header {
			headers[k] = resp.Header.Get(k)
		}

		out := httpResponse{
			Status:  resp.StatusCode,
			Body:    string(data),
			Headers: headers,
			OK:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		}
		var js any
		if json.Unmarshal(data, &js) == nil {
			out.JSON = js
		}
		return out, nil
	}

	return map[string]any{
		"get":  func(url string, opts httpOpts) (httpResponse, error) { return do(http.MethodGet, url, opts) },
		"post": func(url string, opts httpOpts) (httpResponse, error) { return do(http.MethodPost, url, opts) },
		"put":  func(url string, opts httpOpts) (httpResponse, error) { return do(http.MethodPut, url, opts) },
	}
}

// --- json ---

func newJSONModule() map[string]any {
	return map[string]any{
		"encode": func(v any) (string, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("json.encode: %w", err)
			}
			return string(b), nil
		},
		"decode": func(s string) (any, error) {
			var v any
			if err := json.Unmarshal([]byte(s), &v); err != nil {
				return nil, fmt.Errorf("json.decode: %w", err)
			}
			return v, nil
		},
	}
}

// --- env ---

func newEnvModule() map[string]any {
	return map[string]any{
		"get": func(name string) any {
			v, ok := os.LookupEnv(name)
			if !ok {
				return nil
			}
			return v
		},
	}
}

// --- log ---

func newLogModule(logger *log.Logger) map[string]any {
	emit := func(level, msg string) { logger.Printf("[%s] %s", level, msg) }
	return map[string]any{
		"debug": func(msg string) { emit("debug", msg) },
		"info":  func(msg string) { emit("info", msg) },
		"warn":  func(msg string) { emit("warn", msg) },
		"error": func(msg string) { emit("error", msg) },
	}
}

// --- fs ---

// newFSModule builds a path-restricted filesystem API rooted at root; any
// path that escapes root (via .. or an absolute path elsewhere) is refused.
func newFSModule(root string) map[string]any {
	resolve := func(path string) (string, error) {
		if root == "" {
			return "", fmt.Errorf("fs access is disabled for this script")
		}
		full := filepath.Join(root, path)
		rel, err := filepath.Rel(root, full)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("fs path %q escapes the allowed root", path)
		}
		return full, nil
	}
	return map[string]any{
		"read": func(path string) (string, error) {
			full, err := resolve(path)
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(full)
			if err != nil {
				return "", fmt.Errorf("fs.read %q: %w", path, err)
			}
			return string(data), nil
		},
		"list": func(path string) ([]string, error) {
			full, err := resolve(path)
			if err != nil {
				return nil, err
			}
			entries, err := os.ReadDir(full)
			if err != nil {
				return nil, fmt.Errorf("fs.list %q: %w", path, err)
			}
			names := make([]string, len(entries))
			for i, e := range entries {
				names[i] = e.Name()
			}
			return names, nil
		},
	}
}

// --- base64 / crypto ---

func newBase64Module() map[string]any {
	return map[string]any{
		"encode": func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) },
		"decode": func(s string) (string, error) {
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return "", fmt.Errorf("base64.decode: %w", err)
			}
			return string(b), nil
		},
	}
}

func newCryptoModule() map[string]any {
	return map[string]any{
		"sha256": func(data string) string {
			sum := sha256.Sum256([]byte(data))
			return hex.EncodeToString(sum[:])
		},
		"hmac_sha256": func(key, data string) string {
			mac := hmac.New(sha256.New, []byte(key))
			mac.Write([]byte(data))
			return hex.EncodeToString(mac.Sum(nil))
		},
	}
}

// --- sleep ---

// sleepFn returns the `sleep(seconds)` host function bound to runCtx: it
// waits for d to elapse OR runCtx to be cancelled, whichever comes first,
// so a script's own timeout preempts a long sleep instead of blocking a
// server goroutine for the full requested duration.
func sleepFn(runCtx context.Context) func(seconds float64) {
	return func(seconds float64) {
		d := time.Duration(seconds * float64(time.Second))
		if d <= 0 {
			return
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-runCtx.Done():
		}
	}
}
