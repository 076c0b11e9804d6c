package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hoja/pkg/errors"
)

// HTTPVerifier asks the identity provider's verification endpoint to check a proof for a scope.
type HTTPVerifier struct {
	url        string
	scope      string
	httpClient *http.Client
}

func NewHTTPVerifier(url, scope string) *HTTPVerifier {
	return &HTTPVerifier{
		url:   url,
		scope: scope,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, proof *Groth16Proof, publicSignals []string) error {
	body, err := json.Marshal(map[string]interface{}{
		"scope":         v.scope,
		"proof":         proof,
		"publicSignals": publicSignals,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out struct {
		IsValid bool   `json:"isValid"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("invalid verifier response (status %d): %w", resp.StatusCode, err)
	}
	if !out.IsValid {
		if out.Reason == "" {
			out.Reason = "proof is not valid"
		}
		return errors.New(out.Reason)
	}
	return nil
}
