package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hoja/internal/chain"
	"hoja/pkg/config"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

type contractProof struct {
	A          []string   `json:"a"`
	B          [][]string `json:"b"`
	C          []string   `json:"c"`
	PubSignals []string   `json:"pubSignals"`
}

// SwapB reorders each G2 coordinate pair into the order the Solidity verifier expects.
func SwapB(b [][]string) ([][]string, error) {
	if len(b) < 2 || len(b[0]) < 2 || len(b[1]) < 2 {
		return nil, fmt.Errorf("proof.b must hold two coordinate pairs")
	}
	return [][]string{
		{b[0][1], b[0][0]},
		{b[1][1], b[1][0]},
	}, nil
}

// RelayerCaller submits verifySelfProof through a transaction relayer that holds the signing
// key, then waits for the transaction on the chain node.
type RelayerCaller struct {
	relayerURL   string
	contract     common.Address
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[common.Hash]
	chain        *chain.Client
	pollInterval time.Duration
	logger       logger.Logger
}

func NewRelayerCaller(cfg config.VerifierConfig, breakerCfg config.BreakerConfig, node *chain.Client, log logger.Logger) *RelayerCaller {
	return &RelayerCaller{
		relayerURL: strings.TrimRight(cfg.RelayerURL, "/"),
		contract:   common.HexToAddress(cfg.ContractAddress),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker:      chain.NewBreaker[common.Hash]("relayer", breakerCfg, log, nil),
		chain:        node,
		pollInterval: cfg.PollInterval,
		logger:       log,
	}
}

func (r *RelayerCaller) VerifySelfProof(ctx context.Context, proof *Groth16Proof, publicSignals []string) (string, error) {
	b, err := SwapB(proof.B)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]interface{}{
		"contract": r.contract,
		"method":   "verifySelfProof",
		"proof": contractProof{
			A:          proof.A,
			B:          b,
			C:          proof.C,
			PubSignals: publicSignals,
		},
	})
	if err != nil {
		return "", err
	}

	txHash, err := r.breaker.Execute(func() (common.Hash, error) {
		return r.submit(ctx, body)
	})
	if err != nil {
		return "", err
	}

	if _, err := r.chain.WaitForReceipt(ctx, txHash, r.pollInterval); err != nil {
		return txHash.Hex(), err
	}
	return txHash.Hex(), nil
}

func (r *RelayerCaller) submit(ctx context.Context, body []byte) (common.Hash, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.relayerURL+"/verifySelfProof", bytes.NewReader(body))
	if err != nil {
		return common.Hash{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return common.Hash{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return common.Hash{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return common.Hash{}, fmt.Errorf("relayer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out struct {
		TxHash string `json:"txHash"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return common.Hash{}, errors.Wrap(err, "invalid relayer response")
	}
	var txHash common.Hash
	if err := txHash.UnmarshalText([]byte(out.TxHash)); err != nil {
		return common.Hash{}, errors.Wrap(err, "relayer returned no valid transaction hash")
	}

	r.logger.Debug("verifySelfProof submitted", map[string]interface{}{"tx_hash": txHash.Hex()})
	return txHash, nil
}
