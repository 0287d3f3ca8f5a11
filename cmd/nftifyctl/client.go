package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftify-back-onchain/handler/middleware"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// call sends body to the market API and pretty prints the JSON answer to w.
// When from is set it is sent as the caller identity.
func call(w io.Writer, method, path string, from *common.Address, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	url := strings.TrimRight(serverURL, "/") + path
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if from != nil {
		req.Header.Set(middleware.CallerHeader, from.Hex())
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		_, err = w.Write(raw)
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(w)
	return err
}

// caller resolves the --from flag.
func caller() (*common.Address, error) {
	if !common.IsHexAddress(fromAddr) {
		return nil, fmt.Errorf("--from must be an account address, got %q", fromAddr)
	}
	addr := common.HexToAddress(fromAddr)
	return &addr, nil
}

func addressArg(name, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s %q is not an address", name, v)
	}
	return common.HexToAddress(v), nil
}
