package airdrop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DistributionID names a distribution in the claim registry
type DistributionID string

const (
	OWN   DistributionID = "OWN"
	SFUEL DistributionID = "SFUEL"
	NFT   DistributionID = "NFT"
)

// Quantity is an unsigned integer that may be written in the dataset as a
// JSON number or a decimal string. The source text is kept so it can be
// echoed back exactly.
type Quantity struct {
	raw   string
	value *big.Int
}

// NewQuantity parses a decimal or 0x-prefixed hex string
func NewQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	v, ok := new(big.Int), false
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok = v.SetString(s[2:], 16)
	} else {
		v, ok = v.SetString(s, 10)
	}
	if !ok || v.Sign() < 0 {
		return Quantity{}, fmt.Errorf("invalid quantity %q", s)
	}
	return Quantity{raw: s, value: v}, nil
}

// Int returns a copy of the value, zero when unset
func (q Quantity) Int() *big.Int {
	if q.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(q.value)
}

// String returns the quantity as it appeared in the dataset
func (q Quantity) String() string {
	if q.raw == "" {
		return "0"
	}
	return q.raw
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = Quantity{}
		return nil
	}

	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		s = n.String()
	}

	parsed, err := NewQuantity(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// ClaimEntry is one leaf of a distribution's Merkle tree. Address is kept
// as written so one malformed entry does not spoil the whole dataset.
type ClaimEntry struct {
	Index   Quantity      `json:"index"`
	Address string        `json:"address"`
	Amount  Quantity      `json:"amount"`
	Proof   []common.Hash `json:"proof"`
}

// Account returns the claimant address, false when Address is not a valid
// 20-byte hex address
func (c ClaimEntry) Account() (common.Address, bool) {
	if !common.IsHexAddress(c.Address) {
		return common.Address{}, false
	}
	return common.HexToAddress(c.Address), true
}

// ProofBytes converts the proof into the registry call's argument type
func (c ClaimEntry) ProofBytes() [][32]byte {
	out := make([][32]byte, len(c.Proof))
	for i, h := range c.Proof {
		out[i] = h
	}
	return out
}

// Dataset is a static Merkle distribution snapshot
type Dataset struct {
	MerkleRoot  common.Hash  `json:"merkleRoot"`
	Claims      []ClaimEntry `json:"claims"`
	TotalAmount Quantity     `json:"totalAmount"`
}

// ClaimsFor returns the entries belonging to account in dataset order
func (d *Dataset) ClaimsFor(account common.Address) []ClaimEntry {
	if d == nil {
		return nil
	}
	var out []ClaimEntry
	for _, c := range d.Claims {
		// addresses compare as bytes, so dataset hex case does not matter
		if addr, ok := c.Account(); ok && addr == account {
			out = append(out, c)
		}
	}
	return out
}

// Malformed returns the entries whose address cannot be parsed. They never
// match any account.
func (d *Dataset) Malformed() []ClaimEntry {
	if d == nil {
		return nil
	}
	var out []ClaimEntry
	for _, c := range d.Claims {
		if _, ok := c.Account(); !ok {
			out = append(out, c)
		}
	}
	return out
}

// Distribution binds a dataset to its registry identifier
type Distribution struct {
	ID      DistributionID
	Name    string
	Dataset *Dataset
}

// Load reads a dataset from a file path or an http(s) URL. An empty source,
// a missing file or an empty body yields an empty dataset.
func Load(ctx context.Context, source string, httpClient *http.Client) (*Dataset, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return &Dataset{}, nil
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = fetch(ctx, source, httpClient)
	} else {
		data, err = os.ReadFile(source)
		if errors.Is(err, os.ErrNotExist) {
			return &Dataset{}, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read distribution %s: %w", source, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return &Dataset{}, nil
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse distribution %s: %w", source, err)
	}
	return &ds, nil
}

func fetch(ctx context.Context, url string, httpClient *http.Client) ([]byte, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
