package contract

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abi/*.json
var abiFiles embed.FS

// ABIFile structure
type ABIFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
}

// loadABI parses one of the embedded artifact files.
func loadABI(name string) (abi.ABI, error) {
	raw, err := abiFiles.ReadFile("abi/" + name)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read ABI file %s: %w", name, err)
	}

	var file ABIFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI JSON %s: %w", name, err)
	}

	parsed, err := abi.JSON(bytes.NewReader(file.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse contract ABI %s: %w", name, err)
	}
	return parsed, nil
}
