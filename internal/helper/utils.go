package helper

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// chunkNamespace scopes the deterministic chunk ids
var chunkNamespace = uuid.MustParse("6f1c3f5e-9a59-4c1b-8d8e-2f4a3c1d7b90")

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// StableID derives a name-based (v5) UUID, identical input gives an identical id
func StableID(parts ...string) string {
	b, _ := json.Marshal(parts)
	return uuid.NewSHA1(chunkNamespace, b).String()
}

// CreateFolder creates the folder (and parents) if it does not exist yet
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	return nil
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}
