package tickets

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// StagedFileExt is the extension of every columnar artifact placed on a stage.
const StagedFileExt = ".parquet"

// StagedFileKey identifies one staged artifact
type StagedFileKey struct {
	ID uuid.UUID
}

// NewStagedFileKey creates a key from a time-based UUID, so staged names sort roughly by creation.
// Falls back to a random UUID when the clock sequence cannot be read.
func NewStagedFileKey() StagedFileKey {
	id, err := uuid.NewUUID()
	if err != nil {
		id = uuid.New()
	}
	return StagedFileKey{ID: id}
}

// GenerateStagedFileName builds the stage file name for a key.
// Format: {uuid}.parquet
func GenerateStagedFileName(key StagedFileKey) string {
	return key.ID.String() + StagedFileExt
}

// ParseStagedFileName parses a stage file name (optionally with a directory prefix) back into its key.
func ParseStagedFileName(name string) (*StagedFileKey, error) {
	base := path.Base(name)
	if !strings.HasSuffix(base, StagedFileExt) {
		return nil, fmt.Errorf("invalid staged file name %q: expected %s suffix", name, StagedFileExt)
	}
	id, err := uuid.Parse(strings.TrimSuffix(base, StagedFileExt))
	if err != nil {
		return nil, fmt.Errorf("invalid staged file name %q: %w", name, err)
	}
	return &StagedFileKey{ID: id}, nil
}

// String returns the key in the standard file name format
func (k StagedFileKey) String() string {
	return GenerateStagedFileName(k)
}

// IsStagedFile checks if a file name follows the staged artifact format
func IsStagedFile(name string) bool {
	_, err := ParseStagedFileName(name)
	return err == nil
}
