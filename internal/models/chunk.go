package models

import (
	"fmt"
	"path/filepath"
)

// Reference renders the chunk origin as "name p.N" or "name p.N-M"
func (c Chunk) Reference() string {
	name := filepath.Base(c.SourceFilename)
	if c.EndPageNumber > c.PageNumber {
		return fmt.Sprintf("%s p.%d-%d", name, c.PageNumber, c.EndPageNumber)
	}
	return fmt.Sprintf("%s p.%d", name, c.PageNumber)
}
