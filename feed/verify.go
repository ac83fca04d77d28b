package feed

import (
	"fmt"
	"os"

	"github.com/mmcdole/gofeed"
)

// Verify parses the feed document at path.
func Verify(path string) (*gofeed.Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("verify feed: %w", err)
	}
	defer f.Close()

	parsed, err := gofeed.NewParser().Parse(f)
	if err != nil {
		return nil, fmt.Errorf("verify feed %s: %w", path, err)
	}
	return parsed, nil
}
