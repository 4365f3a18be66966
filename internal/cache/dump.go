package cache

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Dump writes a human-readable representation of the cache
func (c *Cache) Dump(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(w, "=== Cache Dump ===\n\n")

	fmt.Fprintf(w, "Metadata:\n")
	fmt.Fprintf(w, "  Version:      %d\n", c.Metadata.Version)
	fmt.Fprintf(w, "  Created:      %s\n", c.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Last Updated: %s\n\n", c.Metadata.LastUpdated.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "Sources:\n")
	if len(c.Entries) == 0 {
		fmt.Fprintf(w, "  (none)\n")
	}

	locations := make([]string, 0, len(c.Entries))
	for loc := range c.Entries {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	var total int
	for _, loc := range locations {
		e := c.Entries[loc]
		total += len(e.Data)
		fmt.Fprintf(w, "  %s\n", loc)
		fmt.Fprintf(w, "    Fetched: %s (%s ago)\n",
			e.FetchedAt.Format("2006-01-02 15:04:05"),
			time.Since(e.FetchedAt).Round(time.Second))
		fmt.Fprintf(w, "    Size:    %d bytes\n", len(e.Data))
	}
	fmt.Fprintf(w, "\nTotal: %d sources, %d bytes\n", len(locations), total)

	fmt.Fprintf(w, "\n=== End Cache Dump ===\n")
}
