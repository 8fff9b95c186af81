// Package itemfile loads YAML item files and reconciles them into an
// observable collection of items.
package itemfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingID indicates an item without an id.
	ErrMissingID = errors.New("itemfile: item has no id")

	// ErrDuplicateID indicates two items sharing an id.
	ErrDuplicateID = errors.New("itemfile: duplicate item id")
)

// Record is one item as written in the file.
type Record struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Status   string   `yaml:"status"`
	Priority int      `yaml:"priority"`
	Tags     []string `yaml:"tags"`
	Body     string   `yaml:"body"`
}

// Fingerprint returns a hash of every field that affects how the record is drawn.
func (r Record) Fingerprint() uint64 {
	h := xxhash.New()
	for _, s := range []string{r.ID, r.Title, r.Status, strconv.Itoa(r.Priority), strings.Join(r.Tags, "\x1f"), r.Body} {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// document is the top-level YAML shape.
type document struct {
	Items []Record `yaml:"items"`
}

// Parse decodes an item file. Unknown fields, missing ids and duplicate ids are errors.
// An empty or comment-only document yields no records.
func Parse(data []byte) ([]Record, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("itemfile: parsing: %w", err)
	}

	seen := make(map[string]int, len(doc.Items))
	for i, r := range doc.Items {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("%w (item %d)", ErrMissingID, i+1)
		}
		if prev, ok := seen[r.ID]; ok {
			return nil, fmt.Errorf("%w: %q (items %d and %d)", ErrDuplicateID, r.ID, prev+1, i+1)
		}
		seen[r.ID] = i
	}
	return doc.Items, nil
}

// Load reads and parses name from fsys.
func Load(fsys fs.FS, name string) ([]Record, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("itemfile: reading %s: %w", name, err)
	}
	records, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return records, nil
}

// LoadFile reads and parses the item file at path.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("itemfile: reading %s: %w", path, err)
	}
	records, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
