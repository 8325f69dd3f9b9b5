package resource

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Digests holds one hash per top-level input key.
type Digests map[string]string

// Digest hashes each top-level key of resolved properties. Secrets are
// hashed by value so that rotating one is detected as a change, while the
// digest itself does not reveal it.
func Digest(props Properties) (Digests, error) {
	out := make(Digests, len(props))
	for k, v := range props {
		b, err := json.Marshal(canonical(v))
		if err != nil {
			return nil, fmt.Errorf("digest %q: %w", k, err)
		}
		out[k] = strconv.FormatUint(xxhash.Sum64(b), 16)
	}
	return out, nil
}

// Fingerprint combines digests into a single value.
func (d Digests) Fingerprint() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(d[k])
		b.WriteByte('\n')
	}
	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

// ChangedKeys lists keys whose digest differs between old and d, including
// added and removed keys, sorted.
func (d Digests) ChangedKeys(old Digests) []string {
	var changed []string
	for k, v := range d {
		if old[k] != v {
			changed = append(changed, k)
		}
	}
	for k := range old {
		if _, ok := d[k]; !ok {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return changed
}

// canonical rewrites secrets into a hashed form that json.Marshal does not
// mask. Map keys are already sorted by encoding/json.
func canonical(v any) any {
	switch t := v.(type) {
	case Secret:
		return "secret:" + strconv.FormatUint(xxhash.Sum64String(string(t)), 16)
	case Properties:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = canonical(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = canonical(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonical(e)
		}
		return out
	default:
		return v
	}
}
