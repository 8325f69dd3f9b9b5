package resource

import "encoding/json"

// MaskedValue replaces secrets wherever properties leave the process.
const MaskedValue = "[secret]"

// Secret is a property value that takes part in change detection but is
// never persisted or printed.
type Secret string

// Reveal returns the plaintext.
func (s Secret) Reveal() string { return string(s) }

func (s Secret) String() string { return MaskedValue }

// MarshalJSON masks the value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(MaskedValue)
}

// Mask returns a deep copy of props with every Secret replaced by MaskedValue.
func Mask(props Properties) Properties {
	if props == nil {
		return nil
	}
	out, _ := mask(props).(Properties)
	return out
}

func mask(v any) any {
	switch t := v.(type) {
	case Secret:
		return MaskedValue
	case Properties:
		out := make(Properties, len(t))
		for k, e := range t {
			out[k] = mask(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = mask(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = mask(e)
		}
		return out
	case []Properties:
		out := make([]Properties, len(t))
		for i, e := range t {
			out[i], _ = mask(e).(Properties)
		}
		return out
	default:
		return v
	}
}
