// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedTotal is returned for a total-result value whose shape
	// is none of number, text, sequence or mapping.
	ErrUnsupportedTotal = errors.New("unsupported total results value")

	// ErrInvalidTotal is returned when a supported shape carries no integer.
	ErrInvalidTotal = errors.New("invalid total results value")
)

// totalValue is one variant of the declared total-result count.
type totalValue interface {
	count() (int, error)
}

type (
	numberTotal  float64
	textTotal    string
	wrappedTotal []any
	keyedTotal   map[string]any
)

// conventionalTotalKeys are looked up, in order, before scanning a mapping.
var conventionalTotalKeys = []string{"#text", "text", "value"}

// CoerceTotal converts a declared total-result count to an int. It accepts
// a number, numeric text (trimmed; empty text is zero), a sequence whose
// first coercible element wins, or a mapping carrying the count under
// "#text", "text" or "value" (falling back to any coercible value).
// A nil total (no totalResults element) is ErrUnsupportedTotal, not zero:
// the stream then keeps paging until a dry page or its cap.
func CoerceTotal(raw any) (int, error) {
	v, err := classifyTotal(raw)
	if err != nil {
		return 0, err
	}
	return v.count()
}

func classifyTotal(raw any) (totalValue, error) {
	switch v := raw.(type) {
	case int:
		return numberTotal(v), nil
	case int32:
		return numberTotal(v), nil
	case int64:
		return numberTotal(v), nil
	case uint:
		return numberTotal(v), nil
	case uint32:
		return numberTotal(v), nil
	case uint64:
		return numberTotal(v), nil
	case float32:
		return numberTotal(v), nil
	case float64:
		return numberTotal(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTotal, v.String())
		}
		return numberTotal(f), nil
	case string:
		return textTotal(v), nil
	case []any:
		return wrappedTotal(v), nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return wrappedTotal(items), nil
	case map[string]any:
		return keyedTotal(v), nil
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		return keyedTotal(m), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedTotal, raw)
	}
}

func (n numberTotal) count() (int, error) { return int(n), nil }

func (t textTotal) count() (int, error) {
	s := strings.TrimSpace(string(t))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTotal, s)
	}
	return n, nil
}

func (w wrappedTotal) count() (int, error) {
	for _, item := range w {
		if n, err := CoerceTotal(item); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: no coercible element in %v", ErrInvalidTotal, []any(w))
}

func (k keyedTotal) count() (int, error) {
	for _, key := range conventionalTotalKeys {
		if v, ok := k[key]; ok {
			return CoerceTotal(v)
		}
	}

	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if n, err := CoerceTotal(k[key]); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: no coercible value in %v", ErrInvalidTotal, map[string]any(k))
}

// strictTotal accepts only a single bare element holding an integer; it is
// the fast path's view of the declared count.
func strictTotal(raw any) (int, error) {
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("%w: total results is %T, want text", ErrMalformedFeed, raw)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: total results %q: %v", ErrMalformedFeed, s, err)
	}
	return n, nil
}
