package messagebus

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Cursor wire format: "key,sequenceId" pairs joined by "|", e.g.
// "chat.room1,42|presence,7". Keys are escaped so ',' '|' and '\' can
// appear in event keys; ids are decimal uint64. Keys are emitted in sorted
// order so the encoding is stable for a given cursor state.

// EncodeCursor serializes per-key read positions into the wire form.
// An empty map encodes to "".
func EncodeCursor(positions map[string]uint64) string {
	if len(positions) == 0 {
		return ""
	}

	keys := make([]string, 0, len(positions))
	for k := range positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(escapeCursorKey(k))
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(positions[k], 10))
	}
	return b.String()
}

// ParseCursor decodes a previously emitted cursor. Parsing the output of
// EncodeCursor always round-trips. An empty string yields an empty map.
func ParseCursor(cursor string) (map[string]uint64, error) {
	positions := make(map[string]uint64)
	if cursor == "" {
		return positions, nil
	}

	var key strings.Builder
	escaped := false
	inID := false
	idStart := -1

	flush := func(end int) error {
		if !inID {
			return fmt.Errorf("cursor pair %q missing sequence id", key.String())
		}
		id, err := strconv.ParseUint(cursor[idStart:end], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid sequence id in cursor: %w", err)
		}
		positions[key.String()] = id
		key.Reset()
		inID = false
		return nil
	}

	for i := 0; i < len(cursor); i++ {
		c := cursor[i]
		switch {
		case inID:
			if c == '|' {
				if err := flush(i); err != nil {
					return nil, err
				}
			}
		case escaped:
			key.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == ',':
			inID = true
			idStart = i + 1
		case c == '|':
			return nil, fmt.Errorf("cursor pair %q missing sequence id", key.String())
		default:
			key.WriteByte(c)
		}
	}
	if escaped {
		return nil, fmt.Errorf("cursor ends with dangling escape")
	}
	if err := flush(len(cursor)); err != nil {
		return nil, err
	}
	return positions, nil
}

func escapeCursorKey(key string) string {
	if !strings.ContainsAny(key, `\,|`) {
		return key
	}
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '\\', ',', '|':
			b.WriteByte('\\')
		}
		b.WriteByte(key[i])
	}
	return b.String()
}
