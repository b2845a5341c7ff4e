package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ScanTime converts a scanned aggregate such as MAX(timestamp) to UTC time.
// postgres hands back a time.Time; sqlite loses the column type on aggregates
// and returns the stored text.
func ScanTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseSqliteTime(v)
	case []byte:
		return parseSqliteTime(string(v))
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", value)
	}
}

func parseSqliteTime(value string) (time.Time, error) {
	value = strings.TrimSuffix(value, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized stored time %q", value)
}
