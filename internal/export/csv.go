package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"lunemusic/internal/domain"
)

var header = []string{"UserID", "FirstName", "LastName", "Username", "Blocked", "JoinedDate", "LastActive", "Interactions"}

// WriteUsers writes users as CSV with a header row. Times are RFC3339 UTC.
func WriteUsers(w io.Writer, users []domain.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, u := range users {
		record := []string{
			strconv.FormatInt(u.UserID, 10),
			u.FirstName,
			u.LastName,
			u.Username,
			strconv.FormatBool(u.Blocked),
			formatTime(u.CreatedAt),
			formatTime(u.LastActive),
			strconv.FormatInt(u.Interactions, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// UsersCSV renders users into memory for upload as a document.
func UsersCSV(users []domain.User) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteUsers(&buf, users); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName is the export document name for a given moment.
func FileName(now time.Time) string {
	return "users_" + strconv.FormatInt(now.UnixMilli(), 10) + ".csv"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
