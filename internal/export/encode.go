package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

type encoder func(w io.Writer, doc Document) error

var encoders = map[Format]encoder{
	FormatJSON: encodeJSON,
	FormatYAML: encodeYAML,
	FormatCBOR: encodeCBOR,
	FormatCSV:  encodeCSV,
}

// cborMode uses core deterministic encoding with times as RFC 3339 text, so
// the same document always produces the same bytes.
var cborMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339
	mode, err := opts.EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
	cborMode = mode
}

func encodeJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func encodeYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func encodeCBOR(w io.Writer, doc Document) error {
	return cborMode.NewEncoder(w).Encode(doc)
}

// CSVHeader is the first row of a CSV export.
var CSVHeader = []string{
	"id", "status", "start", "end", "start_local", "end_local",
	"duration_seconds", "duration", "outcome", "note", "created_at", "updated_at",
}

func encodeCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range doc.Fasts {
		end := ""
		if r.End != nil {
			end = r.End.Format(time.RFC3339)
		}
		row := []string{
			r.ID,
			string(r.Status),
			r.Start.Format(time.RFC3339),
			end,
			r.StartLocal,
			r.EndLocal,
			strconv.FormatInt(r.DurationSeconds, 10),
			r.Duration,
			r.Outcome,
			r.Note,
			r.CreatedAt.Format(time.RFC3339),
			r.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
