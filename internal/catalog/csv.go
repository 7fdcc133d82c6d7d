package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"

	"carmatch/internal/model"
)

// columnAliases lists the accepted header names per field, preferred first.
var columnAliases = map[string][]string{
	"id":          {"id", "row_id"},
	"name":        {"full_name", "name", "model name"},
	"make":        {"make"},
	"series":      {"series"},
	"year":        {"year"},
	"price":       {"price_thb", "price"},
	"engine_l":    {"engine_l"},
	"engine_cc":   {"engine_cc"},
	"horsepower":  {"horsepower_hp", "horsepower"},
	"fuel":        {"fuel_type", "fuel"},
	"gears":       {"gears"},
	"drivetrain":  {"drive", "drivetrain"},
	"body":        {"type", "body", "body_type"},
	"description": {"description", "details"},
	"embedding":   {"embedding"},
}

var firstNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Table is a catalog CSV kept in its raw form so it can be rewritten with
// embeddings filled in.
type Table struct {
	Header []string
	Rows   [][]string
	cols   map[string]int
}

// ReadTable parses a catalog CSV. A UTF-8 BOM on the first header is dropped.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("catalog csv is empty")
	}

	t := &Table{Header: records[0], Rows: records[1:]}
	if len(t.Header) > 0 {
		t.Header[0] = strings.TrimPrefix(t.Header[0], "\ufeff")
	}
	t.indexColumns()
	if _, ok := t.cols["name"]; !ok {
		return nil, errors.New("catalog csv has no name column (full_name or name)")
	}
	if _, ok := t.cols["price"]; !ok {
		return nil, errors.New("catalog csv has no price column (price_thb or price)")
	}
	return t, nil
}

func (t *Table) indexColumns() {
	lower := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		lower[strings.ToLower(strings.TrimSpace(h))] = i
	}
	t.cols = map[string]int{}
	for field, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := lower[a]; ok {
				t.cols[field] = i
				break
			}
		}
	}
}

// Field returns the trimmed value of field in row, "" when absent.
func (t *Table) Field(row int, field string) string {
	i, ok := t.cols[field]
	if !ok || i >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][i])
}

// Embedding decodes the row's embedding column written in pgvector text form
// ("[0.1,0.2,...]"). Brackets are optional.
func (t *Table) Embedding(row int) ([]float32, error) {
	raw := t.Field(row, "embedding")
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	if !strings.HasPrefix(raw, "[") {
		raw = "[" + raw + "]"
	}
	var v pgvector.Vector
	if err := v.Scan([]byte(raw)); err != nil {
		return nil, fmt.Errorf("row %d: invalid embedding: %w", row+1, err)
	}
	return v.Slice(), nil
}

// SetEmbedding stores vec in the row's embedding column, adding the column
// when the file had none.
func (t *Table) SetEmbedding(row int, vec []float32) {
	i, ok := t.cols["embedding"]
	if !ok {
		t.Header = append(t.Header, "embedding")
		i = len(t.Header) - 1
		t.cols["embedding"] = i
	}
	for len(t.Rows[row]) <= i {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][i] = pgvector.NewVector(vec).String()
}

// Write emits the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write catalog csv: %w", err)
	}
	return nil
}

// Vehicle converts one row. ok is false when the row lacks a name or a
// parsable price.
func (t *Table) Vehicle(row int) (model.Vehicle, bool) {
	v := model.Vehicle{
		ID:          t.Field(row, "id"),
		Name:        t.Field(row, "name"),
		Make:        t.Field(row, "make"),
		Series:      t.Field(row, "series"),
		Fuel:        t.Field(row, "fuel"),
		Gearbox:     t.Field(row, "gears"),
		Drivetrain:  t.Field(row, "drivetrain"),
		Body:        t.Field(row, "body"),
		Description: t.Field(row, "description"),
	}
	if v.Name == "" {
		return v, false
	}
	price, ok := parsePrice(t.Field(row, "price"))
	if !ok {
		return v, false
	}
	v.Price = price
	if v.ID == "" {
		v.ID = strconv.Itoa(row)
	}
	v.Year = parseInt(t.Field(row, "year"))
	v.EngineL = parseFloat(t.Field(row, "engine_l"))
	v.EngineCC = parseInt(t.Field(row, "engine_cc"))
	v.Horsepower = parseInt(t.Field(row, "horsepower"))
	v.Gears = parseInt(t.Field(row, "gears"))
	return v, true
}

// Load reads a catalog CSV from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, err
	}
	return FromTable(t)
}

// FromTable builds a catalog from every usable row of t.
func FromTable(t *Table) (*Catalog, error) {
	vehicles := make([]model.Vehicle, 0, len(t.Rows))
	embeddings := make([][]float32, 0, len(t.Rows))
	skipped := 0
	for i := range t.Rows {
		v, ok := t.Vehicle(i)
		if !ok {
			skipped++
			continue
		}
		emb, err := t.Embedding(i)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
		embeddings = append(embeddings, emb)
	}
	c := New(vehicles, embeddings)
	c.skipped = skipped
	return c, nil
}

var priceNoise = strings.NewReplacer("บาท", "", ",", "", "฿", "", " ", "")

func parsePrice(s string) (float64, bool) {
	s = priceNoise.Replace(s)
	if s == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p <= 0 {
		return 0, false
	}
	return p, true
}

func parseInt(s string) *int {
	m := firstNumber.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func parseFloat(s string) *float64 {
	m := firstNumber.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}
