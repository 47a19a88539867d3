// Package tabular loads survey exports (CSV or XLSX) into the in-memory
// frame. It handles both long-format exports (one row per person-wave) and
// wide panel exports (one row per person, per-wave column blocks), and
// normalizes survey missing codes to the uniform in-memory representation.
package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"driftwatch/domain/core"
	"driftwatch/domain/survey"
	"driftwatch/internal/config"
	"driftwatch/internal/errors"
)

// Wide panel exports reshape into this many wave blocks of this many
// features each.
const (
	wideWaves    = 10
	wideFeatures = 5
)

// wideFeatureNames label the per-wave column blocks of a wide export.
var wideFeatureNames = []string{"health_rating", "stress_level", "activity_level", "var_3", "var_4"}

// Reader loads one survey export file.
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	cfg      config.DataConfig
}

// NewReader creates a reader for a CSV or XLSX export.
func NewReader(cfg config.DataConfig) *Reader {
	ext := strings.ToLower(filepath.Ext(cfg.InputPath))
	fileType := "csv"
	if ext == ".xlsx" {
		fileType = "xlsx"
	}
	return &Reader{filePath: cfg.InputPath, fileType: fileType, cfg: cfg}
}

// Read loads the export into a frame. Feature cells that fail numeric
// parsing, along with survey skip codes -5..-1, read as missing.
func (r *Reader) Read() (*survey.Frame, []string, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("input file not found: %s", r.filePath))
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "xlsx":
		rows, err = r.readXLSX()
	default:
		rows, err = r.readCSV()
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, errors.InvalidInput("input must have a header row and at least one data row")
	}

	if r.cfg.WideFormat {
		return r.assembleWide(rows)
	}
	return r.assembleLong(rows)
}

func (r *Reader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "opening CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Wide panel exports have ragged rows; pad later instead of failing.
	reader.FieldsPerRecord = -1

	var rows [][]string
	limit := r.cfg.SampleRows
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		rows = append(rows, record)
		if limit > 0 && len(rows) > limit {
			break
		}
	}
	return rows, nil
}

func (r *Reader) readXLSX() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "opening XLSX file")
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, errors.Wrap(err, "reading Sheet1")
	}
	if limit := r.cfg.SampleRows; limit > 0 && len(rows) > limit+1 {
		rows = rows[:limit+1]
	}
	return rows, nil
}

// assembleLong builds a frame from a long export: one row per person-wave,
// id and wave columns named in the config, every other column a feature.
func (r *Reader) assembleLong(rows [][]string) (*survey.Frame, []string, error) {
	header := trimHeader(rows[0])
	idIdx := indexOf(header, r.cfg.IDColumn)
	waveIdx := indexOf(header, r.cfg.WaveColumn)
	if idIdx < 0 {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("id column %q not found", r.cfg.IDColumn))
	}

	var persons []core.PersonID
	var waves []int
	var groups []string
	groupIdx := -1
	if r.cfg.GroupCol != "" {
		groupIdx = indexOf(header, r.cfg.GroupCol)
	}

	featureIdx := make([]int, 0, len(header))
	featureNames := make([]string, 0, len(header))
	for j, name := range header {
		if j == idIdx || j == waveIdx || j == groupIdx || name == "" {
			continue
		}
		featureIdx = append(featureIdx, j)
		featureNames = append(featureNames, name)
	}

	cols := make(map[string][]float64, len(featureNames))
	for _, name := range featureNames {
		cols[name] = nil
	}

	// A missing wave column falls back to row order, one synthetic wave per
	// row. Real wave indices are strongly preferred.
	for i, row := range rows[1:] {
		id := cell(row, idIdx)
		if id == "" {
			continue
		}
		wave := i
		if waveIdx >= 0 {
			w, err := strconv.Atoi(cell(row, waveIdx))
			if err != nil {
				continue
			}
			wave = w
		}
		persons = append(persons, core.PersonID(id))
		waves = append(waves, wave)
		if groupIdx >= 0 {
			groups = append(groups, cell(row, groupIdx))
		}
		for k, j := range featureIdx {
			name := featureNames[k]
			cols[name] = append(cols[name], parseCell(cell(row, j)))
		}
	}

	f, err := survey.NewFrame(persons, waves)
	if err != nil {
		return nil, nil, errors.Wrap(err, "assembling frame")
	}
	for _, name := range featureNames {
		if err := f.AddColumn(name, cols[name]); err != nil {
			return nil, nil, errors.Wrap(err, "adding column")
		}
	}
	return f, groups, nil
}

// assembleWide reshapes a wide panel export: column 0 identifies the person,
// then wave blocks of fixed width follow. The row index becomes the person
// id since panel id columns often carry skip codes themselves.
func (r *Reader) assembleWide(rows [][]string) (*survey.Frame, []string, error) {
	nFeatures := wideFeatures
	names := wideFeatureNames[:nFeatures]

	var persons []core.PersonID
	var waves []int
	cols := make(map[string][]float64, nFeatures)

	for i, row := range rows[1:] {
		pid := core.PersonID(fmt.Sprintf("%d", i))
		for w := 0; w < wideWaves; w++ {
			start := 1 + w*nFeatures
			if start >= len(row) {
				break
			}
			persons = append(persons, pid)
			waves = append(waves, w)
			for j, name := range names {
				cols[name] = append(cols[name], parseCell(cell(row, start+j)))
			}
		}
	}
	if len(persons) == 0 {
		return nil, nil, errors.InvalidInput("wide export produced no rows")
	}

	f, err := survey.NewFrame(persons, waves)
	if err != nil {
		return nil, nil, errors.Wrap(err, "assembling frame")
	}
	for _, name := range names {
		if err := f.AddColumn(name, cols[name]); err != nil {
			return nil, nil, errors.Wrap(err, "adding column")
		}
	}
	return f, nil, nil
}

// parseCell converts one feature cell. Unparseable text and the survey skip
// codes -5..-1 normalize to missing.
func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return survey.Missing()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return survey.Missing()
	}
	if v == float64(int64(v)) && v >= -5 && v <= -1 {
		return survey.Missing()
	}
	return v
}

func trimHeader(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		out[i] = strings.Trim(strings.TrimSpace(h), `"`)
	}
	return out
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(row []string, j int) string {
	if j < 0 || j >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[j])
}
