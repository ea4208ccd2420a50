package analysis

import (
	"encoding/json"
	"math"
)

// Matrix is a square correlation matrix labeled by column name on both axes.
type Matrix struct {
	Columns []string
	Values  [][]float64
}

func newMatrix(columns []string) Matrix {
	m := Matrix{
		Columns: append([]string(nil), columns...),
		Values:  make([][]float64, len(columns)),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(columns))
	}
	return m
}

// At returns the coefficient for the named pair.
func (m Matrix) At(a, b string) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Values[i][j], true
}

func (m Matrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// matrixDoc is the wire form of a Matrix. Undefined coefficients are null.
type matrixDoc struct {
	Columns []string     `json:"columns" yaml:"columns"`
	Values  [][]*float64 `json:"values" yaml:"values,flow"`
}

func (m Matrix) doc() matrixDoc {
	d := matrixDoc{Columns: m.Columns, Values: make([][]*float64, len(m.Values))}
	for i, row := range m.Values {
		d.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			d.Values[i][j] = &v
		}
	}
	return d
}

func (d matrixDoc) matrix() Matrix {
	m := Matrix{Columns: d.Columns, Values: make([][]float64, len(d.Values))}
	for i, row := range d.Values {
		m.Values[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				m.Values[i][j] = math.NaN()
				continue
			}
			m.Values[i][j] = *v
		}
	}
	return m
}

// MarshalJSON encodes NaN coefficients as null.
func (m Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.doc())
}

// UnmarshalJSON decodes null coefficients as NaN.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var d matrixDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*m = d.matrix()
	return nil
}

// MarshalYAML encodes NaN coefficients as null.
func (m Matrix) MarshalYAML() (any, error) {
	return m.doc(), nil
}
