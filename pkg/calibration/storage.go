package calibration

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type storageFormat int

const (
	formatUnknown storageFormat = iota
	formatXML
	formatYAML
)

// detectFormat sniffs the content first and falls back to the extension.
func detectFormat(path string, data []byte) storageFormat {
	head := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(head, []byte("<?xml")), bytes.HasPrefix(head, []byte("<opencv_storage")):
		return formatXML
	case bytes.HasPrefix(head, []byte("%YAML")):
		return formatYAML
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return formatXML
	case ".yml", ".yaml":
		return formatYAML
	}
	return formatUnknown
}

// xmlStorage mirrors <opencv_storage> with arbitrary child nodes.
type xmlStorage struct {
	XMLName xml.Name  `xml:"opencv_storage"`
	Nodes   []xmlNode `xml:",any"`
}

type xmlNode struct {
	XMLName xml.Name
	TypeID  string `xml:"type_id,attr,omitempty"`
	Rows    int    `xml:"rows"`
	Cols    int    `xml:"cols"`
	DT      string `xml:"dt"`
	Data    string `xml:"data"`
}

func parseXML(data []byte) (Matrix, error) {
	var s xmlStorage
	if err := xml.Unmarshal(data, &s); err != nil {
		return Matrix{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, n := range s.Nodes {
		if n.TypeID != "" && n.TypeID != "opencv-matrix" {
			continue
		}
		values, err := parseValues(n.Data)
		if err != nil {
			return Matrix{}, err
		}
		return Matrix{Rows: n.Rows, Cols: n.Cols, Data: values}, nil
	}
	return Matrix{}, fmt.Errorf("%w: no matrix node", ErrMalformed)
}

func parseValues(s string) ([]float64, error) {
	fields := strings.Fields(s)
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q", ErrMalformed, f)
		}
		values = append(values, v)
	}
	return values, nil
}

func encodeXML(name string, m Matrix) ([]byte, error) {
	values := make([]string, len(m.Data))
	for i, v := range m.Data {
		values[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := xmlStorage{Nodes: []xmlNode{{
		XMLName: xml.Name{Local: name},
		TypeID:  "opencv-matrix",
		Rows:    m.Rows,
		Cols:    m.Cols,
		DT:      "d",
		Data:    strings.Join(values, " "),
	}}}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// yamlMatrix is the body of an !!opencv-matrix node.
type yamlMatrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	DT   string    `yaml:"dt"`
	Data []float64 `yaml:"data"`
}

func parseYAML(data []byte) (Matrix, error) {
	// OpenCV writes a "%YAML:1.0" directive that YAML parsers reject.
	if bytes.HasPrefix(data, []byte("%YAML")) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		} else {
			data = nil
		}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Matrix{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return Matrix{}, fmt.Errorf("%w: expected a mapping", ErrMalformed)
	}

	root := doc.Content[0]
	for i := 1; i < len(root.Content); i += 2 {
		value := root.Content[i]
		if value.Kind != yaml.MappingNode || !hasKeys(value, "rows", "cols", "data") {
			continue
		}
		// drop the !!opencv-matrix tag so the body decodes as a plain mapping
		value.Tag = ""
		var m yamlMatrix
		if err := value.Decode(&m); err != nil {
			return Matrix{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Matrix{Rows: m.Rows, Cols: m.Cols, Data: m.Data}, nil
	}
	return Matrix{}, fmt.Errorf("%w: no matrix node", ErrMalformed)
}

func hasKeys(n *yaml.Node, keys ...string) bool {
	found := 0
	for i := 0; i < len(n.Content); i += 2 {
		for _, k := range keys {
			if n.Content[i].Value == k {
				found++
			}
		}
	}
	return found == len(keys)
}
