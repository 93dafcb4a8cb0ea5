package db

import "errors"

// DistanceMetric selects how FT.SEARCH measures vector distance.
type DistanceMetric string

const (
	DistanceL2     DistanceMetric = "L2"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the vector index structure in FT.CREATE.
type VectorAlgorithm string

const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates the FT field types this module emits.
type IndexFieldType int

const (
	IndexFieldTag IndexFieldType = iota
	IndexFieldText
	IndexFieldVector
)

// IndexField describes one field of an FT index schema. Only the option
// group matching Type is read.
type IndexField struct {
	Name  string
	Alias string // AS alias in FT.CREATE SCHEMA
	Type  IndexFieldType

	// TAG options
	TagSeparator string

	// VECTOR options
	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int // HNSW M: max edges per node
	VectorEFConstruct int // HNSW EF_CONSTRUCTION: build-time list size
}

// IndexDefinition is the input to FT.CREATE. Documents are hashes under any
// of the listed key prefixes.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate rejects definitions FT.CREATE would refuse, before any command
// is sent.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required")
		}
		if f.Type != IndexFieldVector {
			continue
		}
		if f.VectorDim <= 0 {
			return errors.New("vector dimension must be positive")
		}
		if f.VectorAlgo == "" {
			return errors.New("vector algorithm is required")
		}
	}
	return nil
}
