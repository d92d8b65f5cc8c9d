package common

//go:generate go run github.com/dmarkham/enumer -json -type IndexType -trimprefix IndexType -transform lower

// IndexType selects the products fetched for a scene
type IndexType int

const (
	IndexTypePreview IndexType = iota // rendered true-color preview
	IndexTypeNDVI                     // red + near-infrared
	IndexTypeNDWI                     // green + short-wave-infrared
	IndexTypeAll                      // union of the above
)

// NeedsPreview returns true if the rendered preview is part of the selection
func (i IndexType) NeedsPreview() bool {
	return i == IndexTypePreview || i == IndexTypeAll
}

// Set implements flag.Value
func (i *IndexType) Set(s string) error {
	v, err := IndexTypeString(s)
	if err != nil {
		return err
	}
	*i = v
	return nil
}
