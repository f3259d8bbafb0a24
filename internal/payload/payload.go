// Package payload defines the data unit carried from the browser to the engine
// and the decoders that turn uploaded text into typed values.
//
// The bridge treats payloads as opaque: any Go type with a usable zero value
// works. Example is the reference payload used by the commands and tests.
package payload

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// ErrShape is wrapped by decode errors caused by a document whose structure
// does not match the payload type.
var ErrShape = errors.New("payload does not have the expected shape")

// ExampleLen is the number of elements Example.Field1 must carry.
const ExampleLen = 4

// Example is the reference payload: a fixed-size vector of four numbers.
//
// Decoding is strict: field1 must be present and hold exactly four finite
// numbers. Unknown fields are ignored.
type Example struct {
	Field1 [ExampleLen]float32 `json:"field1" yaml:"field1"`
}

// exampleWire mirrors Example with an unbounded slice so the length and
// presence of field1 can be checked after decoding.
type exampleWire struct {
	Field1 *[]float32 `json:"field1" yaml:"field1"`
}

func (w exampleWire) toExample() (Example, error) {
	if w.Field1 == nil {
		return Example{}, fmt.Errorf("%w: missing field1", ErrShape)
	}
	if len(*w.Field1) != ExampleLen {
		return Example{}, fmt.Errorf("%w: field1 has %d elements, want %d", ErrShape, len(*w.Field1), ExampleLen)
	}
	for i, x := range *w.Field1 {
		if math.IsInf(float64(x), 0) || math.IsNaN(float64(x)) {
			return Example{}, fmt.Errorf("%w: field1[%d] is not a finite number", ErrShape, i)
		}
	}
	var e Example
	copy(e.Field1[:], *w.Field1)
	return e, nil
}

// UnmarshalJSON implements json.Unmarshaler with the strict field1 check.
func (e *Example) UnmarshalJSON(data []byte) error {
	var w exampleWire
	if err := api.Unmarshal(data, &w); err != nil {
		return err
	}
	v, err := w.toExample()
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler with the strict field1 check.
func (e *Example) UnmarshalYAML(node *yaml.Node) error {
	var w exampleWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	v, err := w.toExample()
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// String renders the example the way logs show it.
func (e Example) String() string {
	return fmt.Sprintf("Example{field1: %v}", e.Field1)
}
