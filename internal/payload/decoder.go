package payload

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// api is the JSON codec used for all payload decoding.
var api = jsoniter.ConfigCompatibleWithStandardLibrary

// Supported decoder formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCUE  = "cue"
)

// ValidFormats lists the formats accepted by NewDecoder.
var ValidFormats = []string{FormatJSON, FormatYAML, FormatCUE}

// Decoder turns the full text of an uploaded file into a payload.
//
// Decode must not retain text. Implementations are safe for concurrent use.
type Decoder[T any] interface {
	Decode(text string) (T, error)
	Format() string
}

// NewDecoder returns the decoder for format.
// schema is only used by FormatCUE; empty means ExampleSchema.
func NewDecoder[T any](format, schema string) (Decoder[T], error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return JSONDecoder[T]{}, nil
	case FormatYAML:
		return YAMLDecoder[T]{}, nil
	case FormatCUE:
		if schema == "" {
			schema = ExampleSchema
		}
		return NewCUEDecoder[T](schema)
	default:
		return nil, fmt.Errorf("unknown payload format %q: must be one of %v", format, ValidFormats)
	}
}

// JSONDecoder decodes JSON documents.
type JSONDecoder[T any] struct{}

// Decode implements Decoder.
func (JSONDecoder[T]) Decode(text string) (T, error) {
	var v T
	if err := api.UnmarshalFromString(text, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// Format implements Decoder.
func (JSONDecoder[T]) Format() string { return FormatJSON }

// YAMLDecoder decodes YAML documents. Only the first document is read.
// An empty or null document is a shape error.
type YAMLDecoder[T any] struct{}

// Decode implements Decoder.
func (YAMLDecoder[T]) Decode(text string) (T, error) {
	var zero T

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return zero, fmt.Errorf("decode yaml: %w", err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	if root.Kind == 0 || root.Kind == yaml.DocumentNode || root.ShortTag() == "!!null" {
		return zero, fmt.Errorf("decode yaml: %w: empty document", ErrShape)
	}

	var v T
	if err := root.Decode(&v); err != nil {
		return zero, fmt.Errorf("decode yaml: %w", err)
	}
	return v, nil
}

// Format implements Decoder.
func (YAMLDecoder[T]) Format() string { return FormatYAML }

// ExampleSchema is the CUE schema matching Example.
const ExampleSchema = `field1: [number, number, number, number]`

// CUEDecoder validates a JSON document against a CUE schema before decoding
// it into T.
//
// The schema and the document are unified; the result must be concrete. The
// unified value is then exported as JSON and decoded with JSONDecoder, so the
// type's own unmarshal rules still apply.
type CUEDecoder[T any] struct {
	// mu guards ctx; cue.Context is not safe for concurrent building.
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewCUEDecoder compiles schema. Compile errors are returned here, not at
// Decode time.
func NewCUEDecoder[T any](schema string) (*CUEDecoder[T], error) {
	ctx := cuecontext.New()
	s := ctx.CompileString(schema, cue.Filename("schema.cue"))
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}
	return &CUEDecoder[T]{ctx: ctx, schema: s}, nil
}

// Decode implements Decoder.
func (d *CUEDecoder[T]) Decode(text string) (T, error) {
	var zero T

	expr, err := cuejson.Extract("payload.json", []byte(text))
	if err != nil {
		return zero, fmt.Errorf("decode cue: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	doc := d.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return zero, fmt.Errorf("decode cue: %w", err)
	}

	unified := d.schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return zero, fmt.Errorf("decode cue: %w: %w", ErrShape, err)
	}

	data, err := unified.MarshalJSON()
	if err != nil {
		return zero, fmt.Errorf("decode cue: export: %w", err)
	}
	return JSONDecoder[T]{}.Decode(string(data))
}

// Format implements Decoder.
func (d *CUEDecoder[T]) Format() string { return FormatCUE }
