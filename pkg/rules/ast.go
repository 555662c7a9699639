package rules

// File is a parsed settings file.
type File struct {
	Entries []*Entry `parser:"@@*"`
}

// Entry is one top level statement.
type Entry struct {
	Layer  *LayerBlock `parser:"  @@"`
	Option *Option     `parser:"| @@"`
}

// LayerBlock sets the trace costs of one layer.
// Example: layer "F.Cu" { horizontal 1.0 vertical 2.0 }
type LayerBlock struct {
	Name  string  `parser:"\"layer\" @String \"{\""`
	Costs []*Cost `parser:"@@* \"}\""`
}

// Cost is one direction factor inside a layer block.
type Cost struct {
	Direction string  `parser:"@( \"horizontal\" | \"vertical\" )"`
	Value     float64 `parser:"@( Float | Int )"`
}

// Option is a key and its value.
// Example: via_cost 50
type Option struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"@@"`
}

// Value is a number, an on/off switch or a duration.
type Value struct {
	Duration *string  `parser:"  @Duration"`
	Number   *float64 `parser:"| @( Float | Int )"`
	Switch   *string  `parser:"| @( \"on\" | \"off\" | \"true\" | \"false\" )"`
}

// Layers returns the layer blocks in file order.
func (f *File) Layers() []*LayerBlock {
	var out []*LayerBlock
	for _, e := range f.Entries {
		if e.Layer != nil {
			out = append(out, e.Layer)
		}
	}
	return out
}

// Options returns the options in file order.
func (f *File) Options() []*Option {
	var out []*Option
	for _, e := range f.Entries {
		if e.Option != nil {
			out = append(out, e.Option)
		}
	}
	return out
}
