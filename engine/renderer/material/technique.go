package material

// technique is the implementation of the Technique interface.
type technique struct {
	name   string
	passes map[string]Pass
	order  []string
}

// Technique is a named set of passes. A batch looks up the pass matching the
// scene pass it is being collected for; a missing pass means the batch does not
// take part in that scene pass.
type Technique interface {
	// Name retrieves the technique name.
	//
	// Returns:
	//   - string: the technique name
	Name() string

	// Pass retrieves a pass by name.
	//
	// Parameters:
	//   - name: the pass name
	//
	// Returns:
	//   - Pass: the pass, or nil if the technique has no such pass
	Pass(name string) Pass

	// Passes retrieves all passes in insertion order.
	//
	// Returns:
	//   - []Pass: the passes
	Passes() []Pass

	// Supported reports whether every pass has both a vertex and a fragment shader.
	//
	// Returns:
	//   - bool: true if the technique can be rendered
	Supported() bool
}

var _ Technique = &technique{}

// NewTechnique creates a new Technique from a list of passes. A later pass replaces
// an earlier one with the same name.
//
// Parameters:
//   - name: the technique name
//   - passes: the passes of the technique
//
// Returns:
//   - Technique: a new Technique instance
func NewTechnique(name string, passes ...Pass) Technique {
	t := &technique{
		name:   name,
		passes: make(map[string]Pass, len(passes)),
	}
	for _, p := range passes {
		if p == nil {
			continue
		}
		if _, ok := t.passes[p.Name()]; !ok {
			t.order = append(t.order, p.Name())
		}
		t.passes[p.Name()] = p
	}
	return t
}

func (t *technique) Name() string {
	return t.name
}

func (t *technique) Pass(name string) Pass {
	if name == "" {
		return nil
	}
	return t.passes[name]
}

func (t *technique) Passes() []Pass {
	out := make([]Pass, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.passes[name])
	}
	return out
}

func (t *technique) Supported() bool {
	for _, p := range t.passes {
		if p.VertexShader() == nil || p.FragmentShader() == nil {
			return false
		}
	}
	return true
}
