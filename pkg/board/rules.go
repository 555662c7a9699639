package board

// Layer describes one copper layer of the board stack, top first.
type Layer struct {
	Name  string
	Plane bool // power plane; vias into it are cheaper
}

// Net is an electrical net. Number 0 is reserved for "no net".
type Net struct {
	Number int
	Name   string
	Class  int
}

// Rules holds the design rules per clearance class. Class 0 is the default.
type Rules struct {
	ClassNames     []string
	Clearance      [][]int64 // symmetric class x class matrix
	TraceHalfWidth []int64
	ViaRadius      []int64
}

// DefaultRules creates a single class rule set.
func DefaultRules(halfWidth, clearance, viaRadius int64) Rules {
	return Rules{
		ClassNames:     []string{"default"},
		Clearance:      [][]int64{{clearance}},
		TraceHalfWidth: []int64{halfWidth},
		ViaRadius:      []int64{viaRadius},
	}
}

// AddClass appends a clearance class. The clearance to every existing class
// is the larger of both class clearances.
func (r *Rules) AddClass(name string, halfWidth, clearance, viaRadius int64) int {
	idx := len(r.ClassNames)
	r.ClassNames = append(r.ClassNames, name)
	r.TraceHalfWidth = append(r.TraceHalfWidth, halfWidth)
	r.ViaRadius = append(r.ViaRadius, viaRadius)
	row := make([]int64, idx+1)
	for i := range r.Clearance {
		c := max(clearance, r.Clearance[i][i])
		r.Clearance[i] = append(r.Clearance[i], c)
		row[i] = c
	}
	row[idx] = clearance
	r.Clearance = append(r.Clearance, row)
	return idx
}

// ClassCount returns the number of clearance classes.
func (r *Rules) ClassCount() int {
	return len(r.ClassNames)
}

func (r *Rules) class(c int) int {
	if c < 0 || c >= len(r.ClassNames) {
		return 0
	}
	return c
}

// ClearanceBetween returns the required copper distance between classes.
func (r *Rules) ClearanceBetween(a, b int) int64 {
	if len(r.Clearance) == 0 {
		return 0
	}
	return r.Clearance[r.class(a)][r.class(b)]
}

// HalfWidth returns the trace half width of a class.
func (r *Rules) HalfWidth(class int) int64 {
	if len(r.TraceHalfWidth) == 0 {
		return 0
	}
	return r.TraceHalfWidth[r.class(class)]
}

// ViaRadiusOf returns the via pad radius of a class.
func (r *Rules) ViaRadiusOf(class int) int64 {
	if len(r.ViaRadius) == 0 {
		return 0
	}
	return r.ViaRadius[r.class(class)]
}

// MaxClearance returns the largest clearance of any class pair.
func (r *Rules) MaxClearance() int64 {
	var m int64
	for _, row := range r.Clearance {
		for _, c := range row {
			m = max(m, c)
		}
	}
	return m
}
