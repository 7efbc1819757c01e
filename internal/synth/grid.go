package synth

// Grid holds the open (1) / closed (0) state of every door sensor in the
// building. Sensor (floor, door) lives at index maxDoors*floor + door, so
// every pair has its own state. Scaling the floor by the floor count
// instead would alias sensors whenever floors < doors.
type Grid struct {
	floors int
	doors  int
	states []uint8
}

// NewGrid returns a grid with every sensor closed.
func NewGrid(floors, doors int) *Grid {
	return &Grid{
		floors: floors,
		doors:  doors,
		states: make([]uint8, floors*doors),
	}
}

// Index returns the sensor id of a 0-based floor and door.
func (g *Grid) Index(floor, door int) int {
	return g.doors*floor + door
}

// Toggle flips one sensor and returns its new state.
func (g *Grid) Toggle(floor, door int) int {
	id := g.Index(floor, door)
	g.states[id] = 1 - g.states[id]
	return int(g.states[id])
}

// State returns the current state of one sensor.
func (g *Grid) State(floor, door int) int {
	return int(g.states[g.Index(floor, door)])
}

// Len returns the number of sensors.
func (g *Grid) Len() int {
	return len(g.states)
}

// Open returns how many sensors are currently open.
func (g *Grid) Open() int {
	n := 0
	for _, s := range g.states {
		n += int(s)
	}
	return n
}
