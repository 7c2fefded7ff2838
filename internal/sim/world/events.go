package world

type EventKind string

const (
	EventAddEnergyCrystal EventKind = "addEnergyCrystal"
	EventAddGold          EventKind = "addGold"
	EventAddBomb          EventKind = "addBomb"
	EventSubtractBomb     EventKind = "subtractBomb"
	EventSubtractHp       EventKind = "subtractHp"
	EventWin              EventKind = "win"
	EventGameOver         EventKind = "gameOver"
)

type Event struct {
	Tick   uint64    `json:"tick"`
	Kind   EventKind `json:"kind"`
	Amount int       `json:"amount"`
}

// Listener is called synchronously on the simulation goroutine.
type Listener func(Event)

// Subscribe registers fn for every event emitted from now on.
func (w *World) Subscribe(fn Listener) {
	if fn != nil {
		w.listeners = append(w.listeners, fn)
	}
}

func (w *World) emit(kind EventKind, amount int) {
	ev := Event{Tick: w.tick, Kind: kind, Amount: amount}
	w.res.Events = append(w.res.Events, ev)
	for _, fn := range w.listeners {
		fn(ev)
	}
}
