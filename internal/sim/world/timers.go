package world

import (
	"sort"

	"github.com/sirupsen/logrus"
)

type timerKind uint8

const (
	timerWin timerKind = iota + 1
	timerGameOver
	timerEffectExpire
)

type timer struct {
	due  uint64
	seq  uint64
	kind timerKind
	ref  int
}

// schedule fires kind after delay ticks, at the end of that tick's Update.
// A zero delay fires at the end of the current tick.
func (w *World) schedule(delay uint64, kind timerKind, ref int) {
	w.timerSeq++
	w.timers = append(w.timers, timer{due: w.tick + delay, seq: w.timerSeq, kind: kind, ref: ref})
}

func (w *World) runTimers() {
	if len(w.timers) == 0 {
		return
	}
	sort.Slice(w.timers, func(i, j int) bool {
		if w.timers[i].due != w.timers[j].due {
			return w.timers[i].due < w.timers[j].due
		}
		return w.timers[i].seq < w.timers[j].seq
	})
	n := 0
	for n < len(w.timers) && w.timers[n].due <= w.tick {
		w.fire(w.timers[n])
		n++
	}
	w.timers = append(w.timers[:0], w.timers[n:]...)
}

func (w *World) fire(t timer) {
	switch t.kind {
	case timerWin:
		if w.state == StatePlaying {
			w.state = StateWon
			w.emit(EventWin, 1)
			w.log.WithField("tick", w.tick).Info("won")
		}
	case timerGameOver:
		if w.state == StatePlaying {
			w.state = StateGameOver
			w.emit(EventGameOver, 1)
			w.log.WithFields(logrus.Fields{"tick": w.tick, "gold": w.player.Gold, "crystals": w.player.Crystals}).Info("game over")
		}
	case timerEffectExpire:
		w.expireEffect(t.ref)
	}
}
