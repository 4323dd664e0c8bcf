package overlay

import (
	"sync/atomic"
	"time"

	"github.com/dudu/beautycam/internal/landmarks"
)

// AnimationPeriod is the length of one animation cycle
const AnimationPeriod = 2 * time.Second

// Compositor renders the selected sticker from the shared landmark state
// on the caller's refresh cadence
type Compositor struct {
	state    *landmarks.State
	selected atomic.Pointer[Sticker]
	epoch    time.Time
}

func NewCompositor(state *landmarks.State) *Compositor {
	c := &Compositor{state: state, epoch: time.Now()}
	none, _ := Lookup(None)
	c.selected.Store(&none)
	return c
}

// Select changes the active sticker
func (c *Compositor) Select(key string) error {
	st, err := Lookup(key)
	if err != nil {
		return err
	}
	c.selected.Store(&st)
	return nil
}

// Selected returns the active sticker
func (c *Compositor) Selected() Sticker {
	return *c.selected.Load()
}

// Next cycles to the following catalogue entry
func (c *Compositor) Next() Sticker {
	cur := c.Selected()
	for i, st := range catalogue {
		if st.Key == cur.Key {
			next := catalogue[(i+1)%len(catalogue)]
			c.selected.Store(&next)
			return next
		}
	}
	return cur
}

// Frame returns the draw commands for one refresh. Nothing is drawn when
// no sticker is selected or no face is currently detected.
func (c *Compositor) Frame(screen, frame Size, now time.Time) []Command {
	st := c.Selected()
	if st.Key == None {
		return nil
	}
	pub := c.state.Load()
	if !pub.FaceDetected || pub.Snapshot == nil {
		return nil
	}
	cmds, ok := Place(st, pub.Snapshot, frame, screen, c.phase(now))
	if !ok {
		return nil
	}
	return cmds
}

func (c *Compositor) phase(now time.Time) float64 {
	elapsed := now.Sub(c.epoch) % AnimationPeriod
	if elapsed < 0 {
		elapsed += AnimationPeriod
	}
	return float64(elapsed) / float64(AnimationPeriod)
}
