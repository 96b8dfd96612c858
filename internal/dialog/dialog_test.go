package dialog

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"

	"github.com/loykin/bgtimer/internal/notify"
)

func TestButtonsReportAction(t *testing.T) {
	cases := []struct {
		name string
		tap  func(*Prompt)
		want notify.Action
	}{
		{"snooze", func(p *Prompt) { test.Tap(p.Snooze) }, notify.Snooze},
		{"restart", func(p *Prompt) { test.Tap(p.Restart) }, notify.Restart},
		{"stop", func(p *Prompt) { test.Tap(p.Stop) }, notify.Stop},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := test.NewApp()
			defer a.Quit()

			var got []notify.Action
			p := Build(a, "Tea is ready", func(act notify.Action) { got = append(got, act) })
			tc.tap(p)
			// later clicks are ignored
			test.Tap(p.Stop)

			assert.Equal(t, []notify.Action{tc.want}, got)
			assert.Equal(t, "Tea is ready", p.Window.Title())
		})
	}
}

func TestCloseMeansStop(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	var got []notify.Action
	p := Build(a, "x", func(act notify.Action) { got = append(got, act) })
	p.Dismiss()
	p.Dismiss()

	assert.Equal(t, []notify.Action{notify.Stop}, got)
}
