// Package dialog is the graphical expiry prompt run by the hidden "dialog"
// subcommand. It prints nothing itself; the caller writes the chosen action.
package dialog

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/loykin/bgtimer/internal/notify"
)

const appID = "io.github.loykin.bgtimer"

// Prompt is the expiry window and its three buttons.
type Prompt struct {
	Window  fyne.Window
	Snooze  *widget.Button
	Restart *widget.Button
	Stop    *widget.Button

	choose func(notify.Action)
}

// Dismiss handles the window being closed without a button press.
func (p *Prompt) Dismiss() { p.choose(notify.Stop) }

// Build lays out the prompt on a. done is called exactly once with the
// chosen action; closing the window counts as stop.
func Build(a fyne.App, message string, done func(notify.Action)) *Prompt {
	var once sync.Once
	choose := func(act notify.Action) {
		once.Do(func() { done(act) })
	}

	w := a.NewWindow(message)
	p := &Prompt{
		Window:  w,
		Snooze:  widget.NewButtonWithIcon("Snooze", theme.MediaPauseIcon(), func() { choose(notify.Snooze) }),
		Restart: widget.NewButtonWithIcon("Restart", theme.MediaReplayIcon(), func() { choose(notify.Restart) }),
		Stop:    widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), func() { choose(notify.Stop) }),
		choose:  choose,
	}
	p.Stop.Importance = widget.HighImportance

	label := widget.NewLabelWithStyle(message, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	label.Wrapping = fyne.TextWrapWord

	w.SetContent(container.NewPadded(container.NewVBox(
		widget.NewIcon(theme.HistoryIcon()),
		label,
		container.NewGridWithColumns(3, p.Snooze, p.Restart, p.Stop),
	)))
	w.SetCloseIntercept(p.Dismiss)
	w.Resize(fyne.NewSize(360, 160))
	w.SetFixedSize(true)
	w.CenterOnScreen()
	return p
}

// Ask shows the prompt and blocks until the user answers.
func Ask(message string) notify.Action {
	a := app.NewWithID(appID)
	var result notify.Action = notify.Stop
	p := Build(a, message, func(act notify.Action) {
		result = act
		a.Quit()
	})
	p.Window.RequestFocus()
	p.Window.ShowAndRun()
	return result
}
