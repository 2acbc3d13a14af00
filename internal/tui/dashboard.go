// Package tui is a terminal monitor over the poller state.
package tui

import (
	"context"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"tgdash/internal/poller"
	"tgdash/internal/stats"
)

// Source is the live state the monitor renders.
type Source interface {
	Snapshot() poller.Snapshot
	Subscribe() (<-chan poller.Event, func())
	Refresh(ctx context.Context)
}

type Dashboard struct {
	app *tview.Application
	src Source
	log *zap.Logger

	statusView  *tview.TextView
	summaryView *tview.TextView
	portView    *tview.TextView
	historyView *tview.TextView

	// test is only touched on the tview event goroutine.
	test string
}

func NewDashboard(src Source, test string, log *zap.Logger) *Dashboard {
	if log == nil {
		log = zap.NewNop()
	}
	if test == "" {
		test = "1"
	}
	return &Dashboard{app: tview.NewApplication(), src: src, log: log, test: test}
}

// Run blocks until the user quits or ctx is done.
func (d *Dashboard) Run(ctx context.Context) error {
	d.setupUI(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.updateLoop(ctx)

	return d.app.Run()
}

func (d *Dashboard) setupUI(ctx context.Context) {
	d.statusView = tview.NewTextView().SetDynamicColors(true)
	d.statusView.SetBorder(true).SetTitle(" Controller ")

	d.summaryView = tview.NewTextView().SetDynamicColors(true)
	d.summaryView.SetBorder(true).SetTitle(" Summary ")

	d.portView = tview.NewTextView().SetDynamicColors(true)
	d.portView.SetBorder(true).SetTitle(" Ports ")

	d.historyView = tview.NewTextView().SetDynamicColors(true)
	d.historyView.SetBorder(true).SetTitle(" Rate history ")

	help := tview.NewTextView().SetDynamicColors(true).
		SetText("[yellow]q[white] quit  [yellow]n/p[white] next/previous test  [yellow]r[white] refresh")

	top := tview.NewFlex().
		AddItem(d.summaryView, 0, 1, false).
		AddItem(d.portView, 0, 1, false)

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(d.statusView, 4, 1, false).
		AddItem(top, 0, 3, false).
		AddItem(d.historyView, 4, 1, false).
		AddItem(help, 1, 1, false)

	d.app.SetRoot(layout, true).
		SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			switch event.Key() {
			case tcell.KeyEsc:
				d.app.Stop()
				return nil
			case tcell.KeyRune:
				switch event.Rune() {
				case 'q':
					d.app.Stop()
					return nil
				case 'n':
					d.step(1)
					return nil
				case 'p':
					d.step(-1)
					return nil
				case 'r':
					go d.src.Refresh(ctx)
					return nil
				}
			}
			return event
		})
	d.render(d.src.Snapshot())
}

func (d *Dashboard) updateLoop(ctx context.Context) {
	events, cancel := d.src.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("monitor stopping")
			d.app.Stop()
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			snap := d.src.Snapshot()
			d.app.QueueUpdateDraw(func() { d.render(snap) })
		}
	}
}

// step moves the selection through the configured test numbers.
func (d *Dashboard) step(delta int) {
	snap := d.src.Snapshot()
	d.test = Step(snap.Tests.Numbers(), d.test, delta)
	d.render(snap)
}

func (d *Dashboard) render(snap poller.Snapshot) {
	def := snap.Tests[d.test]
	s, _ := snap.Statistics.ForTest(d.test)
	ts, _ := snap.TimeStatistics.ForTest(d.test)

	d.statusView.SetText(StatusText(snap, d.test))
	d.summaryView.SetText(SummaryText(stats.Summarize(s, def.PortTxRxMapping, &def)))
	d.portView.SetText(PortText(s, def.PortTxRxMapping))

	_, _, width, _ := d.historyView.GetInnerRect()
	d.historyView.SetText(HistoryText(ts, def.PortTxRxMapping, width-20))
}

// Step returns the number delta positions away from current, wrapping around.
// An unknown current selects the first number.
func Step(numbers []string, current string, delta int) string {
	if len(numbers) == 0 {
		return current
	}
	for i, n := range numbers {
		if n == current {
			j := ((i+delta)%len(numbers) + len(numbers)) % len(numbers)
			return numbers[j]
		}
	}
	return numbers[0]
}
