// Live feedback window
package gui

import (
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"video-feedback/internal/io"
)

// maxWindowSide caps the initial window size for large frames; the image is
// scaled to fit.
const maxWindowSide = 1280

// Display is the display-mode sink: a window showing the newest frame. It
// reports closed once the user closes the window or presses Escape or Q.
type Display struct {
	app    fyne.App
	window fyne.Window
	logger *logrus.Logger

	image  *canvas.Image
	status *widget.Label

	closed  atomic.Bool
	started time.Time
}

// NewDisplay creates the window for rows x cols frames. It is not shown until
// ShowAndRun.
func NewDisplay(app fyne.App, title string, rows, cols int, logger *logrus.Logger) *Display {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	d := &Display{
		app:    app,
		window: app.NewWindow(title),
		logger: logger,
		status: widget.NewLabel("waiting for first frame"),
	}

	d.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, cols, rows)))
	d.image.FillMode = canvas.ImageFillContain
	d.image.ScaleMode = canvas.ImageScaleFastest

	d.window.SetContent(container.NewBorder(nil, d.status, nil, nil, d.image))
	d.window.Resize(windowSize(rows, cols))
	d.window.CenterOnScreen()

	d.window.SetCloseIntercept(d.requestClose)
	d.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape, fyne.KeyQ:
			d.requestClose()
		}
	})

	return d
}

// Consume shows img. Frames arriving after the window closed are dropped.
func (d *Display) Consume(frame int, img gocv.Mat) error {
	if d.closed.Load() {
		return nil
	}

	out, err := io.ToImage(img)
	if err != nil {
		return fmt.Errorf("frame %d: %w", frame, err)
	}

	if frame == 0 {
		d.started = time.Now()
	}
	text := fmt.Sprintf("frame %d", frame)
	if elapsed := time.Since(d.started); frame > 0 && elapsed > 0 {
		text = fmt.Sprintf("frame %d  |  %.1f fps", frame, float64(frame)/elapsed.Seconds())
	}

	fyne.Do(func() {
		d.image.Image = out
		d.image.Refresh()
		d.status.SetText(text)
	})
	return nil
}

// Closed reports whether the user asked to close the window.
func (d *Display) Closed() bool {
	return d.closed.Load()
}

// ShowAndRun shows the window and runs the fyne event loop on the calling
// goroutine, which must be the main one. run is started on its own goroutine
// and should return once Closed reports true. ShowAndRun returns after both
// the window and run have finished.
func (d *Display) ShowAndRun(run func()) {
	d.logger.Info("GUI: Showing feedback window")

	done := make(chan struct{})
	go func() {
		run()
		close(done)
		if !d.closed.Swap(true) {
			fyne.Do(d.app.Quit)
		}
	}()

	d.window.ShowAndRun()
	d.closed.Store(true)
	<-done
}

func (d *Display) requestClose() {
	if d.closed.Swap(true) {
		return
	}
	d.logger.Info("GUI: Window closed")
	d.app.Quit()
}

func windowSize(rows, cols int) fyne.Size {
	w, h := float32(cols), float32(rows)
	if side := max(w, h); side > maxWindowSide {
		scale := maxWindowSide / side
		w, h = w*scale, h*scale
	}
	return fyne.NewSize(w, h)
}
